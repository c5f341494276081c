// Package resolver maps a bank export's file name to the canonical account
// identifier stored in the Location column.
package resolver

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/ginjaninja78/bank-download-aggregator/internal/refdata"
)

// Resolver extracts the four account digits that follow a marker word in a
// file's base name and looks them up in the reference mapping.
type Resolver struct {
	marker  string
	pattern *regexp.Regexp
	mapping *refdata.Mapping
	logger  *zap.Logger
}

// New creates a Resolver. The marker is matched literally and is case
// sensitive; the digits must be exactly four, not the start of a longer run.
func New(mapping *refdata.Mapping, marker string, logger *zap.Logger) (*Resolver, error) {
	if marker == "" {
		return nil, fmt.Errorf("marker word must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pattern, err := regexp.Compile(regexp.QuoteMeta(marker) + `(\d{4})(?:\D|$)`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile marker pattern: %w", err)
	}

	return &Resolver{
		marker:  marker,
		pattern: pattern,
		mapping: mapping,
		logger:  logger,
	}, nil
}

// Key returns the reference key for a base name: the four digits after the
// marker, or the base name itself when there is no match.
func (r *Resolver) Key(baseName string) string {
	if m := r.pattern.FindStringSubmatch(baseName); m != nil {
		return m[1]
	}
	return baseName
}

// Resolve returns the canonical id for a base name, falling back to the base
// name verbatim when the key is not in the mapping.
func (r *Resolver) Resolve(baseName string) string {
	key := r.Key(baseName)

	if location, ok := r.mapping.Lookup(key); ok {
		r.logger.Debug("Resolved location",
			zap.String("file", baseName),
			zap.String("key", key),
			zap.String("location", location))
		return location
	}

	r.logger.Info("No reference entry for file, using base name as location",
		zap.String("file", baseName),
		zap.String("key", key))
	return baseName
}
