// =============================================================================
// Bank Download Aggregator - Reference Data Module
// =============================================================================
//
// This module loads the bank-code reference table: a small mapping from the
// last four digits of an account number to the canonical identifier written
// into the Location column.
//
// SUPPORTED STORES:
//   - JSON (.json): an array of {"account_last4": "1111", "location_id": "ACC-A"}
//   - XLSX (.xlsx): first sheet, key in column A and identifier in column B,
//                   with an optional header row
//
// The mapping is loaded once per run and never modified afterwards.
//
// =============================================================================

package refdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// KeyLength is the number of account digits in a reference key.
const KeyLength = 4

var keyPattern = regexp.MustCompile(`^\d{4}$`)

// =============================================================================
// RECORD AND MAPPING TYPES
// =============================================================================

// Record is one row of the reference table.
type Record struct {
	// Key is the last four digits of the account number.
	Key string `json:"account_last4"`

	// Location is the canonical account identifier.
	Location string `json:"location_id"`
}

// UnmarshalJSON accepts the key as either a string or a bare number, since
// hand-edited reference files often drop the quotes.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key      json.RawMessage `json:"account_last4"`
		Location string          `json:"location_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Location = raw.Location
	r.Key = ""
	if len(raw.Key) == 0 {
		return nil
	}

	var key string
	if err := json.Unmarshal(raw.Key, &key); err == nil {
		r.Key = key
		return nil
	}

	var number json.Number
	dec := json.NewDecoder(bytes.NewReader(raw.Key))
	dec.UseNumber()
	if err := dec.Decode(&number); err != nil {
		return fmt.Errorf("account_last4 must be a string or number: %s", raw.Key)
	}
	r.Key = PadKey(number.String())
	return nil
}

// Mapping is an immutable lookup from reference key to canonical id.
type Mapping struct {
	source  string
	entries map[string]string
}

// NewMapping builds a mapping from records. Keys must be exactly four
// digits and identifiers must be non-blank. A key listed twice with
// different identifiers is rejected; an exact duplicate is tolerated.
func NewMapping(source string, records []Record) (*Mapping, error) {
	entries := make(map[string]string, len(records))

	for i, record := range records {
		key := strings.TrimSpace(record.Key)
		location := strings.TrimSpace(record.Location)

		if !keyPattern.MatchString(key) {
			return nil, fmt.Errorf("record %d: account key %q is not %d digits", i+1, record.Key, KeyLength)
		}
		if location == "" {
			return nil, fmt.Errorf("record %d: location for key %s is blank", i+1, key)
		}
		if existing, ok := entries[key]; ok && existing != location {
			return nil, fmt.Errorf("record %d: key %s maps to both %q and %q", i+1, key, existing, location)
		}

		entries[key] = location
	}

	return &Mapping{source: source, entries: entries}, nil
}

// Lookup returns the canonical id for a key.
func (m *Mapping) Lookup(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	location, ok := m.entries[key]
	return location, ok
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Source is the file the mapping was loaded from.
func (m *Mapping) Source() string {
	if m == nil {
		return ""
	}
	return m.source
}

// Keys returns all keys in ascending order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// Load reads a reference table, choosing the store by file extension.
// A missing or corrupt file is an error; the run cannot continue without it.
func Load(path string) (*Mapping, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported reference file type %q", filepath.Ext(path))
	}
}

// LoadJSON reads a JSON array of records.
func LoadJSON(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse reference file %s: %w", path, err)
	}

	mapping, err := NewMapping(path, records)
	if err != nil {
		return nil, fmt.Errorf("invalid reference file %s: %w", path, err)
	}
	return mapping, nil
}

// PadKey left-pads an all-digit key shorter than KeyLength with zeros.
// Spreadsheets and bare JSON numbers drop leading zeros ("0042" -> "42").
func PadKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || len(key) >= KeyLength {
		return key
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return key
		}
	}
	return strings.Repeat("0", KeyLength-len(key)) + key
}
