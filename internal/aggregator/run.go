package aggregator

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/bank-download-aggregator/internal/config"
	"github.com/ginjaninja78/bank-download-aggregator/internal/types"
	"github.com/ginjaninja78/bank-download-aggregator/pkg/utils"
)

// HandleFolder applies the existing-output policy to dir and, unless the
// folder is skipped, cleans stale outputs and aggregates it.
func (p *Processor) HandleFolder(dir string) (*types.FolderResult, error) {
	if p.config.ExistingOutputs == config.ExistingOutputsSkip {
		done, err := utils.HasMatching(dir, p.outputPatterns())
		if err != nil {
			return nil, err
		}
		if done {
			p.logger.Info("Folder already has outputs, skipping", zap.String("folder", dir))
			return &types.FolderResult{Dir: dir, Skipped: true}, nil
		}
	} else if err := p.CleanFolder(dir); err != nil {
		return nil, err
	}

	return p.ProcessFolder(dir)
}

// CleanFolder deletes earlier outputs from dir.
func (p *Processor) CleanFolder(dir string) error {
	for _, pattern := range p.outputPatterns() {
		removed, err := utils.DeleteMatching(dir, pattern)
		if err != nil {
			return fmt.Errorf("failed to clean %s: %w", dir, err)
		}
		if removed == 0 {
			p.logger.Debug("No files found matching pattern",
				zap.String("folder", dir), zap.String("pattern", pattern))
			continue
		}
		p.logger.Info("Deleted stale output files",
			zap.String("folder", dir), zap.String("pattern", pattern), zap.Int("count", removed))
	}
	return nil
}

// Run walks every root and handles each directory in turn. A folder error
// stops the run unless ContinueOnError is set, in which case it is logged
// and recorded in the summary.
func (p *Processor) Run(runID string, roots []string) (*utils.ProcessingSummary, error) {
	summary := &utils.ProcessingSummary{
		RunID:     runID,
		StartTime: time.Now(),
		Roots:     roots,
	}

	for _, root := range roots {
		p.logger.Info("Reading CSV files in root and its subdirectories", zap.String("root", root))

		err := utils.WalkDirectories(root, func(dir string) error {
			result, err := p.HandleFolder(dir)
			if err != nil {
				if !p.config.ContinueOnError {
					return err
				}
				p.logger.Error("Folder failed, continuing", zap.String("folder", dir), zap.Error(err))
				summary.AddFailure(dir, err)
				return nil
			}

			summary.Add(result)
			if len(result.Files) > 0 {
				p.logger.Info("Folder done",
					zap.String("folder", dir),
					zap.Int("aggregated", result.Aggregated()),
					zap.Int("skipped", result.SkippedFiles()),
					zap.Int("rows", result.CombinedRows),
					zap.Int("new_column_rows", result.DriftRows))
			}
			return nil
		})
		if err != nil {
			summary.EndTime = time.Now()
			return summary, err
		}
	}

	summary.EndTime = time.Now()
	return summary, nil
}
