// -----------------------------------------------------------------------
// Scheduled Jobs - wires presets and the retention sweep into the cron
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

const retentionJobName = "retention-sweep"

// RegisterAnalysisSchedules loads the presets file and registers one
// recurring analysis job per preset. Returns the number of presets
// registered.
func RegisterAnalysisSchedules(scheduler interfaces.SchedulerService, analysis interfaces.AnalysisService, config *common.SchedulesConfig, logger arbor.ILogger) (int, error) {
	presets, err := LoadPresets(config.PresetsFile)
	if err != nil {
		return 0, err
	}
	if len(presets) == 0 {
		logger.Info().Str("file", config.PresetsFile).Msg("No schedule presets found")
		return 0, nil
	}

	for _, preset := range presets {
		preset := preset
		name := "analysis:" + preset.Name
		description := preset.Description
		if description == "" {
			description = fmt.Sprintf("Recurring analysis of %s", preset.URL)
		}

		handler := func() error {
			job, err := analysis.Submit(context.Background(), preset.URL, preset.MaxDepth)
			if err != nil {
				return fmt.Errorf("failed to submit scheduled analysis: %w", err)
			}
			logger.Info().
				Str("analysis_id", job.ID).
				Str("url", preset.URL).
				Msg("Scheduled analysis submitted")
			return nil
		}

		if err := scheduler.RegisterJob(name, preset.Schedule, description, handler); err != nil {
			return 0, fmt.Errorf("failed to register schedule %q: %w", preset.Name, err)
		}
	}

	return len(presets), nil
}

// RegisterRetentionSweep registers the job that deletes completed and
// failed analyses older than the retention TTL, along with their
// stored records.
func RegisterRetentionSweep(scheduler interfaces.SchedulerService, jobs interfaces.JobStorage, records interfaces.RecordStorage, config *common.AnalysisConfig, logger arbor.ILogger) error {
	schedule := fmt.Sprintf("@every %s", config.SweepInterval)
	description := fmt.Sprintf("Removes terminal analyses older than %s", config.RetentionTTL)

	handler := func() error {
		cutoff := time.Now().Add(-config.RetentionTTL)
		ids, err := jobs.DeleteCompletedBefore(cutoff)
		if err != nil {
			return fmt.Errorf("retention sweep failed: %w", err)
		}

		for _, id := range ids {
			if err := records.DeleteRecord(id); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
				logger.Warn().Err(err).Str("analysis_id", id).Msg("Failed to delete record during sweep")
			}
		}

		if len(ids) > 0 {
			logger.Info().Int("deleted", len(ids)).Msg("Retention sweep removed expired analyses")
		}
		return nil
	}

	return scheduler.RegisterJob(retentionJobName, schedule, description, handler)
}
