package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vaultsync/internal/domain/model"
	"github.com/okian/vaultsync/internal/domain/season"
	"github.com/okian/vaultsync/internal/domain/types"
	"github.com/okian/vaultsync/pkg/logger"
	"github.com/okian/vaultsync/pkg/metrics"
)

// SyncBatch syncs keys one after another. A failing character is reported in
// the batch and does not stop the others; only cancellation of ctx does.
func (s *Service) SyncBatch(ctx context.Context, keys []model.CharacterKey) (types.BatchReport, error) {
	var batch types.BatchReport
	metrics.UpdateBatchSize(len(keys))

	start := time.Now()
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			s.logger.Warn(ctx, "batch interrupted",
				logger.Int("done", i),
				logger.Int("total", len(keys)))
			return batch, err
		}

		res, err := s.SyncCharacter(ctx, key)
		if err != nil {
			s.logger.Error(ctx, "character sync failed",
				logger.String("character", key.String()),
				logger.Error(err))
			batch.Add(types.Report{Character: key.String(), Error: err.Error()})
			continue
		}
		batch.Add(res.Report())
	}

	s.logger.Info(ctx, "batch finished",
		logger.Int("characters", len(keys)),
		logger.Int("succeeded", batch.Succeeded),
		logger.Int("degraded", batch.Degraded),
		logger.Int("failed", batch.Failed),
		logger.Duration("duration", time.Since(start)),
	)
	return batch, nil
}

// RecordDelves appends completed delve tiers to the current week's entry of
// key. Non-positive tiers are ignored. Delve runs are never cleared by a sync.
func (s *Service) RecordDelves(ctx context.Context, key model.CharacterKey, tiers ...int) (model.VaultResult, error) {
	key.Region = model.ParseRegion(string(key.Region))
	release, err := s.guard.Acquire(ctx, key.String())
	if err != nil {
		return model.VaultResult{}, fmt.Errorf("record delves %s: %w", key, err)
	}
	defer release()

	run, err := s.begin(ctx, key)
	if err != nil {
		return model.VaultResult{}, err
	}
	for _, t := range tiers {
		if t > 0 {
			run.entry.DelveRuns = append(run.entry.DelveRuns, t)
		}
	}
	run.entry.UpdatedAt = run.now
	if err := s.store.SaveEntry(ctx, run.entry); err != nil {
		return model.VaultResult{}, fmt.Errorf("save entry %s: %w", key, err)
	}
	run.log.Info(ctx, "delves recorded",
		logger.Int("week", run.week),
		logger.Int("runs", len(run.entry.DelveRuns)))
	return s.calculator.Calculate(ctx, run.entry), nil
}

// CurrentWeek returns the season week of key's region at the service clock.
func (s *Service) CurrentWeek(key model.CharacterKey) int {
	return season.CurrentWeek(model.ParseRegion(string(key.Region)), s.now().UTC())
}
