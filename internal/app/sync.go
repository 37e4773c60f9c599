package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vaultsync/internal/adapters/repository"
	"github.com/okian/vaultsync/internal/adapters/upstream"
	"github.com/okian/vaultsync/internal/domain/combatlog"
	"github.com/okian/vaultsync/internal/domain/encounter"
	"github.com/okian/vaultsync/internal/domain/gear"
	"github.com/okian/vaultsync/internal/domain/model"
	"github.com/okian/vaultsync/internal/domain/season"
	"github.com/okian/vaultsync/internal/domain/types"
	"github.com/okian/vaultsync/pkg/logger"
	"github.com/okian/vaultsync/pkg/metrics"
)

// Source names used in results, logs and metrics.
const (
	SourceGear        = "gear"
	SourceLeaderboard = "leaderboard"
	SourceEncounters  = "encounters"
	SourceCombatLog   = "combat_log"
	SourceParses      = "parses"
	SourceStats       = "stats"
)

// Sync outcomes recorded in metrics.
const (
	outcomeOK      = "ok"
	outcomePartial = "partial"
	outcomeError   = "error"
)

// SyncResult is the outcome of one character sync.
type SyncResult struct {
	RunID        string
	Key          model.CharacterKey
	Week         int
	State        *model.CharacterProgressState
	Entry        *model.WeeklyVaultEntry
	Vault        model.VaultResult
	SnapshotCase string
	Sources      map[string]string
	Duration     time.Duration
}

// Report converts the result into its printable form.
func (r *SyncResult) Report() types.Report {
	rep := types.Report{
		RunID:           r.RunID,
		Character:       r.Key.String(),
		Week:            r.Week,
		TargetItemLevel: season.WeeklyTargetIlvl(r.Week),
		Vault:           r.Vault,
		SnapshotCase:    r.SnapshotCase,
		Sources:         r.Sources,
	}
	if r.State != nil {
		rep.ItemLevel = r.State.CurrentIlvl
		rep.MythicPlusScore = r.State.MythicPlusScore
	}
	if r.Entry != nil {
		rep.RaidKills = r.Entry.RaidKills
		rep.KeyLevels = r.Entry.MythicPlusRuns
	}
	return rep
}

// degraded reports whether any source errored.
func (r *SyncResult) degraded() bool {
	for _, st := range r.Sources {
		if st == types.SourceError {
			return true
		}
	}
	return false
}

// syncRun carries the per-sync working set.
type syncRun struct {
	key        model.CharacterKey
	now        time.Time
	week       int
	resetUnix  int64
	runsSince  time.Time
	state      *model.CharacterProgressState
	entry      *model.WeeklyVaultEntry
	result     *SyncResult
	log        logger.Logger
	gearFresh  bool
	iconsFresh map[model.Slot]model.IconRef
}

// SyncCharacter fetches every source for key, folds the answers into the
// stored baseline and returns the predicted vault. A failing source never
// fails the sync: its previous contribution is kept. Only store errors and
// a concurrent sync of the same character fail the call.
func (s *Service) SyncCharacter(ctx context.Context, key model.CharacterKey) (*SyncResult, error) {
	start := time.Now()
	key.Region = model.ParseRegion(string(key.Region))

	release, err := s.guard.Acquire(ctx, key.String())
	if err != nil {
		metrics.RecordErrorByComponent("service", "in_flight")
		return nil, fmt.Errorf("sync %s: %w", key, err)
	}
	defer release()

	run, err := s.begin(ctx, key)
	if err != nil {
		metrics.RecordSync(outcomeError, float64(time.Since(start).Milliseconds()))
		return nil, err
	}

	s.syncGear(ctx, run)
	s.syncLeaderboard(ctx, run)
	s.syncIcons(ctx, run)
	s.syncEncounters(ctx, run)
	s.syncCombatLog(ctx, run)
	s.syncStats(ctx, run)

	run.entry.RaidKills = s.reconciler.Merge(run.entry.EncounterKills, run.entry.CombatLogKills)
	run.entry.UpdatedAt = run.now
	run.result.Vault = s.calculator.Calculate(ctx, run.entry)

	if err := s.store.SaveState(ctx, run.state); err != nil {
		metrics.RecordSync(outcomeError, float64(time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("save state %s: %w", key, err)
	}
	if err := s.store.SaveEntry(ctx, run.entry); err != nil {
		metrics.RecordSync(outcomeError, float64(time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("save entry %s: %w", key, err)
	}

	res := run.result
	res.State = run.state
	res.Entry = run.entry
	res.Duration = time.Since(start)

	raid, dungeon, world := res.Vault.Unlocked()
	metrics.RecordVaultSlots(raid, dungeon, world)
	outcome := outcomeOK
	if res.degraded() {
		outcome = outcomePartial
	}
	metrics.RecordSync(outcome, float64(res.Duration.Milliseconds()))

	run.log.Info(ctx, "character synced",
		logger.Int("week", run.week),
		logger.Float64("ilvl", run.state.CurrentIlvl),
		logger.Int("raid_slots", raid),
		logger.Int("dungeon_slots", dungeon),
		logger.Int("world_slots", world),
		logger.String("outcome", outcome),
		logger.Duration("duration", res.Duration),
	)
	return res, nil
}

// begin loads the stored baseline and this week's entry.
func (s *Service) begin(ctx context.Context, key model.CharacterKey) (*syncRun, error) {
	now := s.now().UTC()
	run := &syncRun{
		key:       key,
		now:       now,
		week:      season.CurrentWeek(key.Region, now),
		resetUnix: season.WeekResetTimestamp(key.Region, now),
		runsSince: season.RunBoundary(key.Region, now),
	}
	runID := uuid.NewString()
	run.log = s.logger.With(logger.String("run_id", runID), logger.String("character", key.String()))
	run.result = &SyncResult{
		RunID:   runID,
		Key:     key,
		Week:    run.week,
		Sources: make(map[string]string, 6),
	}

	st, err := s.store.State(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		st = model.NewCharacterProgressState(key)
	case err != nil:
		return nil, fmt.Errorf("load state %s: %w", key, err)
	}
	run.state = st

	entry, err := s.store.Entry(ctx, key, run.week)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		entry = model.NewWeeklyVaultEntry(key, run.week)
	case err != nil:
		return nil, fmt.Errorf("load entry %s: %w", key, err)
	}
	run.entry = entry
	return run, nil
}

// due reports whether a source last fetched at last should be fetched again.
func (s *Service) due(run *syncRun, last time.Time, ttl time.Duration) bool {
	return ttl <= 0 || last.IsZero() || run.now.Sub(last) >= ttl
}

// record stores the status of a source fetch and logs failures.
func (s *Service) record(ctx context.Context, run *syncRun, source string, status upstream.Status, err error) {
	label := types.SourceOK
	switch status {
	case upstream.StatusNoData:
		label = types.SourceNoData
	case upstream.StatusError:
		label = types.SourceError
		metrics.RecordErrorByComponent(source, errorKind(err))
		run.log.Warn(ctx, "source failed, keeping previous data",
			logger.String("source", source),
			logger.Error(err))
	}
	run.result.Sources[source] = label
	metrics.RecordSourceFetch(source, label)
}

func (s *Service) mark(run *syncRun, source, label string) {
	run.result.Sources[source] = label
	metrics.RecordSourceFetch(source, label)
}

func (s *Service) syncGear(ctx context.Context, run *syncRun) {
	switch {
	case s.gear == nil:
		s.mark(run, SourceGear, types.SourceDisabled)
		return
	case !s.due(run, run.state.LastSync.Gear, s.ttls.Gear):
		s.mark(run, SourceGear, types.SourceSkipped)
		return
	}
	res := s.gear.Equipment(ctx, run.key)
	s.record(ctx, run, SourceGear, res.Status, res.Err)
	if !res.Ok() {
		return
	}
	run.state.ParsedGear = gear.Parse(res.Value, run.state.ParsedGear)
	run.state.CurrentIlvl = gear.AverageIlvl(run.state.ParsedGear)
	run.state.LastSync.Gear = run.now
	run.gearFresh = true
}

func (s *Service) syncLeaderboard(ctx context.Context, run *syncRun) {
	switch {
	case s.leaderboard == nil:
		s.mark(run, SourceLeaderboard, types.SourceDisabled)
		return
	case !s.due(run, run.state.LastSync.Leaderboard, s.ttls.Leaderboard):
		s.mark(run, SourceLeaderboard, types.SourceSkipped)
		return
	}
	res := s.leaderboard.Profile(ctx, run.key)
	s.record(ctx, run, SourceLeaderboard, res.Status, res.Err)
	if !res.Ok() {
		return
	}
	p := res.Value
	run.state.MythicPlusScore = p.MythicPlusScore
	if len(p.RaidProgression) > 0 {
		run.state.RaidProgression = p.RaidProgression
	}
	// Runs finished before this week's reset belong to last week's entry.
	if levels := p.KeyLevels(run.runsSince); len(levels) > 0 {
		run.entry.MythicPlusRuns = levels
	}
	run.state.LastSync.Leaderboard = run.now
	run.iconsFresh = p.GearIcons
}

// syncIcons fills icon URLs after a gear or leaderboard refresh, falling back
// to the item media endpoint for slots the leaderboard did not cover.
func (s *Service) syncIcons(ctx context.Context, run *syncRun) {
	if !run.gearFresh && run.iconsFresh == nil {
		return
	}
	g, missing := gear.ApplyIcons(run.state.ParsedGear, run.iconsFresh)
	if s.icons != nil {
		for _, slot := range missing {
			item := g[slot]
			if item.ItemID <= 0 {
				continue
			}
			res := s.icons.ItemIcon(ctx, run.key.Region, item.ItemID)
			if res.Status == upstream.StatusError {
				run.log.Debug(ctx, "icon lookup failed",
					logger.String("slot", slot.String()),
					logger.Int("item_id", item.ItemID),
					logger.Error(res.Err))
				if upstream.Retryable(res.Err) {
					break
				}
				continue
			}
			if res.Ok() {
				item.IconURL = res.Value
				g[slot] = item
			}
		}
	}
	run.state.ParsedGear = g
}

func (s *Service) syncEncounters(ctx context.Context, run *syncRun) {
	switch {
	case s.encounters == nil:
		s.mark(run, SourceEncounters, types.SourceDisabled)
		return
	case !s.due(run, run.state.LastSync.Encounters, s.ttls.Encounters):
		s.mark(run, SourceEncounters, types.SourceSkipped)
		return
	}
	res := s.encounters.Encounters(ctx, run.key)
	s.record(ctx, run, SourceEncounters, res.Status, res.Err)
	if !res.Ok() {
		return
	}

	current := s.differ.Snapshot(res.Value)
	out := s.differ.Apply(current, encounter.Baseline{
		Snapshot: run.state.RaidSnapshot,
		Week:     run.state.RaidSnapshotWeek,
	}, run.week, run.resetUnix)

	run.state.RaidSnapshot = out.Baseline.Snapshot
	run.state.RaidSnapshotWeek = out.Baseline.Week
	run.state.LastSync.Encounters = run.now
	run.entry.EncounterKills = out.Kills
	run.result.SnapshotCase = out.Case.String()
	metrics.RecordSnapshotCase(out.Case.String())
	run.log.Debug(ctx, "encounter snapshot applied",
		logger.String("case", out.Case.String()),
		logger.Int("normal", out.Kills.Normal),
		logger.Int("heroic", out.Kills.Heroic),
		logger.Int("mythic", out.Kills.Mythic))
}

func (s *Service) syncCombatLog(ctx context.Context, run *syncRun) {
	switch {
	case s.combatLog == nil:
		s.mark(run, SourceCombatLog, types.SourceDisabled)
		s.mark(run, SourceParses, types.SourceDisabled)
		return
	case !s.due(run, run.state.LastSync.CombatLog, s.ttls.CombatLog):
		s.mark(run, SourceCombatLog, types.SourceSkipped)
		s.mark(run, SourceParses, types.SourceSkipped)
		return
	}

	res := s.combatLog.Kills(ctx, run.key)
	s.record(ctx, run, SourceCombatLog, res.Status, res.Err)
	if res.Ok() {
		run.entry.CombatLogKills = combatlog.Attribute(res.Value, time.Unix(run.resetUnix, 0).UTC(), run.now)
		run.state.LastSync.CombatLog = run.now
	}
	if res.Status == upstream.StatusError && upstream.Retryable(res.Err) {
		s.mark(run, SourceParses, types.SourceSkipped)
		return
	}

	parses := s.combatLog.Parses(ctx, run.key)
	s.record(ctx, run, SourceParses, parses.Status, parses.Err)
	if parses.Ok() {
		run.state.Parses = parses.Value
	}
}

func (s *Service) syncStats(ctx context.Context, run *syncRun) {
	switch {
	case s.stats == nil:
		s.mark(run, SourceStats, types.SourceDisabled)
		return
	case !s.due(run, run.state.LastSync.Stats, s.ttls.Stats):
		s.mark(run, SourceStats, types.SourceSkipped)
		return
	}
	res := s.stats.Statistics(ctx, run.key)
	s.record(ctx, run, SourceStats, res.Status, res.Err)
	if !res.Ok() {
		return
	}
	st := res.Value
	run.state.Stats = &st
	run.state.LastSync.Stats = run.now
}

// errorKind maps an upstream error onto a metrics label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, upstream.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, upstream.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, upstream.ErrMalformed):
		return "malformed"
	case errors.Is(err, upstream.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, upstream.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
