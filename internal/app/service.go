// Package service wires the upstream clients, the baseline store and the
// reconciliation engine into per-character syncs.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vaultsync/internal/adapters/repository"
	"github.com/okian/vaultsync/internal/adapters/upstream"
	"github.com/okian/vaultsync/internal/domain/encounter"
	"github.com/okian/vaultsync/internal/domain/inflight"
	"github.com/okian/vaultsync/internal/domain/model"
	"github.com/okian/vaultsync/internal/domain/vault"
	"github.com/okian/vaultsync/pkg/logger"
)

// GearSource returns equipped items.
type GearSource interface {
	Equipment(ctx context.Context, key model.CharacterKey) upstream.Result[[]model.EquippedItem]
}

// EncounterSource returns cumulative raid encounter totals.
type EncounterSource interface {
	Encounters(ctx context.Context, key model.CharacterKey) upstream.Result[[]model.EncounterRecord]
}

// StatsSource returns character statistics.
type StatsSource interface {
	Statistics(ctx context.Context, key model.CharacterKey) upstream.Result[model.CharacterStats]
}

// IconSource resolves item icons the leaderboard did not publish.
type IconSource interface {
	ItemIcon(ctx context.Context, region model.Region, itemID int) upstream.Result[string]
}

// LeaderboardSource returns the leaderboard profile.
type LeaderboardSource interface {
	Profile(ctx context.Context, key model.CharacterKey) upstream.Result[model.LeaderboardProfile]
}

// CombatLogSource returns boss kills and parse summaries.
type CombatLogSource interface {
	Kills(ctx context.Context, key model.CharacterKey) upstream.Result[model.CombatLogReport]
	Parses(ctx context.Context, key model.CharacterKey) upstream.Result[map[string]model.BossParse]
}

// TTLs gates how often each source is refetched. Zero refetches every sync.
type TTLs struct {
	Gear        time.Duration
	Encounters  time.Duration
	CombatLog   time.Duration
	Leaderboard time.Duration
	Stats       time.Duration
}

// DefaultTTLs are the refresh intervals used when none are configured.
var DefaultTTLs = TTLs{
	Encounters:  time.Hour,
	CombatLog:   time.Hour,
	Leaderboard: 6 * time.Hour,
}

// Service runs syncs. It holds no per-character state of its own; baselines
// live in the store.
type Service struct {
	mu      sync.Mutex
	started bool

	store      repository.Store
	guard      inflight.Guard
	differ     *encounter.Differ
	reconciler *vault.Reconciler
	calculator *vault.Calculator

	gear        GearSource
	encounters  EncounterSource
	stats       StatsSource
	icons       IconSource
	leaderboard LeaderboardSource
	combatLog   CombatLogSource

	ttls   TTLs
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStore sets the baseline store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithGuard sets the in-flight guard.
func WithGuard(g inflight.Guard) Option {
	return func(s *Service) {
		if g != nil {
			s.guard = g
		}
	}
}

// WithDiffer sets the encounter snapshot differ.
func WithDiffer(d *encounter.Differ) Option {
	return func(s *Service) {
		if d != nil {
			s.differ = d
		}
	}
}

// WithReconciler sets the raid kill reconciler.
func WithReconciler(r *vault.Reconciler) Option {
	return func(s *Service) {
		if r != nil {
			s.reconciler = r
		}
	}
}

// WithCalculator sets the vault calculator.
func WithCalculator(c *vault.Calculator) Option {
	return func(s *Service) {
		if c != nil {
			s.calculator = c
		}
	}
}

// WithTTLs sets the per-source refresh intervals.
func WithTTLs(t TTLs) Option {
	return func(s *Service) {
		s.ttls = t
	}
}

// WithGearSource sets the equipment source.
func WithGearSource(src GearSource) Option {
	return func(s *Service) { s.gear = src }
}

// WithEncounterSource sets the encounter totals source.
func WithEncounterSource(src EncounterSource) Option {
	return func(s *Service) { s.encounters = src }
}

// WithStatsSource sets the statistics source.
func WithStatsSource(src StatsSource) Option {
	return func(s *Service) { s.stats = src }
}

// WithIconSource sets the item icon source.
func WithIconSource(src IconSource) Option {
	return func(s *Service) { s.icons = src }
}

// WithLeaderboardSource sets the leaderboard source.
func WithLeaderboardSource(src LeaderboardSource) Option {
	return func(s *Service) { s.leaderboard = src }
}

// WithCombatLogSource sets the combat-log source.
func WithCombatLogSource(src CombatLogSource) Option {
	return func(s *Service) { s.combatLog = src }
}

// New constructs a Service. Sources left unset are reported as disabled.
func New(opts ...Option) *Service {
	s := &Service{
		store:      repository.NewMemoryStore(),
		guard:      inflight.NewInMemoryGuard(),
		differ:     encounter.NewDiffer(),
		reconciler: vault.NewReconciler(),
		ttls:       DefaultTTLs,
		now:        time.Now,
		logger:     logger.Nop(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}
	if s.calculator == nil {
		s.calculator = vault.NewCalculator(vault.WithLogger(s.logger.Named("vault")))
	}
	return s
}

type loader interface {
	Load(ctx context.Context) error
}

type flusher interface {
	Flush(ctx context.Context) error
}

// Start loads persisted baselines when the store supports it.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if l, ok := s.store.(loader); ok {
		if err := l.Load(ctx); err != nil {
			return err
		}
	}
	s.started = true
	s.logger.Info(ctx, "sync service started",
		logger.Int("characters", s.store.Count(ctx)),
		logger.String("raid_instance", s.differ.Instance()),
	)
	return nil
}

// Stop persists baselines when the store supports it.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	if f, ok := s.store.(flusher); ok {
		if err := f.Flush(ctx); err != nil {
			s.logger.Error(ctx, "failed to persist baselines", logger.Error(err))
			return err
		}
	}
	s.logger.Info(ctx, "sync service stopped")
	return nil
}
