// Package encounter derives weekly raid kills from cumulative boss kill totals.
package encounter

import (
	"github.com/okian/vaultsync/internal/domain/model"
)

// DefaultInstance is the raid tracked when no instance is configured.
const DefaultInstance = "Liberation of Undermine"

// Case identifies which baseline policy produced a result.
type Case int

const (
	// CaseSameWeek diffs against a baseline captured this week.
	CaseSameWeek Case = iota + 1
	// CaseNewWeek diffs against an older baseline and rolls it forward.
	CaseNewWeek
	// CaseFirstSync has no usable baseline and estimates from timestamps.
	CaseFirstSync
)

// String returns a short label for metrics and logs.
func (c Case) String() string {
	switch c {
	case CaseSameWeek:
		return "same_week"
	case CaseNewWeek:
		return "new_week"
	case CaseFirstSync:
		return "first_sync"
	default:
		return "unknown"
	}
}

// BuildSnapshot keeps the records of instance and groups them by difficulty.
// Records with an unknown difficulty are skipped.
func BuildSnapshot(records []model.EncounterRecord, instance string) model.Snapshot {
	s := model.NewSnapshot()
	for _, r := range records {
		if r.Instance != instance {
			continue
		}
		d, ok := model.ParseDifficulty(r.Difficulty)
		if !ok {
			continue
		}
		s.Record(d, r.Boss, model.BossKills{Kills: r.CompletedCount, LastKillTimestamp: r.LastKillTimestamp})
	}
	return s
}

// Diff counts, per difficulty, the bosses whose cumulative kills grew since
// baseline. A boss missing from baseline has a baseline of zero.
func Diff(current, baseline model.Snapshot) model.KillCounts {
	var out model.KillCounts
	for _, d := range model.Difficulties() {
		before := baseline[d]
		n := 0
		for boss, k := range current[d] {
			if k.Kills > before[boss].Kills {
				n++
			}
		}
		out.Set(d, n)
	}
	return out
}

// EstimateFirstWeek counts, per difficulty, the bosses last killed at or after
// resetUnix. Kill timestamps are milliseconds while resetUnix is seconds.
func EstimateFirstWeek(s model.Snapshot, resetUnix int64) model.KillCounts {
	var out model.KillCounts
	boundary := resetUnix * 1000
	for _, d := range model.Difficulties() {
		n := 0
		for _, k := range s[d] {
			if k.LastKillTimestamp != 0 && k.LastKillTimestamp >= boundary {
				n++
			}
		}
		out.Set(d, n)
	}
	return out
}

// Baseline is the stored snapshot and the week it was captured for.
type Baseline struct {
	Snapshot model.Snapshot
	Week     *int
}

// Outcome is the result of applying a fresh snapshot to a baseline.
type Outcome struct {
	Kills    model.KillCounts
	Baseline Baseline
	Case     Case
}

// Differ applies the three baseline policies.
type Differ struct {
	instance string
}

// Option configures a Differ.
type Option func(*Differ)

// WithInstance sets the raid instance whose bosses are tracked.
func WithInstance(name string) Option {
	return func(d *Differ) {
		if name != "" {
			d.instance = name
		}
	}
}

// NewDiffer creates a Differ.
func NewDiffer(opts ...Option) *Differ {
	d := &Differ{instance: DefaultInstance}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Instance returns the tracked raid instance.
func (d *Differ) Instance() string { return d.instance }

// Snapshot builds a snapshot of the tracked instance.
func (d *Differ) Snapshot(records []model.EncounterRecord) model.Snapshot {
	return BuildSnapshot(records, d.instance)
}

// Apply computes this week's kills from current and decides the baseline to
// store next. The stored week never moves backward: a baseline from a later
// week than currentWeek is kept as is and the timestamp estimate is used.
func (d *Differ) Apply(current model.Snapshot, stored Baseline, currentWeek int, resetUnix int64) Outcome {
	hasBaseline := stored.Snapshot != nil && stored.Week != nil
	switch {
	case hasBaseline && *stored.Week == currentWeek:
		return Outcome{
			Kills:    Diff(current, stored.Snapshot),
			Baseline: stored,
			Case:     CaseSameWeek,
		}
	case hasBaseline && *stored.Week < currentWeek:
		week := currentWeek
		return Outcome{
			Kills:    Diff(current, stored.Snapshot),
			Baseline: Baseline{Snapshot: current, Week: &week},
			Case:     CaseNewWeek,
		}
	case hasBaseline:
		return Outcome{
			Kills:    EstimateFirstWeek(current, resetUnix),
			Baseline: stored,
			Case:     CaseFirstSync,
		}
	default:
		week := currentWeek
		return Outcome{
			Kills:    EstimateFirstWeek(current, resetUnix),
			Baseline: Baseline{Snapshot: current, Week: &week},
			Case:     CaseFirstSync,
		}
	}
}
