// Package types contains the result shapes printed by the command line.
package types

import "github.com/okian/vaultsync/internal/domain/model"

// Source outcomes reported per sync.
const (
	SourceOK       = "ok"
	SourceNoData   = "no_data"
	SourceError    = "error"
	SourceSkipped  = "skipped"
	SourceDisabled = "disabled"
)

// Report is the outcome of syncing one character.
type Report struct {
	RunID           string            `json:"run_id"`
	Character       string            `json:"character"`
	Week            int               `json:"week"`
	ItemLevel       float64           `json:"item_level"`
	TargetItemLevel int               `json:"target_item_level"`
	MythicPlusScore float64           `json:"mythic_plus_score"`
	RaidKills       model.KillCounts  `json:"raid_kills"`
	KeyLevels       []int             `json:"key_levels"`
	Vault           model.VaultResult `json:"vault"`
	SnapshotCase    string            `json:"snapshot_case,omitempty"`
	Sources         map[string]string `json:"sources"`
	Error           string            `json:"error,omitempty"`
}

// Failed reports whether the sync failed as a whole.
func (r Report) Failed() bool { return r.Error != "" }

// Degraded reports whether any source errored.
func (r Report) Degraded() bool {
	for _, s := range r.Sources {
		if s == SourceError {
			return true
		}
	}
	return false
}

// BatchReport summarizes one pass over the roster.
type BatchReport struct {
	Reports   []Report `json:"reports"`
	Succeeded int      `json:"succeeded"`
	Degraded  int      `json:"degraded"`
	Failed    int      `json:"failed"`
}

// Add appends r and updates the counters.
func (b *BatchReport) Add(r Report) {
	b.Reports = append(b.Reports, r)
	switch {
	case r.Failed():
		b.Failed++
	case r.Degraded():
		b.Degraded++
	default:
		b.Succeeded++
	}
}
