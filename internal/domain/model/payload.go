package model

import "time"

// EquippedItem is one entry of the equipment payload.
type EquippedItem struct {
	SlotType      string
	Level         int
	ItemID        int
	Name          string
	Quality       string
	Sockets       int
	Enchantments  int
	InventoryType string
	DisplayString string
}

// EncounterRecord is one boss row of the encounter totals payload.
type EncounterRecord struct {
	Instance       string
	Difficulty     string
	Boss           string
	CompletedCount int
	// LastKillTimestamp is Unix milliseconds, 0 when absent.
	LastKillTimestamp int64
}

// CombatLogKill is one kill row reported by the combat-log source.
type CombatLogKill struct {
	Boss       string
	Difficulty string
	// Timestamp is Unix milliseconds, 0 when the source only reports totals.
	Timestamp  int64
	TotalKills int
	Parse      float64
}

// CombatLogReport is the result of a combat-log kill query.
type CombatLogReport struct {
	Kills []CombatLogKill
	// Ranged is true when the source already restricted rows to the requested
	// time window.
	Ranged bool
}

// KeyRun is a completed dungeon key.
type KeyRun struct {
	Dungeon     string    `json:"dungeon"`
	Level       int       `json:"level"`
	CompletedAt time.Time `json:"completed_at"`
}

// RaidProgress is the per-raid summary published by the leaderboard source.
type RaidProgress struct {
	Summary      string `json:"summary"`
	TotalBosses  int    `json:"total_bosses"`
	NormalKilled int    `json:"normal_bosses_killed"`
	HeroicKilled int    `json:"heroic_bosses_killed"`
	MythicKilled int    `json:"mythic_bosses_killed"`
}

// IconRef is an icon published for the item currently in a slot.
type IconRef struct {
	ItemID int
	URL    string
}

// LeaderboardProfile is the leaderboard-profile payload.
type LeaderboardProfile struct {
	MythicPlusScore float64
	RaidProgression map[string]RaidProgress
	WeeklyRuns      []KeyRun
	GearIcons       map[Slot]IconRef
}

// KeyLevels returns the level of every weekly run completed at or after
// since. Runs without a completion time are kept.
func (p LeaderboardProfile) KeyLevels(since time.Time) []int {
	out := make([]int, 0, len(p.WeeklyRuns))
	for _, r := range p.WeeklyRuns {
		if !r.CompletedAt.IsZero() && r.CompletedAt.Before(since) {
			continue
		}
		out = append(out, r.Level)
	}
	return out
}

// BossParse is a per-boss performance summary from the combat-log source.
type BossParse struct {
	Best   float64 `json:"best_parse"`
	Median float64 `json:"median_parse"`
	Kills  int     `json:"kills"`
	Spec   string  `json:"spec,omitempty"`
}

// CharacterStats holds primary and secondary stats.
type CharacterStats struct {
	Strength           int     `json:"strength"`
	Agility            int     `json:"agility"`
	Intellect          int     `json:"intellect"`
	Stamina            int     `json:"stamina"`
	CritRating         int     `json:"crit_rating"`
	CritPercent        float64 `json:"crit_rating_pct"`
	HasteRating        int     `json:"haste_rating"`
	HastePercent       float64 `json:"haste_rating_pct"`
	MasteryRating      int     `json:"mastery_rating"`
	MasteryPercent     float64 `json:"mastery_rating_pct"`
	Versatility        int     `json:"versatility"`
	VersatilityPercent float64 `json:"versatility_pct"`
	Armor              int     `json:"armor"`
}
