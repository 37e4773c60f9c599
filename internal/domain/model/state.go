package model

import (
	"fmt"
	"strings"
	"time"
)

// CharacterKey identifies a character. It never changes after creation.
type CharacterKey struct {
	Name   string `json:"name" koanf:"name"`
	Realm  string `json:"realm" koanf:"realm"`
	Region Region `json:"region" koanf:"region"`
}

// String returns name-realm-region in lower case.
func (k CharacterKey) String() string {
	return strings.ToLower(fmt.Sprintf("%s-%s-%s", k.Name, k.Realm, k.Region))
}

// SyncTimes records when each upstream source was last fetched successfully.
type SyncTimes struct {
	Gear        time.Time `json:"gear"`
	Encounters  time.Time `json:"encounters"`
	CombatLog   time.Time `json:"combat_log"`
	Leaderboard time.Time `json:"leaderboard"`
	Stats       time.Time `json:"stats"`
}

// CharacterProgressState is the stored baseline of a character.
type CharacterProgressState struct {
	Key              CharacterKey            `json:"key"`
	ParsedGear       Gear                    `json:"parsed_gear"`
	CurrentIlvl      float64                 `json:"current_ilvl"`
	RaidSnapshot     Snapshot                `json:"raid_snapshot,omitempty"`
	RaidSnapshotWeek *int                    `json:"raid_snapshot_week,omitempty"`
	MythicPlusScore  float64                 `json:"mythic_plus_score"`
	RaidProgression  map[string]RaidProgress `json:"raid_progression,omitempty"`
	Stats            *CharacterStats         `json:"stats,omitempty"`
	Parses           map[string]BossParse    `json:"parses,omitempty"`
	LastSync         SyncTimes               `json:"last_sync"`
}

// NewCharacterProgressState returns the state of a freshly registered character.
func NewCharacterProgressState(key CharacterKey) *CharacterProgressState {
	return &CharacterProgressState{
		Key:        key,
		ParsedGear: EmptyGear(),
	}
}

// Clone returns a deep copy.
func (s *CharacterProgressState) Clone() *CharacterProgressState {
	out := *s
	out.RaidSnapshot = s.RaidSnapshot.Clone()
	if s.RaidSnapshotWeek != nil {
		w := *s.RaidSnapshotWeek
		out.RaidSnapshotWeek = &w
	}
	if s.RaidProgression != nil {
		out.RaidProgression = make(map[string]RaidProgress, len(s.RaidProgression))
		for k, v := range s.RaidProgression {
			out.RaidProgression[k] = v
		}
	}
	if s.Stats != nil {
		st := *s.Stats
		out.Stats = &st
	}
	if s.Parses != nil {
		out.Parses = make(map[string]BossParse, len(s.Parses))
		for k, v := range s.Parses {
			out.Parses[k] = v
		}
	}
	return &out
}

// WeeklyVaultEntry is the activity of one character in one week.
type WeeklyVaultEntry struct {
	Key  CharacterKey `json:"key"`
	Week int          `json:"week"`
	// RaidKills is the reconciled weekly count, recomputed every sync.
	RaidKills KillCounts `json:"raid_kills"`
	// EncounterKills and CombatLogKills are the latest per-source counts.
	EncounterKills KillCounts `json:"encounter_kills"`
	CombatLogKills KillCounts `json:"combat_log_kills"`
	MythicPlusRuns []int      `json:"mythic_plus_runs"`
	DelveRuns      []int      `json:"delve_runs"`
	// HighestDelve is consulted only when DelveRuns is empty.
	HighestDelve int       `json:"highest_delve"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewWeeklyVaultEntry returns an empty entry for key and week.
func NewWeeklyVaultEntry(key CharacterKey, week int) *WeeklyVaultEntry {
	return &WeeklyVaultEntry{Key: key, Week: week}
}

// Clone returns a deep copy.
func (e *WeeklyVaultEntry) Clone() *WeeklyVaultEntry {
	out := *e
	out.MythicPlusRuns = append([]int(nil), e.MythicPlusRuns...)
	out.DelveRuns = append([]int(nil), e.DelveRuns...)
	return &out
}
