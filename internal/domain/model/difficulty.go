package model

import "strings"

// Difficulty is a raid difficulty tier.
type Difficulty string

// Raid difficulties, easiest first.
const (
	DifficultyLFR    Difficulty = "lfr"
	DifficultyNormal Difficulty = "normal"
	DifficultyHeroic Difficulty = "heroic"
	DifficultyMythic Difficulty = "mythic"
)

// Difficulties lists all difficulties from easiest to hardest.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyLFR, DifficultyNormal, DifficultyHeroic, DifficultyMythic}
}

// HardestFirst lists all difficulties from hardest to easiest.
func HardestFirst() []Difficulty {
	return []Difficulty{DifficultyMythic, DifficultyHeroic, DifficultyNormal, DifficultyLFR}
}

// ParseDifficulty maps an upstream difficulty tag onto a Difficulty.
// The second return value is false for anything unrecognized.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyLFR:
		return DifficultyLFR, true
	case DifficultyNormal:
		return DifficultyNormal, true
	case DifficultyHeroic:
		return DifficultyHeroic, true
	case DifficultyMythic:
		return DifficultyMythic, true
	default:
		return "", false
	}
}

// KillCounts holds one integer per difficulty.
type KillCounts struct {
	LFR    int `json:"lfr"`
	Normal int `json:"normal"`
	Heroic int `json:"heroic"`
	Mythic int `json:"mythic"`
}

// Get returns the count for d. Unknown difficulties return 0.
func (k KillCounts) Get(d Difficulty) int {
	switch d {
	case DifficultyLFR:
		return k.LFR
	case DifficultyNormal:
		return k.Normal
	case DifficultyHeroic:
		return k.Heroic
	case DifficultyMythic:
		return k.Mythic
	default:
		return 0
	}
}

// Set stores n for d. Unknown difficulties are ignored.
func (k *KillCounts) Set(d Difficulty, n int) {
	switch d {
	case DifficultyLFR:
		k.LFR = n
	case DifficultyNormal:
		k.Normal = n
	case DifficultyHeroic:
		k.Heroic = n
	case DifficultyMythic:
		k.Mythic = n
	}
}

// Add increments the count for d by n.
func (k *KillCounts) Add(d Difficulty, n int) {
	k.Set(d, k.Get(d)+n)
}

// Max returns the element-wise maximum of k and o.
func (k KillCounts) Max(o KillCounts) KillCounts {
	var out KillCounts
	for _, d := range Difficulties() {
		out.Set(d, max(k.Get(d), o.Get(d)))
	}
	return out
}

// Total sums all difficulties.
func (k KillCounts) Total() int {
	return k.LFR + k.Normal + k.Heroic + k.Mythic
}
