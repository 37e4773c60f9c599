package vault

import "github.com/okian/vaultsync/internal/domain/model"

var raidRewardIlvl = map[model.Difficulty]int{
	model.DifficultyLFR:    239,
	model.DifficultyNormal: 252,
	model.DifficultyHeroic: 265,
	model.DifficultyMythic: 278,
}

// RaidThresholds are the boss kills needed for each raid slot.
var RaidThresholds = [3]int{2, 4, 6}

// Cumulative folds harder difficulties into easier ones: a mythic kill also
// counts as a heroic, normal and LFR kill.
func Cumulative(k model.KillCounts) model.KillCounts {
	var out model.KillCounts
	running := 0
	for _, d := range model.HardestFirst() {
		running += k.Get(d)
		out.Set(d, running)
	}
	return out
}

// RaidSlots maps weekly raid kills onto the three raid slots. Each slot takes
// the hardest difficulty whose cumulative kills meet its threshold.
func RaidSlots(kills model.KillCounts) [3]model.RewardSlot {
	cum := Cumulative(kills)
	var slots [3]model.RewardSlot
	for i, threshold := range RaidThresholds {
		for _, d := range model.HardestFirst() {
			if cum.Get(d) >= threshold {
				slots[i] = model.RewardSlot{Unlocked: true, RewardIlvl: raidRewardIlvl[d], Source: string(d)}
				break
			}
		}
	}
	return slots
}
