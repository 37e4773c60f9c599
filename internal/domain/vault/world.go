package vault

import (
	"fmt"

	"github.com/okian/vaultsync/internal/domain/model"
)

var delveRewardIlvl = map[int]int{
	1: 236, 2: 236, 3: 239, 4: 242, 5: 246, 6: 249,
	7: 252, 8: 255, 9: 258, 10: 262, 11: 265,
}

const maxDelveTier = 11

// DelveRewardIlvl returns the vault reward of a delve tier, clamped to the
// highest tabulated tier.
func DelveRewardIlvl(tier int) int {
	if tier < 1 {
		return 0
	}
	return delveRewardIlvl[min(tier, maxDelveTier)]
}

// WorldSlot maps delve activity onto the world slot. The legacy highest tier
// is only consulted when no runs are recorded.
func WorldSlot(runs []int, legacyHighest int) model.RewardSlot {
	highest := 0
	if len(runs) > 0 {
		for _, r := range runs {
			highest = max(highest, r)
		}
	} else {
		highest = legacyHighest
	}
	if highest <= 0 {
		return model.RewardSlot{Source: "delve"}
	}
	return model.RewardSlot{
		Unlocked:   true,
		RewardIlvl: DelveRewardIlvl(highest),
		Source:     fmt.Sprintf("Delve T%d", highest),
	}
}
