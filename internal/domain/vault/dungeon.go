package vault

import (
	"fmt"
	"sort"

	"github.com/okian/vaultsync/internal/domain/model"
)

var keyRewardIlvl = map[int]int{
	2: 249, 3: 252, 4: 255, 5: 258, 6: 262, 7: 265,
	8: 268, 9: 272, 10: 275, 11: 278, 12: 278,
}

const maxKeyLevel = 12

// DungeonThresholds are the runs needed for each dungeon slot.
var DungeonThresholds = [3]int{1, 4, 8}

// KeyRewardIlvl returns the vault reward of a key level. Levels of 1 or less
// give nothing and levels above the table are clamped.
func KeyRewardIlvl(level int) int {
	if level <= 1 {
		return 0
	}
	return keyRewardIlvl[min(level, maxKeyLevel)]
}

// DungeonSlots maps completed key levels onto the three dungeon slots. Slot i
// is rewarded from the Nth best key, where N is its threshold.
func DungeonSlots(levels []int) [3]model.RewardSlot {
	valid := make([]int, 0, len(levels))
	for _, l := range levels {
		if l > 0 {
			valid = append(valid, l)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(valid)))

	var slots [3]model.RewardSlot
	for i, threshold := range DungeonThresholds {
		if len(valid) < threshold {
			continue
		}
		level := valid[threshold-1]
		slots[i] = model.RewardSlot{Unlocked: true, RewardIlvl: KeyRewardIlvl(level), Source: fmt.Sprintf("+%d", level)}
	}
	return slots
}
