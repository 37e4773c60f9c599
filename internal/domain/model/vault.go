package model

// RewardSlot is one vault reward opportunity.
type RewardSlot struct {
	Unlocked   bool   `json:"unlocked"`
	RewardIlvl int    `json:"reward_ilvl"`
	Source     string `json:"source"`
}

// VaultResult is the seven-slot weekly vault prediction.
type VaultResult struct {
	Raid    [3]RewardSlot `json:"raid"`
	Dungeon [3]RewardSlot `json:"dungeon"`
	World   [1]RewardSlot `json:"world"`
}

// Unlocked counts the unlocked slots of every kind.
func (v VaultResult) Unlocked() (raid, dungeon, world int) {
	for _, s := range v.Raid {
		if s.Unlocked {
			raid++
		}
	}
	for _, s := range v.Dungeon {
		if s.Unlocked {
			dungeon++
		}
	}
	for _, s := range v.World {
		if s.Unlocked {
			world++
		}
	}
	return raid, dungeon, world
}
