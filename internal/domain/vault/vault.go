package vault

import (
	"context"

	"github.com/okian/vaultsync/internal/domain/model"
	"github.com/okian/vaultsync/pkg/logger"
)

// Calculator assembles the seven-slot vault result.
type Calculator struct {
	logger logger.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLogger sets the logger used for debug output.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCalculator creates a Calculator.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{logger: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate maps a weekly entry onto the raid, dungeon and world slots.
func (c *Calculator) Calculate(ctx context.Context, e *model.WeeklyVaultEntry) model.VaultResult {
	res := Calculate(e)
	raid, dungeon, world := res.Unlocked()
	c.logger.Debug(ctx, "vault slots calculated",
		logger.String("character", e.Key.String()),
		logger.Int("week", e.Week),
		logger.Int("raid", raid),
		logger.Int("dungeon", dungeon),
		logger.Int("world", world),
	)
	return res
}

// Calculate is the pure composition of the raid, dungeon and world mappings.
func Calculate(e *model.WeeklyVaultEntry) model.VaultResult {
	return model.VaultResult{
		Raid:    RaidSlots(e.RaidKills),
		Dungeon: DungeonSlots(e.MythicPlusRuns),
		World:   [1]model.RewardSlot{WorldSlot(e.DelveRuns, e.HighestDelve)},
	}
}
