// Package repository defines the baseline store interface and an in-memory
// implementation that can persist itself to a state file.
package repository

import (
	"context"

	"github.com/okian/vaultsync/internal/domain/model"
)

// Store provides read/write access to per-character baselines and weekly
// vault entries. Values are copied in and out, never shared.
type Store interface {
	// State returns the stored baseline of a character.
	// Returns ErrNotFound if the character is unknown.
	State(ctx context.Context, key model.CharacterKey) (*model.CharacterProgressState, error)
	// SaveState replaces the baseline of state.Key.
	SaveState(ctx context.Context, state *model.CharacterProgressState) error

	// Entry returns the vault entry of a character for a week.
	// Returns ErrNotFound if none was saved.
	Entry(ctx context.Context, key model.CharacterKey, week int) (*model.WeeklyVaultEntry, error)
	// SaveEntry replaces the entry of (entry.Key, entry.Week).
	SaveEntry(ctx context.Context, entry *model.WeeklyVaultEntry) error

	// Count returns the number of characters with a stored baseline.
	Count(ctx context.Context) int
}
