package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/vaultsync/internal/domain/model"
	"github.com/okian/vaultsync/pkg/metrics"
)

// MemoryStore is an in-memory Store keyed by CharacterKey.String().
type MemoryStore struct {
	mu          sync.RWMutex
	states      map[string]*model.CharacterProgressState
	entries     map[string]map[int]*model.WeeklyVaultEntry
	path        string
	retainWeeks int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		states:  make(map[string]*model.CharacterProgressState),
		entries: make(map[string]map[int]*model.WeeklyVaultEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State implements Store.
func (s *MemoryStore) State(ctx context.Context, key model.CharacterKey) (*model.CharacterProgressState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key.String()]
	if !ok {
		return nil, fmt.Errorf("%w: state %s", ErrNotFound, key)
	}
	return st.Clone(), nil
}

// SaveState implements Store.
func (s *MemoryStore) SaveState(ctx context.Context, state *model.CharacterProgressState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state == nil || state.Key.Name == "" {
		return fmt.Errorf("%w: state without character", ErrInvalidState)
	}
	s.mu.Lock()
	s.states[state.Key.String()] = state.Clone()
	n := len(s.states)
	s.mu.Unlock()
	metrics.UpdateTrackedCharacters(n)
	return nil
}

// Entry implements Store.
func (s *MemoryStore) Entry(ctx context.Context, key model.CharacterKey, week int) (*model.WeeklyVaultEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key.String()][week]
	if !ok {
		return nil, fmt.Errorf("%w: entry %s week %d", ErrNotFound, key, week)
	}
	return e.Clone(), nil
}

// SaveEntry implements Store.
func (s *MemoryStore) SaveEntry(ctx context.Context, entry *model.WeeklyVaultEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil || entry.Key.Name == "" {
		return fmt.Errorf("%w: entry without character", ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := entry.Key.String()
	weeks, ok := s.entries[id]
	if !ok {
		weeks = make(map[int]*model.WeeklyVaultEntry)
		s.entries[id] = weeks
	}
	weeks[entry.Week] = entry.Clone()
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
