package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/okian/vaultsync/internal/domain/model"
)

// stateFileVersion is bumped when the on-disk layout changes.
const stateFileVersion = 1

// stateFile is the on-disk layout.
type stateFile struct {
	Version int                             `cbor:"version"`
	States  []*model.CharacterProgressState `cbor:"states"`
	Entries []*model.WeeklyVaultEntry       `cbor:"entries"`
}

// encMode produces Core Deterministic Encoding so the same store always
// writes the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	encMode, err = opts.EncMode()
	if err != nil {
		panic("repository: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("repository: CBOR decoder initialization failed: " + err.Error())
	}
}

// Load replaces the store contents with the state file. A missing file
// leaves the store empty.
func (s *MemoryStore) Load(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrStateFile, s.path, err)
	}

	var f stateFile
	if err := decMode.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrStateFile, s.path, err)
	}
	if f.Version != stateFileVersion {
		return fmt.Errorf("%w: %s has version %d, want %d", ErrStateFile, s.path, f.Version, stateFileVersion)
	}

	states := make(map[string]*model.CharacterProgressState, len(f.States))
	for _, st := range f.States {
		if st != nil && st.Key.Name != "" {
			states[st.Key.String()] = st
		}
	}
	entries := make(map[string]map[int]*model.WeeklyVaultEntry)
	for _, e := range f.Entries {
		if e == nil || e.Key.Name == "" {
			continue
		}
		id := e.Key.String()
		if entries[id] == nil {
			entries[id] = make(map[int]*model.WeeklyVaultEntry)
		}
		entries[id][e.Week] = e
	}

	s.mu.Lock()
	s.states = states
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Flush writes the store to the state file, replacing it atomically.
func (s *MemoryStore) Flush(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encMode.Marshal(s.snapshot())
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStateFile, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStateFile, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrStateFile, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrStateFile, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrStateFile, err)
	}
	return nil
}

// snapshot copies the store into the on-disk layout, ordered by key and week.
func (s *MemoryStore) snapshot() stateFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := stateFile{Version: stateFileVersion}
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		f.States = append(f.States, s.states[id].Clone())
	}

	ids = ids[:0]
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		weeks := make([]int, 0, len(s.entries[id]))
		for w := range s.entries[id] {
			weeks = append(weeks, w)
		}
		sort.Ints(weeks)
		if s.retainWeeks > 0 && len(weeks) > s.retainWeeks {
			weeks = weeks[len(weeks)-s.retainWeeks:]
		}
		for _, w := range weeks {
			f.Entries = append(f.Entries, s.entries[id][w].Clone())
		}
	}
	return f
}
