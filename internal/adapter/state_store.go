package adapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

const stateVersion = 1

// Store is the durable record of every source, target and their statuses —
// the sole source of truth for what has and hasn't run. All mutations take
// one internal lock and persist to disk before returning, so a crash between
// stages leaves state resumable at the last committed transition.
type Store struct {
	mu    sync.Mutex
	path  string
	state *m.State
}

// LoadStore reads the state file at path. A missing file yields an empty
// store (first invocation); an unreadable or corrupt file is a
// PersistenceError and fatal for the invocation.
func LoadStore(path string) (*Store, error) {
	store := &Store{
		path:  path,
		state: &m.State{Version: stateVersion},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}

	if err != nil {
		return nil, &m.PersistenceError{Path: path, Err: err}
	}

	if err := json.Unmarshal(raw, store.state); err != nil {
		return nil, &m.PersistenceError{Path: path, Err: err}
	}

	if store.state.Version != stateVersion {
		return nil, &m.PersistenceError{
			Path: path,
			Err:  fmt.Errorf("unsupported state version %d", store.state.Version),
		}
	}

	return store, nil
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Dir returns the directory holding the state file. Hash logs are written
// beside it.
func (s *Store) Dir() string {
	return filepath.Dir(s.path)
}

// persist writes the whole state atomically: marshal, write a sibling temp
// file, rename over the old state. Called with s.mu held.
func (s *Store) persist() error {
	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return &m.PersistenceError{Path: s.path, Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return &m.PersistenceError{Path: s.path, Err: err}
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return &m.PersistenceError{Path: s.path, Err: err}
	}

	return nil
}

// SaveCrashCopy dumps the current state next to the state file with a
// `_crash` suffix so a failed run never costs the bookkeeping done so far.
func (s *Store) SaveCrashCopy() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext := filepath.Ext(s.path)
	base := s.path[:len(s.path)-len(ext)]
	crashPath := UniqueFilename(base + "_crash" + ext)

	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return "", &m.PersistenceError{Path: crashPath, Err: err}
	}

	if err := os.WriteFile(crashPath, raw, 0o644); err != nil {
		return "", &m.PersistenceError{Path: crashPath, Err: err}
	}

	return crashPath, nil
}

// Snapshot returns a deep copy of the full state for planning or display.
func (s *Store) Snapshot() *m.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Clone()
}

// AddSource registers a staged source. Duplicate paths and duplicate source
// aliases are rejected; aliases may also not collide with any staged path.
func (s *Store) AddSource(src *m.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src.Path = m.NormalizePath(src.Path)
	if src.Status == "" {
		src.Status = m.Unhashed
	}

	for _, existing := range s.state.Sources {
		if existing.Path == src.Path {
			return m.Conflictf("source %q already staged", src.Path)
		}

		if src.Alias != "" && (existing.Alias == src.Alias || existing.Path == src.Alias) {
			return m.Conflictf("source alias %q already in use", src.Alias)
		}
	}

	s.state.Sources = append(s.state.Sources, src)
	if err := s.persist(); err != nil {
		s.state.Sources = s.state.Sources[:len(s.state.Sources)-1]
		return err
	}

	slog.Info("staged source", "path", src.Path, "alias", src.Alias)

	return nil
}

// AddTarget registers a target against the source named by sourceRef (path
// or alias). Target aliases are scoped per source.
func (s *Store) AddTarget(sourceRef string, tgt *m.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.sourceByRef(sourceRef)
	if err != nil {
		return err
	}

	tgt.Path = m.NormalizePath(tgt.Path)
	if tgt.Status == "" {
		tgt.Status = m.Pending
	}

	for _, existing := range src.Targets {
		if existing.Path == tgt.Path {
			return m.Conflictf("target %q already registered on %q", tgt.Path, src.Path)
		}

		if tgt.Alias != "" && (existing.Alias == tgt.Alias || existing.Path == tgt.Alias) {
			return m.Conflictf("target alias %q already in use on %q", tgt.Alias, src.Path)
		}
	}

	src.Targets = append(src.Targets, tgt)
	if err := s.persist(); err != nil {
		src.Targets = src.Targets[:len(src.Targets)-1]
		return err
	}

	slog.Info("added target", "source", src.Path, "path", tgt.Path, "alias", tgt.Alias)

	return nil
}

func (s *Store) sourceByRef(ref string) (*m.Source, error) {
	norm := m.NormalizePath(ref)
	for _, src := range s.state.Sources {
		if src.Path == norm || (src.Alias != "" && src.Alias == ref) {
			return src, nil
		}
	}

	return nil, &m.NotFoundError{Ref: ref}
}

func targetByRef(src *m.Source, ref string) (*m.Target, error) {
	norm := m.NormalizePath(ref)
	for _, tgt := range src.Targets {
		if tgt.Path == norm || (tgt.Alias != "" && tgt.Alias == ref) {
			return tgt, nil
		}
	}

	return nil, &m.NotFoundError{Ref: ref}
}
