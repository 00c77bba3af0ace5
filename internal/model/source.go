// Package model contains the persisted data model shared by the coldstage
// state store, scheduler and UI layers.
package model

import "path/filepath"

// SourceStatus tracks how far a staged source has progressed through the
// hashing stage.
type SourceStatus string

// Source statuses.
const (
	Unhashed   SourceStatus = "unhashed"
	Hashing    SourceStatus = "hashing"
	Hashed     SourceStatus = "hashed"
	HashFailed SourceStatus = "hash-failed"
)

// Source is a staged directory that should be backed up to one or more
// targets. The normalized absolute path is its unique key.
type Source struct {
	Path          string       `json:"path"`
	Alias         string       `json:"alias,omitempty"`
	HashAlgorithm string       `json:"hash_algorithm"`
	HashFile      string       `json:"hash_file,omitempty"`
	HashLogFile   string       `json:"hash_log_file,omitempty"`
	Status        SourceStatus `json:"status"`
	// Allowlist and Blocklist are glob patterns matched against paths
	// relative to Path. Allowlist wins when both are set.
	Allowlist []string  `json:"allowlist,omitempty"`
	Blocklist []string  `json:"blocklist,omitempty"`
	Targets   []*Target `json:"targets"`
}

// NormalizePath turns any path into the canonical absolute form used as an
// entity key in the state store.
func NormalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	return filepath.Clean(abs)
}

// Target looks up a target of this source by normalized path.
func (s *Source) Target(path string) *Target {
	for _, t := range s.Targets {
		if t.Path == path {
			return t
		}
	}

	return nil
}

// Clone returns a deep copy, so snapshots handed to the scheduler or UI can
// never alias store-owned memory.
func (s *Source) Clone() *Source {
	dup := *s
	dup.Allowlist = append([]string(nil), s.Allowlist...)
	dup.Blocklist = append([]string(nil), s.Blocklist...)
	dup.Targets = make([]*Target, 0, len(s.Targets))

	for _, t := range s.Targets {
		dup.Targets = append(dup.Targets, t.Clone())
	}

	return &dup
}

// State is the whole persisted record: every staged source with its targets,
// in staging order.
type State struct {
	Version int       `json:"version"`
	Sources []*Source `json:"sources"`
}

// Source looks up a source by normalized path.
func (st *State) Source(path string) *Source {
	for _, s := range st.Sources {
		if s.Path == path {
			return s
		}
	}

	return nil
}

// Clone deep-copies the full state.
func (st *State) Clone() *State {
	dup := &State{Version: st.Version, Sources: make([]*Source, 0, len(st.Sources))}
	for _, s := range st.Sources {
		dup.Sources = append(dup.Sources, s.Clone())
	}

	return dup
}
