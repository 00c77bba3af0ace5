package adapter

import (
	m "coldstage.dev/pkg/coldstage/internal/model"
)

// ResolutionState tags the outcome of a path-or-alias lookup so callers
// handle every case explicitly instead of branching on "try path, then try
// alias".
type ResolutionState int

// Resolution outcomes.
const (
	RefNotFound ResolutionState = iota
	RefSource
	RefTarget
	RefAmbiguous
)

// Resolution is the result of resolving a user-supplied reference. For
// RefTarget both Source and Target are set; for RefSource only Source.
type Resolution struct {
	State  ResolutionState
	Source *m.Source
	Target *m.Target
}

// Err converts non-found outcomes into their error kinds.
func (r Resolution) Err(ref string) error {
	switch r.State {
	case RefNotFound:
		return &m.NotFoundError{Ref: ref}
	case RefAmbiguous:
		return &m.AliasConflictError{Ref: ref}
	default:
		return nil
	}
}

// Resolve looks up ref across sources and targets. A normalized path can
// match at most one entity (registration rejects duplicates), but an alias
// may collide across kinds; such a reference is reported ambiguous rather
// than silently picking one.
func (s *Store) Resolve(ref string) Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := m.NormalizePath(ref)

	var matches []Resolution

	for _, src := range s.state.Sources {
		if src.Path == norm || (src.Alias != "" && src.Alias == ref) {
			matches = append(matches, Resolution{State: RefSource, Source: src})
		}

		for _, tgt := range src.Targets {
			if tgt.Path == norm || (tgt.Alias != "" && tgt.Alias == ref) {
				matches = append(matches, Resolution{State: RefTarget, Source: src, Target: tgt})
			}
		}
	}

	switch len(matches) {
	case 0:
		return Resolution{State: RefNotFound}
	case 1:
		return matches[0]
	default:
		return Resolution{State: RefAmbiguous}
	}
}

// ResolveSource resolves ref among sources only.
func (s *Store) ResolveSource(ref string) (*m.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sourceByRef(ref)
}

// ResolveTarget resolves targetRef among the targets of the source named by
// sourceRef.
func (s *Store) ResolveTarget(sourceRef, targetRef string) (*m.Source, *m.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.sourceByRef(sourceRef)
	if err != nil {
		return nil, nil, err
	}

	tgt, err := targetByRef(src, targetRef)
	if err != nil {
		return nil, nil, err
	}

	return src, tgt, nil
}
