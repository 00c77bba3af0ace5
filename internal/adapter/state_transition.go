package adapter

import (
	"log/slog"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// Evidence carries the artifacts a stage executor produced, recorded
// together with the status transition they justify.
type Evidence struct {
	HashFile    string
	HashLogFile string
	Verified    *m.VerifyStats
}

var sourceTransitions = map[m.SourceStatus][]m.SourceStatus{
	m.Unhashed:   {m.Hashing},
	m.Hashing:    {m.Hashed, m.HashFailed, m.Unhashed},
	m.Hashed:     {m.Hashing},
	m.HashFailed: {m.Hashing},
}

var targetTransitions = map[m.TargetStatus][]m.TargetStatus{
	m.Pending:        {m.Transferring},
	m.Transferring:   {m.Transferred, m.TransferFailed, m.Pending},
	m.Transferred:    {m.Verifying, m.Transferring},
	m.TransferFailed: {m.Transferring},
	m.Verifying:      {m.Verified, m.VerifyFailed, m.Transferred},
	m.Verified:       {m.Verifying},
	m.VerifyFailed:   {m.Verifying},
}

func allowed[T comparable](table map[T][]T, from, to T) bool {
	// Re-asserting the current status is always fine; it happens when a
	// run resumes work that a crash left mid-stage.
	if from == to {
		return true
	}

	for _, s := range table[from] {
		if s == to {
			return true
		}
	}

	return false
}

// TransitionSource moves a source to status, persisting before the call
// returns. Out-of-order transitions are a ConflictError and leave both the
// in-memory and on-disk state untouched.
func (s *Store) TransitionSource(ref string, status m.SourceStatus, ev Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.sourceByRef(ref)
	if err != nil {
		return err
	}

	if !allowed(sourceTransitions, src.Status, status) {
		return m.Conflictf("source %q: cannot go %s -> %s", src.Path, src.Status, status)
	}

	prev := *src
	src.Status = status

	if ev.HashFile != "" {
		src.HashFile = ev.HashFile
	}

	if ev.HashLogFile != "" {
		src.HashLogFile = ev.HashLogFile
	}

	if err := s.persist(); err != nil {
		*src = prev
		return err
	}

	slog.Debug("source transition", "path", src.Path, "status", status)

	return nil
}

// TransitionTarget moves a target to status under the same dependency rules
// the scheduler honors: nothing transfer-related may proceed before the
// owning source is hashed.
func (s *Store) TransitionTarget(sourceRef, targetRef string, status m.TargetStatus, ev Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.sourceByRef(sourceRef)
	if err != nil {
		return err
	}

	tgt, err := targetByRef(src, targetRef)
	if err != nil {
		return err
	}

	if !allowed(targetTransitions, tgt.Status, status) {
		return m.Conflictf("target %q: cannot go %s -> %s", tgt.Path, tgt.Status, status)
	}

	if status == m.Transferring && src.Status != m.Hashed {
		return m.Conflictf(
			"target %q: transfer requires source %q to be hashed (is %s)",
			tgt.Path, src.Path, src.Status)
	}

	prev := *tgt
	tgt.Status = status

	if ev.Verified != nil {
		tgt.Verified = ev.Verified
	}

	if err := s.persist(); err != nil {
		*tgt = prev
		return err
	}

	slog.Debug("target transition", "source", src.Path, "path", tgt.Path, "status", status)

	return nil
}

// Modify applies fn to the entity resolved from sourceRef (and targetRef if
// non-empty) under the mutation lock and persists the outcome. Used by the
// modify command for the handful of user-editable fields.
func (s *Store) Modify(sourceRef, targetRef string, fn func(src *m.Source, tgt *m.Target) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.sourceByRef(sourceRef)
	if err != nil {
		return err
	}

	var tgt *m.Target
	if targetRef != "" {
		if tgt, err = targetByRef(src, targetRef); err != nil {
			return err
		}
	}

	prevSrc := *src

	var prevTgt m.Target
	if tgt != nil {
		prevTgt = *tgt
	}

	restore := func() {
		*src = prevSrc
		if tgt != nil {
			*tgt = prevTgt
		}
	}

	if err := fn(src, tgt); err != nil {
		restore()
		return err
	}

	if err := s.checkAliasUnique(src, tgt); err != nil {
		restore()
		return err
	}

	if err := s.persist(); err != nil {
		restore()
		return err
	}

	return nil
}

// checkAliasUnique re-asserts the staging-time alias rules after an edit:
// a source alias is unique among all sources, a target alias among the
// targets of its source, and neither may shadow a recorded path.
func (s *Store) checkAliasUnique(src *m.Source, tgt *m.Target) error {
	if src.Alias != "" {
		for _, other := range s.state.Sources {
			if other == src {
				continue
			}

			if other.Alias == src.Alias || other.Path == src.Alias {
				return m.Conflictf("source alias %q already in use", src.Alias)
			}
		}
	}

	if tgt != nil && tgt.Alias != "" {
		for _, other := range src.Targets {
			if other == tgt {
				continue
			}

			if other.Alias == tgt.Alias || other.Path == tgt.Alias {
				return m.Conflictf("target alias %q already in use on %q", tgt.Alias, src.Path)
			}
		}
	}

	return nil
}
