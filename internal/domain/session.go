package domain

import (
	"context"

	"coldstage.dev/pkg/coldstage/internal/adapter"
	m "coldstage.dev/pkg/coldstage/internal/model"
)

// Session is the concurrency-safe façade for interactive use: the scheduler
// loop runs in its own goroutine while sources and targets keep being
// registered. New work goes through the store's mutation lock, so a running
// tick never observes a half-built record; it becomes runnable from the
// next tick without draining the pipeline first.
type Session struct {
	store *adapter.Store
	disks adapter.DiskArbiter
	sched *Scheduler

	done   chan struct{}
	report *m.RunReport
	runErr error
}

// NewSession builds a session over an already-constructed scheduler. The
// scheduler should be configured with WithLinger so it waits for work
// instead of returning when the plan drains.
func NewSession(store *adapter.Store, disks adapter.DiskArbiter, sched *Scheduler) *Session {
	return &Session{
		store: store,
		disks: disks,
		sched: sched,
		done:  make(chan struct{}),
	}
}

// Start launches the scheduler loop over all staged work.
func (s *Session) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		s.report, s.runErr = s.sched.Run(ctx, ScopeAll())
	}()
}

// AddSource stages a directory while the scheduler runs; it becomes
// runnable on the next tick.
func (s *Session) AddSource(path, alias, algorithm string) error {
	err := StageSource(s.store, s.disks, &m.Source{
		Path:          path,
		Alias:         alias,
		HashAlgorithm: algorithm,
	})
	if err != nil {
		return err
	}

	s.sched.Kick()

	return nil
}

// AddTarget registers a destination for an already-staged source while the
// scheduler runs.
func (s *Session) AddTarget(sourceRef, path, alias string, verify bool) error {
	err := RegisterTarget(s.store, s.disks, sourceRef, &m.Target{
		Path:   path,
		Alias:  alias,
		Verify: verify,
	})
	if err != nil {
		return err
	}

	s.sched.Kick()

	return nil
}

// Snapshot returns the current state for display, safe to call while
// operations run.
func (s *Session) Snapshot() *m.State {
	return s.store.Snapshot()
}

// Stop prevents further dispatch, lets in-flight operations finish and
// returns the final report of the session's run.
func (s *Session) Stop() (*m.RunReport, error) {
	s.sched.Stop()
	<-s.done

	return s.report, s.runErr
}
