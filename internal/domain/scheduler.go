package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"coldstage.dev/pkg/coldstage/internal/adapter"
	"coldstage.dev/pkg/coldstage/internal/controller"
	m "coldstage.dev/pkg/coldstage/internal/model"
)

// Scheduler drives staged work through hash, transfer and verify while
// guaranteeing that no disk runs more than one operation at a time.
// Dispatch is level-triggered: the runnable set is recomputed from the
// store after every completion and after every external mutation, never on
// a timer.
type Scheduler struct {
	store       *adapter.Store
	disks       adapter.DiskArbiter
	hasher      adapter.Hasher
	transporter adapter.Transporter
	verifier    adapter.Verifier
	ui          controller.UI

	// kick wakes the dispatch loop after an external mutation.
	kick    chan struct{}
	stopped atomic.Bool
	// linger keeps Run alive when the plan drains, waiting for new work.
	// The interactive session uses this.
	linger bool
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithUI streams per-operation progress to ui.
func WithUI(ui controller.UI) SchedulerOption {
	return func(s *Scheduler) {
		s.ui = ui
	}
}

// WithLinger makes Run wait for new work instead of returning once the plan
// is drained. Stop (or context cancellation) ends the run.
func WithLinger() SchedulerOption {
	return func(s *Scheduler) {
		s.linger = true
	}
}

// NewScheduler wires a scheduler to its collaborators. Nothing is shared
// through globals; independent schedulers never interfere.
func NewScheduler(
	store *adapter.Store,
	disks adapter.DiskArbiter,
	hasher adapter.Hasher,
	transporter adapter.Transporter,
	verifier adapter.Verifier,
	options ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		store:       store,
		disks:       disks,
		hasher:      hasher,
		transporter: transporter,
		verifier:    verifier,
		ui:          controller.NullUI{},
		kick:        make(chan struct{}, 1),
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// Kick tells a running scheduler that state changed externally (a source or
// target was registered); the next tick picks the new work up.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Stop prevents any further dispatch. In-flight operations finish; nothing
// is cancelled or rolled back.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
	s.Kick()
}

// opEvent is what a worker reports back when its operation finishes.
type opEvent struct {
	key     m.OpKey
	err     error
	stats   *m.VerifyStats
	elapsed time.Duration
	lease   *adapter.Lease
}

// Run executes the scoped plan and returns the report. It returns early
// (before any operation starts) on resolution or persistence errors; stage
// failures are per-operation and never abort the run.
func (s *Scheduler) Run(ctx context.Context, scope Scope) (*m.RunReport, error) {
	// Fail fast: resolve every disk the scope touches before dispatching
	// anything. No partial plan runs against state we cannot trust.
	if _, err := BuildPlan(s.store.Snapshot(), scope, s.disks); err != nil {
		return nil, err
	}

	report := &m.RunReport{}
	events := make(chan opEvent)
	running := map[m.OpKey]bool{}
	executed := map[m.OpKey]bool{}

	var group errgroup.Group

	var plan *Plan

	// done is nilled out once cancellation is observed, so the wait below
	// blocks on worker events instead of spinning on a closed channel.
	done := ctx.Done()

	for {
		var err error

		plan, err = BuildPlan(s.store.Snapshot(), scope, s.disks)
		if err != nil {
			// Disk resolution is cached and additions are validated
			// up front, so this is unexpected; stop dispatching and
			// drain.
			slog.Error("plan rebuild failed", "error", err)
			s.stopped.Store(true)
		}

		dispatched := 0

		if !s.stopped.Load() && ctx.Err() == nil && plan != nil {
			dispatched = s.dispatchRunnable(ctx, plan, running, executed, &group, events)
		}

		if len(running) == 0 && dispatched == 0 {
			if s.linger && !s.stopped.Load() && ctx.Err() == nil {
				select {
				case <-s.kick:
				case <-done:
					done = nil
				}

				continue
			}

			break
		}

		select {
		case ev := <-events:
			s.disks.Release(ev.lease)
			delete(running, ev.key)
			report.Add(resultOf(ev))
		case <-s.kick:
		case <-done:
			done = nil
		}
	}

	_ = group.Wait()

	s.reportSkipped(plan, executed, report)

	return report, nil
}

func resultOf(ev opEvent) m.OpResult {
	res := m.OpResult{Op: ev.key, Stats: ev.stats, Elapsed: ev.elapsed}
	if ev.err != nil {
		res.Err = ev.err.Error()
	}

	return res
}

// dispatchRunnable starts every operation that is runnable right now:
// queued, prerequisites done, not deferred, and with all its disks free.
// Competitors for a disk are considered in priority order — hash before
// transfer before verify, ties by creation sequence.
func (s *Scheduler) dispatchRunnable(
	ctx context.Context,
	plan *Plan,
	running, executed map[m.OpKey]bool,
	group *errgroup.Group,
	events chan<- opEvent,
) int {
	candidates := make([]*m.Operation, 0, len(plan.Ops))

	for _, op := range plan.Ops {
		if op.Status != m.OpQueued || running[op.Key()] {
			continue
		}

		if !plan.prereqsDone(op) {
			continue
		}

		candidates = append(candidates, op)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Kind != candidates[j].Kind {
			return candidates[i].Kind < candidates[j].Kind
		}

		return candidates[i].Seq < candidates[j].Seq
	})

	dispatched := 0

	for _, op := range candidates {
		if op.Kind == m.OpVerify && plan.transferPending(op.Disks[0], running) {
			// Deferred: writes to this disk have not finished. The
			// operation is reconsidered on the next tick.
			continue
		}

		lease, ok := s.disks.TryAcquire(op.Disks...)
		if !ok {
			continue
		}

		if err := s.markRunning(op); err != nil {
			s.disks.Release(lease)
			slog.Error("dispatch rejected by store", "op", op.Key().String(), "error", err)

			continue
		}

		key := op.Key()
		running[key] = true
		executed[key] = true
		dispatched++

		s.ui.OpStarted(*op)
		slog.Info("dispatch", "op", key.String(), "disks", op.Disks)

		opCopy := *op

		group.Go(func() error {
			start := time.Now()
			stats, err := s.execute(ctx, &opCopy)
			elapsed := time.Since(start)

			s.ui.OpFinished(opCopy, err, elapsed)
			events <- opEvent{key: key, err: err, stats: stats, elapsed: elapsed, lease: lease}

			return nil
		})
	}

	return dispatched
}

// markRunning persists the in-progress status before the stage executor
// starts; the store is the durability boundary, never worker memory.
func (s *Scheduler) markRunning(op *m.Operation) error {
	switch op.Kind {
	case m.OpHash:
		return s.store.TransitionSource(op.Source, m.Hashing, adapter.Evidence{})
	case m.OpTransfer:
		return s.store.TransitionTarget(op.Source, op.Target, m.Transferring, adapter.Evidence{})
	case m.OpVerify:
		return s.store.TransitionTarget(op.Source, op.Target, m.Verifying, adapter.Evidence{})
	}

	return fmt.Errorf("unknown operation kind %d", op.Kind)
}

// execute runs one stage outside the store's mutation lock and commits the
// outcome before reporting the event. Failures are wrapped as
// PipelineErrors carrying the operation identity.
func (s *Scheduler) execute(ctx context.Context, op *m.Operation) (*m.VerifyStats, error) {
	key := op.Key()

	switch op.Kind {
	case m.OpHash:
		res, err := s.hasher.Hash(ctx, s.sourceOf(op), s.store.Dir())
		if err != nil {
			s.commitSource(op, m.HashFailed, adapter.Evidence{})
			return nil, &m.PipelineError{Op: key, Err: err}
		}

		s.commitSource(op, m.Hashed, adapter.Evidence{
			HashFile:    res.HashFile,
			HashLogFile: res.LogFile,
		})

		return nil, nil

	case m.OpTransfer:
		src, tgt := s.pairOf(op)
		if err := s.transporter.Transfer(ctx, src, tgt); err != nil {
			s.commitTarget(op, m.TransferFailed, adapter.Evidence{})
			return nil, &m.PipelineError{Op: key, Err: err}
		}

		s.commitTarget(op, m.Transferred, adapter.Evidence{})

		return nil, nil

	case m.OpVerify:
		src, tgt := s.pairOf(op)

		stats, err := s.verifier.Verify(ctx, src, tgt)
		if err != nil {
			s.commitTarget(op, m.VerifyFailed, adapter.Evidence{})
			return nil, &m.PipelineError{Op: key, Err: err}
		}

		if !stats.Clean() {
			s.commitTarget(op, m.VerifyFailed, adapter.Evidence{Verified: stats})

			return stats, &m.PipelineError{Op: key, Err: fmt.Errorf(
				"%d mismatched, %d missing of %d checked",
				stats.CRCMismatch, stats.Missing, stats.Checked)}
		}

		s.commitTarget(op, m.Verified, adapter.Evidence{Verified: stats})

		return stats, nil
	}

	return nil, fmt.Errorf("unknown operation kind %d", op.Kind)
}

// sourceOf fetches the current source record; executors see committed
// state, not plan-time snapshots.
func (s *Scheduler) sourceOf(op *m.Operation) *m.Source {
	return s.store.Snapshot().Source(op.Source)
}

func (s *Scheduler) pairOf(op *m.Operation) (*m.Source, *m.Target) {
	src := s.store.Snapshot().Source(op.Source)

	return src, src.Target(op.Target)
}

func (s *Scheduler) commitSource(op *m.Operation, status m.SourceStatus, ev adapter.Evidence) {
	if err := s.store.TransitionSource(op.Source, status, ev); err != nil {
		slog.Error("commit failed", "op", op.Key().String(), "status", status, "error", err)
	}
}

func (s *Scheduler) commitTarget(op *m.Operation, status m.TargetStatus, ev adapter.Evidence) {
	if err := s.store.TransitionTarget(op.Source, op.Target, status, ev); err != nil {
		slog.Error("commit failed", "op", op.Key().String(), "status", status, "error", err)
	}
}

// reportSkipped lists every operation that stayed queued behind a failure,
// so blocked work is reported rather than silently dropped.
func (s *Scheduler) reportSkipped(plan *Plan, executed map[m.OpKey]bool, report *m.RunReport) {
	if plan == nil {
		return
	}

	for _, op := range plan.Ops {
		if op.Status != m.OpQueued || executed[op.Key()] {
			continue
		}

		if plan.upstreamFailed(op) {
			report.Skipped = append(report.Skipped, op.Key())
		}
	}
}
