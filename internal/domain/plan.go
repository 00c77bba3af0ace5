// Package domain contains the operation scheduler: it derives a
// dependency-respecting, disk-exclusive execution plan from persisted state
// and drives it to completion.
package domain

import (
	"coldstage.dev/pkg/coldstage/internal/adapter"
	m "coldstage.dev/pkg/coldstage/internal/model"
)

// Scope selects which part of the staged work a run covers. Upstream
// operations required by the selection are always included: requesting
// verify for one target implies its transfer and its source's hash.
type Scope struct {
	// Stage is the highest pipeline stage to run.
	Stage m.OpKind
	// Source limits the run to one source (normalized path); empty means
	// all staged sources.
	Source string
	// Target limits the run to one target of Source (normalized path);
	// empty means all its targets.
	Target string
}

// ScopeAll covers every staged source through verification.
func ScopeAll() Scope {
	return Scope{Stage: m.OpVerify}
}

// Plan is the flat operation arena for one scheduling pass. Prerequisites
// are indexes into Ops, so recomputing the runnable set is a scan, not a
// graph walk.
type Plan struct {
	Ops []*m.Operation
}

// Lookup finds an operation by key.
func (p *Plan) Lookup(key m.OpKey) *m.Operation {
	for _, op := range p.Ops {
		if op.Key() == key {
			return op
		}
	}

	return nil
}

// sourceOpStatus derives a hash operation's scheduling status. A source
// caught mid-hash by a crash is simply queued again; re-running recomputes
// the same runnable set.
func sourceOpStatus(s m.SourceStatus) m.OpStatus {
	switch s {
	case m.Hashed:
		return m.OpDone
	case m.HashFailed:
		return m.OpFailed
	default:
		return m.OpQueued
	}
}

func transferOpStatus(s m.TargetStatus) m.OpStatus {
	switch s {
	case m.Transferred, m.Verifying, m.Verified, m.VerifyFailed:
		return m.OpDone
	case m.TransferFailed:
		return m.OpFailed
	default:
		return m.OpQueued
	}
}

func verifyOpStatus(s m.TargetStatus) m.OpStatus {
	switch s {
	case m.Verified:
		return m.OpDone
	case m.VerifyFailed:
		return m.OpFailed
	default:
		return m.OpQueued
	}
}

// BuildPlan derives every operation the scope covers from the state
// snapshot. Operations are not persisted entities; they exist whenever
// their source/target exists, with status recomputed from the store on
// every tick.
//
// Disk conventions: hash touches the source disk, verify the target disk,
// transfer both — with the target (written) disk last in Operation.Disks,
// which is what the verify deferral rule keys on.
//
// An unresolvable path yields a ResourceError so a run fails fast before
// any operation starts.
func BuildPlan(state *m.State, scope Scope, disks adapter.DiskArbiter) (*Plan, error) {
	plan := &Plan{}
	seq := 0

	for _, src := range state.Sources {
		if scope.Source != "" && src.Path != scope.Source {
			continue
		}

		srcDisk, err := disks.Resolve(src.Path)
		if err != nil {
			return nil, err
		}

		hashIdx := len(plan.Ops)
		plan.Ops = append(plan.Ops, &m.Operation{
			Kind:   m.OpHash,
			Source: src.Path,
			Status: sourceOpStatus(src.Status),
			Seq:    seq,
			Disks:  []m.DiskID{srcDisk},
		})
		seq++

		if scope.Stage < m.OpTransfer {
			continue
		}

		for _, tgt := range src.Targets {
			if scope.Target != "" && tgt.Path != scope.Target {
				continue
			}

			tgtDisk, err := disks.Resolve(tgt.Path)
			if err != nil {
				return nil, err
			}

			transferIdx := len(plan.Ops)
			plan.Ops = append(plan.Ops, &m.Operation{
				Kind:    m.OpTransfer,
				Source:  src.Path,
				Target:  tgt.Path,
				Status:  transferOpStatus(tgt.Status),
				Seq:     seq,
				Prereqs: []int{hashIdx},
				Disks:   []m.DiskID{srcDisk, tgtDisk},
			})
			seq++

			if scope.Stage < m.OpVerify || !tgt.Verify {
				continue
			}

			plan.Ops = append(plan.Ops, &m.Operation{
				Kind:    m.OpVerify,
				Source:  src.Path,
				Target:  tgt.Path,
				Status:  verifyOpStatus(tgt.Status),
				Seq:     seq,
				Prereqs: []int{transferIdx},
				Disks:   []m.DiskID{tgtDisk},
			})
			seq++
		}
	}

	return plan, nil
}

// prereqsDone reports whether every prerequisite of op finished
// successfully.
func (p *Plan) prereqsDone(op *m.Operation) bool {
	for _, idx := range op.Prereqs {
		if p.Ops[idx].Status != m.OpDone {
			return false
		}
	}

	return true
}

// upstreamFailed reports whether op is permanently blocked by a failed
// operation anywhere in its prerequisite chain.
func (p *Plan) upstreamFailed(op *m.Operation) bool {
	for _, idx := range op.Prereqs {
		pre := p.Ops[idx]
		if pre.Status == m.OpFailed || p.upstreamFailed(pre) {
			return true
		}
	}

	return false
}

// writeDisk returns the disk a transfer writes to.
func writeDisk(op *m.Operation) m.DiskID {
	return op.Disks[len(op.Disks)-1]
}

// transferPending reports whether any transfer in the plan that writes to
// disk is still queued or running. While that holds, verify operations on
// the same disk are deferred so bulk writes finish before read-heavy
// verification starts.
func (p *Plan) transferPending(disk m.DiskID, running map[m.OpKey]bool) bool {
	for _, op := range p.Ops {
		if op.Kind != m.OpTransfer || writeDisk(op) != disk {
			continue
		}

		if running[op.Key()] {
			return true
		}

		// A queued transfer only defers if it can still run at all; one
		// dead behind a failed hash must not park verification forever.
		if op.Status == m.OpQueued && !p.upstreamFailed(op) {
			return true
		}
	}

	return false
}
