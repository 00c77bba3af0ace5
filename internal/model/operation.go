package model

// DiskID identifies the physical device backing a path. Two paths under the
// same mount resolve to the same DiskID. It is the unit of mutual exclusion
// for scheduling.
type DiskID uint64

// OpKind is one pipeline stage.
type OpKind int

// Operation kinds, in pipeline (and dispatch priority) order.
const (
	OpHash OpKind = iota
	OpTransfer
	OpVerify
)

func (k OpKind) String() string {
	switch k {
	case OpHash:
		return "hash"
	case OpTransfer:
		return "transfer"
	case OpVerify:
		return "verify"
	}

	return "unknown"
}

// OpStatus is the scheduling status of an operation. Operations are not
// persisted; their status is derived from the Source/Target statuses on
// every plan rebuild.
type OpStatus int

// Operation statuses.
const (
	OpQueued OpStatus = iota
	OpRunning
	OpDone
	OpFailed
)

func (s OpStatus) String() string {
	switch s {
	case OpQueued:
		return "queued"
	case OpRunning:
		return "running"
	case OpDone:
		return "done"
	case OpFailed:
		return "failed"
	}

	return "unknown"
}

// Operation is one schedulable unit of work. Prereqs holds indexes into the
// plan's flat operation slice rather than pointers, so the runnable set can
// be recomputed cheaply without ownership cycles.
type Operation struct {
	Kind   OpKind
	Source string // normalized source path
	Target string // normalized target path, empty for hash operations
	Status OpStatus
	// Seq is the creation sequence number, used to break ties between
	// operations of the same kind competing for the same disk.
	Seq     int
	Prereqs []int
	// Disks are the devices this operation touches: the source disk for
	// hash, source and target disks for transfer, the target disk for
	// verify.
	Disks []DiskID
}

// Key returns a stable identity for the operation across plan rebuilds.
func (o *Operation) Key() OpKey {
	return OpKey{Kind: o.Kind, Source: o.Source, Target: o.Target}
}

// OpKey identifies an operation independent of its position in a plan.
type OpKey struct {
	Kind   OpKind
	Source string
	Target string
}

func (k OpKey) String() string {
	if k.Target == "" {
		return k.Kind.String() + " " + k.Source
	}

	return k.Kind.String() + " " + k.Source + " -> " + k.Target
}

// MarshalYAML renders the key in its human-readable form for run reports.
func (k OpKey) MarshalYAML() (any, error) {
	return k.String(), nil
}
