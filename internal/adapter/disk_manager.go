package adapter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// DiskArbiter resolves paths to physical disks and grants exclusive,
// per-disk leases. It is the only contended resource in a run: at most one
// operation holds a lease on any given disk at any instant.
type DiskArbiter interface {
	// Resolve maps a path to the identity of the device backing it. An
	// unresolvable path is a ResourceError, never a silent default.
	Resolve(path string) (m.DiskID, error)

	// TryAcquire grants a lease covering all given disks, or none at all.
	TryAcquire(disks ...m.DiskID) (*Lease, bool)

	// Acquire blocks until a lease covering all given disks can be
	// granted. Waiters are woken in FIFO order of arrival. Leases are
	// non-reentrant; a holder must not acquire again before releasing.
	Acquire(disks ...m.DiskID) *Lease

	// Release returns a lease. Safe to call more than once.
	Release(l *Lease)
}

// Lease is an exclusive hold on one or more disks for the duration of a
// single operation.
type Lease struct {
	disks    []m.DiskID
	released bool
}

// Disks returns the devices covered by the lease.
func (l *Lease) Disks() []m.DiskID {
	return l.disks
}

type waiter struct {
	disks []m.DiskID
	ready chan *Lease
}

// DiskManager is the local-filesystem DiskArbiter. Device identities come
// from the OS (st_dev on unix, the volume name on Windows) and are cached
// per path for the process lifetime.
type DiskManager struct {
	mu      sync.Mutex
	cache   map[string]m.DiskID
	busy    map[m.DiskID]bool
	waiters []*waiter
	resolve func(path string) (m.DiskID, error)
}

// DiskManagerOption customizes a DiskManager.
type DiskManagerOption func(*DiskManager)

// WithDeviceResolver overrides how paths map to device identities. Used by
// tests to simulate multi-disk layouts on a single filesystem.
func WithDeviceResolver(fn func(path string) (m.DiskID, error)) DiskManagerOption {
	return func(d *DiskManager) {
		d.resolve = fn
	}
}

// NewDiskManager constructs a DiskManager backed by the operating system's
// device identifiers.
func NewDiskManager(options ...DiskManagerOption) *DiskManager {
	d := &DiskManager{
		cache:   map[string]m.DiskID{},
		busy:    map[m.DiskID]bool{},
		resolve: deviceID,
	}

	for _, opt := range options {
		opt(d)
	}

	return d
}

// Resolve maps path to its physical disk. When the path itself does not
// exist yet (a target directory is usually created by the transfer) the
// nearest existing ancestor decides, matching where the data will land.
func (d *DiskManager) Resolve(path string) (m.DiskID, error) {
	norm := m.NormalizePath(path)

	d.mu.Lock()
	if id, ok := d.cache[norm]; ok {
		d.mu.Unlock()
		return id, nil
	}
	d.mu.Unlock()

	cur := norm
	for {
		if _, err := os.Stat(cur); err == nil {
			id, err := d.resolve(cur)
			if err != nil {
				return 0, &m.ResourceError{Path: path, Err: err}
			}

			d.mu.Lock()
			d.cache[norm] = id
			d.mu.Unlock()

			slog.Debug("resolved disk", "path", norm, "disk", id)

			return id, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return 0, &m.ResourceError{
				Path: path,
				Err:  fmt.Errorf("no existing ancestor to stat"),
			}
		}

		cur = parent
	}
}

// TryAcquire grants a lease on every requested disk or leaves all of them
// untouched.
func (d *DiskManager) TryAcquire(disks ...m.DiskID) (*Lease, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.anyBusy(disks) {
		return nil, false
	}

	return d.grant(disks), true
}

// Acquire blocks until every requested disk is free. Arrival order is
// preserved: an early waiter is offered its disks before a later one, even
// if the later one could already run.
func (d *DiskManager) Acquire(disks ...m.DiskID) *Lease {
	d.mu.Lock()

	if !d.anyBusy(disks) && len(d.waiters) == 0 {
		lease := d.grant(disks)
		d.mu.Unlock()

		return lease
	}

	w := &waiter{disks: disks, ready: make(chan *Lease, 1)}
	d.waiters = append(d.waiters, w)
	d.mu.Unlock()

	return <-w.ready
}

// Release returns the lease's disks and hands them to queued waiters in
// FIFO order. Releasing an already-released lease is a no-op.
func (d *DiskManager) Release(l *Lease) {
	if l == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if l.released {
		return
	}

	l.released = true
	for _, disk := range l.disks {
		d.busy[disk] = false
	}

	d.wake()
}

func (d *DiskManager) anyBusy(disks []m.DiskID) bool {
	for _, disk := range disks {
		if d.busy[disk] {
			return true
		}
	}

	return false
}

func (d *DiskManager) grant(disks []m.DiskID) *Lease {
	// Deduplicate so an operation reading and writing the same disk does
	// not deadlock against itself on release bookkeeping.
	uniq := make([]m.DiskID, 0, len(disks))
	seen := map[m.DiskID]bool{}

	for _, disk := range disks {
		if !seen[disk] {
			seen[disk] = true
			uniq = append(uniq, disk)
		}
	}

	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	for _, disk := range uniq {
		d.busy[disk] = true
	}

	return &Lease{disks: uniq}
}

// wake grants leases to waiters whose disks are all free, scanning in FIFO
// order. Called with d.mu held.
func (d *DiskManager) wake() {
	remaining := d.waiters[:0]

	for _, w := range d.waiters {
		if d.anyBusy(w.disks) {
			remaining = append(remaining, w)
			continue
		}

		w.ready <- d.grant(w.disks)
	}

	d.waiters = remaining
}
