package domain

import (
	"fmt"
	"os"

	"coldstage.dev/pkg/coldstage/internal/adapter"
	m "coldstage.dev/pkg/coldstage/internal/model"
)

// StageSource validates and registers a new source. The path must be an
// existing directory on a resolvable disk and the hash algorithm must be
// known; rejecting bad input at registration keeps plan building
// infallible later.
func StageSource(store *adapter.Store, disks adapter.DiskArbiter, src *m.Source) error {
	src.Path = m.NormalizePath(src.Path)

	info, err := os.Stat(src.Path)
	if err != nil {
		return &m.ResourceError{Path: src.Path, Err: err}
	}

	if !info.IsDir() {
		return &m.ResourceError{Path: src.Path, Err: fmt.Errorf("not a directory")}
	}

	if _, err := adapter.NewDigest(src.HashAlgorithm); err != nil {
		return err
	}

	if _, err := disks.Resolve(src.Path); err != nil {
		return err
	}

	return store.AddSource(src)
}

// RegisterTarget validates and registers a destination for a staged
// source. The target path need not exist yet, but its disk must be
// resolvable through an existing ancestor.
func RegisterTarget(store *adapter.Store, disks adapter.DiskArbiter, sourceRef string, tgt *m.Target) error {
	tgt.Path = m.NormalizePath(tgt.Path)

	if _, err := disks.Resolve(tgt.Path); err != nil {
		return err
	}

	return store.AddTarget(sourceRef, tgt)
}
