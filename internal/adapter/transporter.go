package adapter

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// LocalTransporter copies directory trees between local filesystems. The
// manifest is copied along with the data so the verify stage can read it
// beside the target.
type LocalTransporter struct{}

// NewLocalTransporter constructs a LocalTransporter.
func NewLocalTransporter() *LocalTransporter {
	return &LocalTransporter{}
}

// Transfer copies src.Path into tgt.Path, creating the target directory if
// needed and preserving file modes.
func (t *LocalTransporter) Transfer(ctx context.Context, src *m.Source, tgt *m.Target) error {
	if src.HashFile == "" {
		return fmt.Errorf("source %q has no manifest; hash it first", src.Path)
	}

	if err := os.MkdirAll(tgt.Path, 0o755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}

	return filepath.WalkDir(src.Path, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src.Path, path)
		if err != nil {
			return err
		}

		dst := filepath.Join(tgt.Path, rel)

		if entry.IsDir() {
			if rel == "." {
				return nil
			}

			info, err := entry.Info()
			if err != nil {
				return err
			}

			return os.MkdirAll(dst, info.Mode().Perm())
		}

		// Manifests always travel with the data; everything else obeys
		// the same filters the hash stage applied.
		if !isManifest(entry.Name()) && !included(src, rel) {
			return nil
		}

		return copyFile(path, dst)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}

	return out.Close()
}
