package adapter

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// HashResult is what the hash stage hands back to the scheduler.
type HashResult struct {
	HashFile string
	LogFile  string
	Files    int
}

// Hasher computes the checksum manifest for a staged source directory.
type Hasher interface {
	Hash(ctx context.Context, src *m.Source, logDir string) (*HashResult, error)
}

// Transporter copies a hashed source directory (manifest included) to one
// target.
type Transporter interface {
	Transfer(ctx context.Context, src *m.Source, tgt *m.Target) error
}

// Verifier re-reads a transferred target against the manifest that traveled
// with it and reports per-file mismatches and missing files.
type Verifier interface {
	Verify(ctx context.Context, src *m.Source, tgt *m.Target) (*m.VerifyStats, error)
}

// LocalHasher walks the source tree on the local filesystem.
type LocalHasher struct{}

// NewLocalHasher constructs a LocalHasher.
func NewLocalHasher() *LocalHasher {
	return &LocalHasher{}
}

const timestampLayout = "2006-01-02T15-04-05"

// manifestName builds the checksum file name placed inside the source
// directory: `<dirbase>_bh_<timestamp>.<algo>`.
func manifestName(src *m.Source) string {
	base := filepath.Base(src.Path)

	return filepath.Join(src.Path, fmt.Sprintf(
		"%s_bh_%s.%s", base, time.Now().Format(timestampLayout), src.HashAlgorithm))
}

// isManifest reports whether name looks like a manifest produced by an
// earlier run. Those are excluded from hashing so re-staging a source does
// not checksum its own old manifests.
func isManifest(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	return strings.Contains(stem, "_bh_")
}

// included applies the source's allowlist/blocklist globs to a relative
// path. The allowlist wins when both are configured.
func included(src *m.Source, rel string) bool {
	match := func(patterns []string) bool {
		for _, pattern := range patterns {
			if ok, err := filepath.Match(pattern, rel); err == nil && ok {
				return true
			}

			if ok, err := filepath.Match(pattern, filepath.Base(rel)); err == nil && ok {
				return true
			}
		}

		return false
	}

	if len(src.Allowlist) > 0 {
		return match(src.Allowlist)
	}

	if len(src.Blocklist) > 0 {
		return !match(src.Blocklist)
	}

	return true
}

// Hash walks src.Path, digests every included file and writes the manifest
// into the source directory plus a hashing log into logDir.
func (h *LocalHasher) Hash(ctx context.Context, src *m.Source, logDir string) (*HashResult, error) {
	logPath := UniqueFilename(filepath.Join(logDir, fmt.Sprintf(
		"%s_hash_%s.log", SanitizeFilename(src.Path), time.Now().Format(timestampLayout))))

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create hash log: %w", err)
	}

	defer func() {
		_ = logFile.Close()
	}()

	logger := slog.New(slog.NewTextHandler(logFile, nil))

	cf := &ChecksumFile{Algorithm: src.HashAlgorithm}

	err = filepath.WalkDir(src.Path, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src.Path, path)
		if err != nil {
			return err
		}

		if isManifest(entry.Name()) || !included(src, rel) {
			logger.Info("skipped", "file", rel)
			return nil
		}

		digest, err := HashFile(src.HashAlgorithm, path)
		if err != nil {
			logger.Error("hash failed", "file", rel, "error", err)
			return fmt.Errorf("hash %s: %w", rel, err)
		}

		logger.Info("hashed", "file", rel, "digest", digest)
		cf.Entries = append(cf.Entries, ChecksumEntry{RelPath: rel, Digest: digest})

		return nil
	})
	if err != nil {
		return nil, err
	}

	manifest := UniqueFilename(manifestName(src))
	if err := WriteChecksumFile(manifest, cf); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	logger.Info("manifest written", "path", manifest, "files", len(cf.Entries))

	return &HashResult{HashFile: manifest, LogFile: logPath, Files: len(cf.Entries)}, nil
}
