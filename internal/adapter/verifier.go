package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// LocalVerifier re-hashes a target against the manifest transferred with
// it. Missing files and digest mismatches are counted, not aborted on, so
// one bad file never hides the rest of the damage report.
type LocalVerifier struct{}

// NewLocalVerifier constructs a LocalVerifier.
func NewLocalVerifier() *LocalVerifier {
	return &LocalVerifier{}
}

// Verify reads the copied manifest beside the target and checks every entry.
// The verification log is written into the target directory.
func (v *LocalVerifier) Verify(ctx context.Context, src *m.Source, tgt *m.Target) (*m.VerifyStats, error) {
	if src.HashFile == "" {
		return nil, fmt.Errorf("source %q has no manifest; hash it first", src.Path)
	}

	manifest := filepath.Join(tgt.Path, filepath.Base(src.HashFile))

	cf, err := ReadChecksumFile(manifest)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	logPath := UniqueFilename(filepath.Join(tgt.Path, fmt.Sprintf(
		"%s_verify_%s.log", filepath.Base(tgt.Path), time.Now().Format(timestampLayout))))

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create verify log: %w", err)
	}

	defer func() {
		_ = logFile.Close()
	}()

	logger := slog.New(slog.NewTextHandler(logFile, nil))

	stats := &m.VerifyStats{LogFile: logPath}

	for _, entry := range cf.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stats.Checked++
		path := filepath.Join(tgt.Path, entry.RelPath)

		digest, err := HashFile(cf.Algorithm, path)
		if os.IsNotExist(err) {
			stats.Missing++
			logger.Error("missing", "file", entry.RelPath)

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", entry.RelPath, err)
		}

		if digest != entry.Digest {
			stats.CRCMismatch++
			logger.Error("mismatch", "file", entry.RelPath, "want", entry.Digest, "got", digest)

			continue
		}

		logger.Info("ok", "file", entry.RelPath)
	}

	logger.Info("verify finished",
		"checked", stats.Checked, "missing", stats.Missing, "mismatch", stats.CRCMismatch)

	return stats, nil
}
