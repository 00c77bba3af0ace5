package adapter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func hashFixture(t *testing.T, src *m.Source) (*HashResult, *ChecksumFile) {
	t.Helper()

	res, err := NewLocalHasher().Hash(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	cf, err := ReadChecksumFile(res.HashFile)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	return res, cf
}

func TestLocalHasher_WritesManifestAndLog(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.txt":              "alpha",
		"sub/b.txt":          "beta",
		"old_bh_x.sha512":    "stale manifest from an earlier run",
		"notes_bh_2024.sha1": "another stale manifest",
	})

	src := &m.Source{Path: dir, HashAlgorithm: "sha256"}
	res, cf := hashFixture(t, src)

	if res.Files != 2 {
		t.Fatalf("expected 2 hashed files, got %d", res.Files)
	}

	if !strings.Contains(filepath.Base(res.HashFile), "_bh_") ||
		!strings.HasSuffix(res.HashFile, ".sha256") {
		t.Fatalf("unexpected manifest name %q", res.HashFile)
	}

	if filepath.Dir(res.HashFile) != dir {
		t.Fatalf("manifest must land inside the source, got %q", res.HashFile)
	}

	rels := map[string]bool{}
	for _, entry := range cf.Entries {
		rels[entry.RelPath] = true

		want, err := HashFile("sha256", filepath.Join(dir, entry.RelPath))
		if err != nil {
			t.Fatal(err)
		}

		if entry.Digest != want {
			t.Fatalf("digest of %s does not match content", entry.RelPath)
		}
	}

	if !rels["a.txt"] || !rels[filepath.Join("sub", "b.txt")] {
		t.Fatalf("missing entries: %v", rels)
	}

	if _, err := os.Stat(res.LogFile); err != nil {
		t.Fatalf("hash log missing: %v", err)
	}
}

func TestLocalHasher_BlocklistExcludes(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"keep.txt":  "x",
		"skip.tmp":  "y",
		"other.tmp": "z",
	})

	src := &m.Source{Path: dir, HashAlgorithm: "sha256", Blocklist: []string{"*.tmp"}}
	res, cf := hashFixture(t, src)

	if res.Files != 1 || cf.Entries[0].RelPath != "keep.txt" {
		t.Fatalf("blocklist not applied: %+v", cf.Entries)
	}
}

func TestLocalHasher_AllowlistWins(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"keep.txt": "x",
		"skip.dat": "y",
	})

	src := &m.Source{
		Path:          dir,
		HashAlgorithm: "sha256",
		Allowlist:     []string{"*.txt"},
		Blocklist:     []string{"*.txt"}, // allowlist takes precedence
	}

	res, cf := hashFixture(t, src)

	if res.Files != 1 || cf.Entries[0].RelPath != "keep.txt" {
		t.Fatalf("allowlist not applied: %+v", cf.Entries)
	}
}

func TestLocalHasher_SecondRunKeepsBothManifests(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "alpha"})

	src := &m.Source{Path: dir, HashAlgorithm: "sha256"}

	first, _ := hashFixture(t, src)
	second, cf := hashFixture(t, src)

	if _, err := os.Stat(first.HashFile); err != nil {
		t.Fatalf("first manifest gone: %v", err)
	}

	// The second run must neither hash the first manifest nor
	// overwrite it.
	if second.Files != 1 || len(cf.Entries) != 1 {
		t.Fatalf("second run picked up the first manifest: %+v", cf.Entries)
	}
}

func TestLocalHasher_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "alpha"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &m.Source{Path: dir, HashAlgorithm: "sha256"}
	if _, err := NewLocalHasher().Hash(ctx, src, t.TempDir()); err == nil {
		t.Fatal("expected cancelled context to abort hashing")
	}
}
