package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

func TestLocalTransporter_CopiesTreeWithManifest(t *testing.T) {
	srcDir := t.TempDir()
	writeTree(t, srcDir, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "beta",
	})

	src := &m.Source{Path: srcDir, HashAlgorithm: "sha256"}
	res, _ := hashFixture(t, src)
	src.HashFile = res.HashFile

	tgt := &m.Target{Path: filepath.Join(t.TempDir(), "backup", "photos")}

	if err := NewLocalTransporter().Transfer(context.Background(), src, tgt); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	for rel, want := range map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "beta",
	} {
		got, err := os.ReadFile(filepath.Join(tgt.Path, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("copied file %s: %v", rel, err)
		}

		if string(got) != want {
			t.Fatalf("content of %s = %q, want %q", rel, got, want)
		}
	}

	// The manifest travels with the data so verification can run against
	// the target alone.
	if _, err := os.Stat(filepath.Join(tgt.Path, filepath.Base(res.HashFile))); err != nil {
		t.Fatalf("manifest not copied: %v", err)
	}
}

func TestLocalTransporter_AppliesSourceFilters(t *testing.T) {
	srcDir := t.TempDir()
	writeTree(t, srcDir, map[string]string{
		"keep.txt": "x",
		"skip.tmp": "y",
	})

	src := &m.Source{Path: srcDir, HashAlgorithm: "sha256", Blocklist: []string{"*.tmp"}}
	res, _ := hashFixture(t, src)
	src.HashFile = res.HashFile

	tgt := &m.Target{Path: filepath.Join(t.TempDir(), "out")}

	if err := NewLocalTransporter().Transfer(context.Background(), src, tgt); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tgt.Path, "keep.txt")); err != nil {
		t.Fatalf("included file not copied: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tgt.Path, "skip.tmp")); !os.IsNotExist(err) {
		t.Fatal("blocklisted file was copied")
	}
}

func TestLocalTransporter_RequiresManifest(t *testing.T) {
	src := &m.Source{Path: t.TempDir(), HashAlgorithm: "sha256"}
	tgt := &m.Target{Path: filepath.Join(t.TempDir(), "out")}

	if err := NewLocalTransporter().Transfer(context.Background(), src, tgt); err == nil {
		t.Fatal("expected transfer of an unhashed source to fail")
	}
}

func TestLocalTransporter_UnwritableTarget(t *testing.T) {
	srcDir := t.TempDir()
	writeTree(t, srcDir, map[string]string{"a.txt": "alpha"})

	src := &m.Source{Path: srcDir, HashAlgorithm: "sha256"}
	res, _ := hashFixture(t, src)
	src.HashFile = res.HashFile

	// A target whose parent is a regular file cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tgt := &m.Target{Path: filepath.Join(blocker, "out")}

	if err := NewLocalTransporter().Transfer(context.Background(), src, tgt); err == nil {
		t.Fatal("expected transfer into an impossible directory to fail")
	}
}
