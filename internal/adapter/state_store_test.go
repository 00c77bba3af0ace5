package adapter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := LoadStore(filepath.Join(t.TempDir(), "backup_status.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return store
}

func stageTestSource(t *testing.T, store *Store, path, alias string) {
	t.Helper()

	err := store.AddSource(&m.Source{Path: path, Alias: alias, HashAlgorithm: "sha512"})
	if err != nil {
		t.Fatalf("stage %s: %v", path, err)
	}
}

func TestLoadStore_MissingFileYieldsEmptyState(t *testing.T) {
	store := newTestStore(t)

	if got := len(store.Snapshot().Sources); got != 0 {
		t.Fatalf("expected empty state, got %d sources", got)
	}
}

func TestLoadStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup_status.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadStore(path)

	var perr *m.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestLoadStore_UnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup_status.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "sources": []}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadStore(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported state version") {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestStore_AddSourceRejectsDuplicatesAndAliasCollisions(t *testing.T) {
	store := newTestStore(t)
	stageTestSource(t, store, "/data/photos", "photos")

	tests := []struct {
		name string
		src  *m.Source
	}{
		{"duplicate path", &m.Source{Path: "/data/photos"}},
		{"duplicate alias", &m.Source{Path: "/data/music", Alias: "photos"}},
		{"alias shadowing a path", &m.Source{Path: "/data/music", Alias: "/data/photos"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.AddSource(tt.src)

			var conflict *m.ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("expected ConflictError, got %v", err)
			}
		})
	}
}

func TestStore_AddTargetScopesAliasesPerSource(t *testing.T) {
	store := newTestStore(t)
	stageTestSource(t, store, "/data/photos", "photos")
	stageTestSource(t, store, "/data/music", "music")

	if err := store.AddTarget("photos", &m.Target{Path: "/mnt/disk1/photos", Alias: "d1", Verify: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same alias on a different source is fine.
	if err := store.AddTarget("music", &m.Target{Path: "/mnt/disk1/music", Alias: "d1", Verify: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same alias on the same source is not.
	err := store.AddTarget("photos", &m.Target{Path: "/mnt/disk2/photos", Alias: "d1", Verify: true})

	var conflict *m.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestStore_AddTargetUnknownSource(t *testing.T) {
	store := newTestStore(t)

	err := store.AddTarget("nope", &m.Target{Path: "/mnt/disk1"})

	var notFound *m.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestStore_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup_status.json")

	store, err := LoadStore(path)
	if err != nil {
		t.Fatal(err)
	}

	stageTestSource(t, store, "/data/photos", "photos")

	if err := store.AddTarget("photos", &m.Target{Path: "/mnt/disk1/photos", Verify: true}); err != nil {
		t.Fatal(err)
	}

	if err := store.TransitionSource("photos", m.Hashing, Evidence{}); err != nil {
		t.Fatal(err)
	}

	if err := store.TransitionSource("photos", m.Hashed, Evidence{HashFile: "/data/photos/x.sha512"}); err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	src := reloaded.Snapshot().Source(m.NormalizePath("/data/photos"))
	if src == nil {
		t.Fatal("source lost across reload")
	}

	if src.Status != m.Hashed || src.HashFile != "/data/photos/x.sha512" {
		t.Fatalf("status or evidence lost: %+v", src)
	}

	if len(src.Targets) != 1 || src.Targets[0].Status != m.Pending {
		t.Fatalf("target lost across reload: %+v", src.Targets)
	}
}

func TestStore_SnapshotDoesNotAliasStoreMemory(t *testing.T) {
	store := newTestStore(t)
	stageTestSource(t, store, "/data/photos", "")

	snap := store.Snapshot()
	snap.Sources[0].Status = m.HashFailed

	if store.Snapshot().Sources[0].Status != m.Unhashed {
		t.Fatal("mutating a snapshot leaked into the store")
	}
}

func TestStore_SaveCrashCopyNeverOverwrites(t *testing.T) {
	store := newTestStore(t)
	stageTestSource(t, store, "/data/photos", "")

	first, err := store.SaveCrashCopy()
	if err != nil {
		t.Fatal(err)
	}

	second, err := store.SaveCrashCopy()
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Fatalf("crash copies collided at %s", first)
	}

	for _, p := range []string{first, second} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("crash copy %s missing: %v", p, err)
		}
	}
}
