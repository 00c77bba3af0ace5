package adapter

import (
	"errors"
	"testing"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

func lookupFixture(t *testing.T) *Store {
	t.Helper()

	store := newTestStore(t)
	stageTestSource(t, store, "/data/photos", "photos")
	stageTestSource(t, store, "/data/music", "shared")

	if err := store.AddTarget("photos", &m.Target{Path: "/mnt/disk1/photos", Alias: "d1", Verify: true}); err != nil {
		t.Fatal(err)
	}

	// The same alias on a target of another source makes "shared"
	// ambiguous as a bare reference.
	if err := store.AddTarget("photos", &m.Target{Path: "/mnt/disk2/photos", Alias: "shared", Verify: true}); err != nil {
		t.Fatal(err)
	}

	return store
}

func TestStore_Resolve(t *testing.T) {
	store := lookupFixture(t)

	tests := []struct {
		name string
		ref  string
		want ResolutionState
	}{
		{"source by path", "/data/photos", RefSource},
		{"source by alias", "photos", RefSource},
		{"target by path", "/mnt/disk1/photos", RefTarget},
		{"target by alias", "d1", RefTarget},
		{"alias used by source and target", "shared", RefAmbiguous},
		{"unknown", "nothing", RefNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := store.Resolve(tt.ref)
			if res.State != tt.want {
				t.Fatalf("Resolve(%q) = %v, want %v", tt.ref, res.State, tt.want)
			}

			if tt.want == RefTarget && (res.Source == nil || res.Target == nil) {
				t.Fatal("target resolution must carry its owning source")
			}
		})
	}
}

func TestResolution_Err(t *testing.T) {
	store := lookupFixture(t)

	var notFound *m.NotFoundError
	if err := store.Resolve("nothing").Err("nothing"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	var ambiguous *m.AliasConflictError
	if err := store.Resolve("shared").Err("shared"); !errors.As(err, &ambiguous) {
		t.Fatalf("expected AliasConflictError, got %v", err)
	}

	if err := store.Resolve("photos").Err("photos"); err != nil {
		t.Fatalf("expected nil for a clean resolution, got %v", err)
	}
}

func TestStore_ResolveTargetIsScopedToSource(t *testing.T) {
	store := lookupFixture(t)

	src, tgt, err := store.ResolveTarget("photos", "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.Alias != "photos" || tgt.Alias != "d1" {
		t.Fatalf("resolved wrong pair: %s / %s", src.Path, tgt.Path)
	}

	if _, _, err := store.ResolveTarget("shared", "d1"); err == nil {
		t.Fatal("expected lookup against the wrong source to fail")
	}
}
