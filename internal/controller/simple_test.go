package controller

import (
	"bytes"
	"strings"
	"testing"
	"time"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

func TestRenderStatus(t *testing.T) {
	tests := []struct {
		name         string
		state        *m.State
		wantContains []string
	}{
		{
			name:         "empty state",
			state:        &m.State{Version: 1},
			wantContains: []string{"Nothing staged"},
		},
		{
			name: "source without targets",
			state: &m.State{Version: 1, Sources: []*m.Source{
				{Path: "/data/photos", Status: m.Unhashed, HashAlgorithm: "sha512"},
			}},
			wantContains: []string{"/data/photos", "unhashed", "sha512", "no targets"},
		},
		{
			name: "verified target with stats",
			state: &m.State{Version: 1, Sources: []*m.Source{
				{
					Path:          "/data/photos",
					Alias:         "photos",
					Status:        m.Hashed,
					HashAlgorithm: "sha512",
					HashFile:      "/data/photos/photos_bh_x.sha512",
					Targets: []*m.Target{{
						Path:     "/mnt/d1/photos",
						Status:   m.Verified,
						Verify:   true,
						Verified: &m.VerifyStats{Checked: 12, CRCMismatch: 1, Missing: 2},
					}},
				},
			}},
			wantContains: []string{
				"alias photos", "photos_bh_x.sha512",
				"/mnt/d1/photos", "verified", "12", "1", "2",
			},
		},
		{
			name: "target that opted out of verification",
			state: &m.State{Version: 1, Sources: []*m.Source{
				{
					Path:          "/data/music",
					Status:        m.Hashed,
					HashAlgorithm: "md5",
					Targets:       []*m.Target{{Path: "/mnt/d2/music", Status: m.Transferred}},
				},
			}},
			wantContains: []string{"/mnt/d2/music", "transferred", "no"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderStatus(tt.state)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestRenderReport(t *testing.T) {
	report := &m.RunReport{}
	report.Add(m.OpResult{Op: m.OpKey{Kind: m.OpHash, Source: "/data/a"}})
	report.Add(m.OpResult{
		Op:  m.OpKey{Kind: m.OpTransfer, Source: "/data/a", Target: "/mnt/d1/a"},
		Err: "no space left",
	})
	report.Add(m.OpResult{
		Op:    m.OpKey{Kind: m.OpVerify, Source: "/data/b", Target: "/mnt/d1/b"},
		Stats: &m.VerifyStats{Checked: 4, Missing: 1},
	})
	report.Skipped = append(report.Skipped, m.OpKey{Kind: m.OpVerify, Source: "/data/a", Target: "/mnt/d1/a"})

	got := RenderReport(report)

	for _, want := range []string{
		"2 completed, 1 failed, 1 skipped",
		"no space left",
		"verify /data/a -> /mnt/d1/a",
		"upstream failure",
		"4 checked, 0 mismatched, 1 missing",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestWriterUI_OpLifecycleLines(t *testing.T) {
	var buf bytes.Buffer
	ui := NewWriterUI(&buf)

	op := m.Operation{Kind: m.OpTransfer, Source: "/data/a", Target: "/mnt/d1/a"}

	ui.OpStarted(op)
	ui.OpFinished(op, nil, 1500*time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "started  transfer /data/a -> /mnt/d1/a") {
		t.Fatalf("missing start line:\n%s", out)
	}

	if !strings.Contains(out, "finished transfer /data/a -> /mnt/d1/a (1.5s)") {
		t.Fatalf("missing finish line:\n%s", out)
	}
}
