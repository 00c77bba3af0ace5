package model

import "testing"

func TestRunReport_AddSplitsByOutcome(t *testing.T) {
	report := &RunReport{}

	report.Add(OpResult{Op: OpKey{Kind: OpHash, Source: "/a"}})
	report.Add(OpResult{Op: OpKey{Kind: OpTransfer, Source: "/a", Target: "/t"}, Err: "boom"})
	report.Add(OpResult{
		Op:    OpKey{Kind: OpVerify, Source: "/a", Target: "/t"},
		Stats: &VerifyStats{Checked: 10, Missing: 1, CRCMismatch: 2},
	})

	if len(report.Completed) != 2 || len(report.Failed) != 1 {
		t.Fatalf("unexpected split: %d completed, %d failed", len(report.Completed), len(report.Failed))
	}

	if !report.HasFailures() {
		t.Fatal("HasFailures must reflect the failed operation")
	}

	want := VerifySummary{Checked: 10, Missing: 1, CRCMismatch: 2}
	if report.Summary != want {
		t.Fatalf("summary = %+v, want %+v", report.Summary, want)
	}
}

func TestRunReport_FailedVerifyStillCountsInSummary(t *testing.T) {
	// A verify that finds damage fails the operation but still carries the
	// counts; the summary must show them, not zeros.
	report := &RunReport{}

	report.Add(OpResult{
		Op:    OpKey{Kind: OpVerify, Source: "/a", Target: "/t"},
		Err:   "1 missing, 3 mismatched",
		Stats: &VerifyStats{Checked: 10, Missing: 1, CRCMismatch: 3},
	})

	if len(report.Failed) != 1 || len(report.Completed) != 0 {
		t.Fatalf("unexpected split: %d completed, %d failed", len(report.Completed), len(report.Failed))
	}

	want := VerifySummary{Checked: 10, Missing: 1, CRCMismatch: 3}
	if report.Summary != want {
		t.Fatalf("summary = %+v, want %+v", report.Summary, want)
	}
}

func TestVerifyStats_Clean(t *testing.T) {
	if !(&VerifyStats{Checked: 5}).Clean() {
		t.Fatal("all-good stats must be clean")
	}

	if (&VerifyStats{Checked: 5, Missing: 1}).Clean() {
		t.Fatal("missing files must not be clean")
	}

	if (&VerifyStats{Checked: 5, CRCMismatch: 1}).Clean() {
		t.Fatal("mismatches must not be clean")
	}
}

func TestState_CloneIsDeep(t *testing.T) {
	state := &State{
		Version: 1,
		Sources: []*Source{{
			Path:    "/a",
			Targets: []*Target{{Path: "/t", Verified: &VerifyStats{Checked: 1}}},
		}},
	}

	clone := state.Clone()
	clone.Sources[0].Status = HashFailed
	clone.Sources[0].Targets[0].Verified.Checked = 99

	if state.Sources[0].Status == HashFailed {
		t.Fatal("source status aliased")
	}

	if state.Sources[0].Targets[0].Verified.Checked != 1 {
		t.Fatal("verify stats aliased")
	}
}
