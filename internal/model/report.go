package model

import "time"

// OpResult records one finished operation within a run.
type OpResult struct {
	Op      OpKey         `yaml:"op"`
	Err     string        `yaml:"error,omitempty"`
	Stats   *VerifyStats  `yaml:"stats,omitempty"`
	Elapsed time.Duration `yaml:"elapsed"`
}

// VerifySummary aggregates all verify results of a run.
type VerifySummary struct {
	Checked     int `yaml:"checked"`
	Missing     int `yaml:"missing"`
	CRCMismatch int `yaml:"crc_mismatch"`
}

// RunReport is the final account of a scheduler run: what completed, what
// failed, and what never became runnable because something upstream failed.
type RunReport struct {
	Completed []OpResult `yaml:"completed"`
	Failed    []OpResult `yaml:"failed"`
	// Skipped lists operations that stayed blocked behind a failed
	// prerequisite. They are reported, never silently dropped.
	Skipped []OpKey       `yaml:"skipped"`
	Summary VerifySummary `yaml:"summary"`
}

// HasFailures reports whether any operation in the run failed, which maps to
// a non-zero process exit.
func (r *RunReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// Add folds one result into the report. Stats count toward the summary
// whether the operation passed or failed; a verify that found damage is
// exactly what the summary must reflect.
func (r *RunReport) Add(res OpResult) {
	if res.Stats != nil {
		r.Summary.Checked += res.Stats.Checked
		r.Summary.Missing += res.Stats.Missing
		r.Summary.CRCMismatch += res.Stats.CRCMismatch
	}

	if res.Err != "" {
		r.Failed = append(r.Failed, res)
		return
	}

	r.Completed = append(r.Completed, res)
}
