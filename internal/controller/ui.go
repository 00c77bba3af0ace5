// Package controller provides output adapters for the coldstage CLI: plain
// writer output for one-shot commands and a Bubble Tea shell for the
// interactive session.
package controller

import (
	"time"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// UI receives scheduler progress and renders status and run reports.
// Implementations must tolerate concurrent OpStarted/OpFinished calls from
// worker goroutines.
type UI interface {
	OpStarted(op m.Operation)
	OpFinished(op m.Operation, err error, elapsed time.Duration)
	DisplayReport(report *m.RunReport)
	DisplayStatus(state *m.State)
}

// NullUI discards all output. Used by tests and by callers that only care
// about the returned RunReport.
type NullUI struct{}

// OpStarted implements UI.
func (NullUI) OpStarted(m.Operation) {}

// OpFinished implements UI.
func (NullUI) OpFinished(m.Operation, error, time.Duration) {}

// DisplayReport implements UI.
func (NullUI) DisplayReport(*m.RunReport) {}

// DisplayStatus implements UI.
func (NullUI) DisplayStatus(*m.State) {}
