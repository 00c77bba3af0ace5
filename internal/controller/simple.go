package controller

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// WriterUI implements UI by printing plain lines to a writer. It is the
// output path for all non-interactive commands.
type WriterUI struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriterUI creates a WriterUI printing to out.
func NewWriterUI(out io.Writer) *WriterUI {
	return &WriterUI{out: out}
}

func (w *WriterUI) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprintf(w.out, format, args...)
}

// OpStarted implements UI.
func (w *WriterUI) OpStarted(op m.Operation) {
	w.printf("started  %s\n", op.Key())
}

// OpFinished implements UI.
func (w *WriterUI) OpFinished(op m.Operation, err error, elapsed time.Duration) {
	if err != nil {
		w.printf("FAILED   %s (%s): %v\n", op.Key(), elapsed.Round(time.Millisecond), err)
		return
	}

	w.printf("finished %s (%s)\n", op.Key(), elapsed.Round(time.Millisecond))
}

// DisplayReport prints the run outcome: failed and skipped operations plus
// the aggregated verify summary.
func (w *WriterUI) DisplayReport(report *m.RunReport) {
	w.printf("\n%s", RenderReport(report))
}

// DisplayStatus prints one table per source with a row per target.
func (w *WriterUI) DisplayStatus(state *m.State) {
	w.printf("%s", RenderStatus(state))
}

// RenderReport formats a run report as text.
func RenderReport(report *m.RunReport) string {
	var b bytes.Buffer

	fmt.Fprintf(&b, "Run finished: %d completed, %d failed, %d skipped\n",
		len(report.Completed), len(report.Failed), len(report.Skipped))

	for _, res := range report.Failed {
		fmt.Fprintf(&b, "  failed:  %s: %s\n", res.Op, res.Err)
	}

	for _, op := range report.Skipped {
		fmt.Fprintf(&b, "  skipped: %s (upstream failure)\n", op)
	}

	fmt.Fprintf(&b, "Verify summary: %d checked, %d mismatched, %d missing\n",
		report.Summary.Checked, report.Summary.CRCMismatch, report.Summary.Missing)

	return b.String()
}

// RenderStatus formats the staged plan as a table per source.
func RenderStatus(state *m.State) string {
	var b bytes.Buffer

	if len(state.Sources) == 0 {
		return "Nothing staged.\n"
	}

	for _, src := range state.Sources {
		fmt.Fprintf(&b, "Source %s", src.Path)
		if src.Alias != "" {
			fmt.Fprintf(&b, " (alias %s)", src.Alias)
		}

		fmt.Fprintf(&b, "\n  status: %s  algorithm: %s", src.Status, src.HashAlgorithm)
		if src.HashFile != "" {
			fmt.Fprintf(&b, "\n  manifest: %s", src.HashFile)
		}

		b.WriteString("\n")
		b.WriteString(renderTargetTable(src))
		b.WriteString("\n")
	}

	return b.String()
}

func renderTargetTable(src *m.Source) string {
	if len(src.Targets) == 0 {
		return "  no targets\n"
	}

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Target", "Alias", "Status", "Verify", "Checked", "Mismatch", "Missing"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, tgt := range src.Targets {
		verify := "yes"
		if !tgt.Verify {
			verify = "no"
		}

		checked, mismatch, missing := "-", "-", "-"
		if tgt.Verified != nil {
			checked = fmt.Sprintf("%d", tgt.Verified.Checked)
			mismatch = fmt.Sprintf("%d", tgt.Verified.CRCMismatch)
			missing = fmt.Sprintf("%d", tgt.Verified.Missing)
		}

		table.Append([]string{
			tgt.Path, tgt.Alias, string(tgt.Status), verify, checked, mismatch, missing,
		})
	}

	table.Render()

	return buf.String()
}
