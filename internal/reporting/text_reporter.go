package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

// TextReporter prints a per-field table followed by a summary line.
type TextReporter struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func NewTextReporter(w io.WriteCloser) *TextReporter {
	return &TextReporter{w: w}
}

func (r *TextReporter) Write(report *schemas.FillReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tKIND\tSTATUS\tSTRATEGY\tDETAIL")
	for _, o := range report.Outcomes {
		status := "filled"
		if !o.Filled {
			status = string(o.Failure)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Field, o.Kind, status, dash(o.Strategy), dash(o.Detail))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write fill report: %w", err)
	}

	_, err := fmt.Fprintln(r.w, Summary(report))
	return err
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Close()
}

// Summary is the one-line outcome of a fill.
func Summary(report *schemas.FillReport) string {
	var b strings.Builder
	if report.Success {
		b.WriteString("Form filled successfully")
	} else {
		b.WriteString("Form partially filled")
	}
	fmt.Fprintf(&b, ": %d filled, %d failed", len(report.Filled), len(report.Failed))
	if len(report.Failed) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(report.Failed, ", "))
	}
	if !report.FinishedAt.IsZero() && !report.StartedAt.IsZero() {
		fmt.Fprintf(&b, " in %s", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}
	return b.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
