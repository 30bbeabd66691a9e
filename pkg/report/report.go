// Package report renders ranked query summaries.
package report

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"pgstatprof/pkg/summary"
)

// TimeLayout is the header timestamp: local date, time to the millisecond
// and UTC offset.
const TimeLayout = "2006-01-02 15:04:05.000 -0700"

// Report is one emitted summary.
type Report struct {
	Time      time.Time       `json:"time"`
	Signature int             `json:"signature"`
	Entries   []summary.Entry `json:"entries"`
}

// Header returns the report header line without a trailing newline.
func (r Report) Header() string {
	return "## " + r.Time.Format(TimeLayout)
}

// Truncate returns a copy limited to the first n entries.
func (r Report) Truncate(n int) Report {
	if n < 0 || n >= len(r.Entries) {
		return r
	}
	out := r
	out.Entries = r.Entries[:n]
	return out
}

// Reporter receives every emitted report.
type Reporter interface {
	Emit(r Report) error
}

// Multi sends each report to every reporter in order.
type Multi []Reporter

// Emit stops at the first failing reporter.
func (m Multi) Emit(r Report) error {
	for _, rep := range m {
		if err := rep.Emit(r); err != nil {
			return err
		}
	}
	return nil
}

// Text writes reports as plain text lines.
type Text struct {
	w io.Writer
}

// NewText creates a text reporter writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Emit writes the header followed by one line per entry.
func (t *Text) Emit(r Report) error {
	bw := bufio.NewWriter(t.w)
	fmt.Fprintln(bw, r.Header())
	for _, e := range r.Entries {
		fmt.Fprintf(bw, "%4d %s\n", e.Count, e.Shape)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
