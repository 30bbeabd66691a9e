package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"pgstatprof/pkg/summary"
)

func testReport() Report {
	return Report{
		Time:      time.Date(2024, 3, 9, 14, 5, 7, 42_000_000, time.FixedZone("JST", 9*60*60)),
		Signature: 3,
		Entries: []summary.Entry{
			{Shape: "SELECT * FROM users WHERE id = N", Count: 120},
			{Shape: "UPDATE t SET a = S", Count: 7},
			{Shape: "COMMIT", Count: 12345},
		},
	}
}

func TestHeader(t *testing.T) {
	got := testReport().Header()
	want := "## 2024-03-09 14:05:07.042 +0900"
	if got != want {
		t.Errorf("Header() = %q, want %q", got, want)
	}
}

func TestTextEmit(t *testing.T) {
	var buf bytes.Buffer
	if err := NewText(&buf).Emit(testReport()); err != nil {
		t.Fatalf("Emit() error: %v", err)
	}

	want := strings.Join([]string{
		"## 2024-03-09 14:05:07.042 +0900",
		" 120 SELECT * FROM users WHERE id = N",
		"   7 UPDATE t SET a = S",
		"12345 COMMIT",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("Emit() wrote\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestTextEmitEmpty(t *testing.T) {
	var buf bytes.Buffer
	r := testReport()
	r.Entries = nil
	if err := NewText(&buf).Emit(r); err != nil {
		t.Fatalf("Emit() error: %v", err)
	}
	if buf.String() != "## 2024-03-09 14:05:07.042 +0900\n" {
		t.Errorf("Expected header only, got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	r := testReport()

	if got := r.Truncate(2); len(got.Entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(got.Entries))
	}
	if got := r.Truncate(10); len(got.Entries) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(got.Entries))
	}
	if got := r.Truncate(-1); len(got.Entries) != 3 {
		t.Errorf("Expected negative limit to keep all entries, got %d", len(got.Entries))
	}
	if len(r.Entries) != 3 {
		t.Errorf("Truncate modified the original report")
	}
}

type recordingReporter struct {
	got []Report
	err error
}

func (r *recordingReporter) Emit(rep Report) error {
	r.got = append(r.got, rep)
	return r.err
}

func TestMulti(t *testing.T) {
	first := &recordingReporter{}
	failing := &recordingReporter{err: errors.New("boom")}
	last := &recordingReporter{}

	err := Multi{first, failing, last}.Emit(testReport())
	if err == nil {
		t.Fatal("Expected error from failing reporter")
	}
	if len(first.got) != 1 || len(failing.got) != 1 {
		t.Errorf("Expected reporters before the failure to receive the report")
	}
	if len(last.got) != 0 {
		t.Errorf("Expected reporters after the failure to be skipped")
	}
}
