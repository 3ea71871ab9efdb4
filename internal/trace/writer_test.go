package trace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"terrainstream/internal/stream"
)

func TestWriterRoundTripsReports(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "frames")
	start := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		r := stream.Report{Frame: uint64(i), Time: start.Add(time.Duration(i) * time.Second), Targets: 9, Loads: i}
		if err := w.Record(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadFile(w.Path(start))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(got))
	}
	for i, r := range got {
		if r.Frame != uint64(i+1) || r.Loads != i+1 || r.Targets != 9 {
			t.Fatalf("report %d decoded as %+v", i, r)
		}
	}
	if w.Lines() != 3 {
		t.Fatalf("lines %d", w.Lines())
	}
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "frames")
	first := time.Date(2024, 5, 1, 10, 59, 59, 0, time.UTC)
	second := first.Add(2 * time.Second)

	if err := w.Record(stream.Report{Frame: 1, Time: first}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.Record(stream.Report{Frame: 2, Time: second}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two hourly files, got %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "frames-2024-05-01-11.jsonl.zst")); err != nil {
		t.Fatalf("second hour file missing: %v", err)
	}
	got, err := ReadFile(w.Path(second))
	if err != nil || len(got) != 1 || got[0].Frame != 2 {
		t.Fatalf("second file holds %+v (%v)", got, err)
	}
}

func TestWriterAppendsAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 2; i++ {
		w := NewWriter(dir, "frames")
		if err := w.Record(stream.Report{Frame: uint64(i), Time: ts}); err != nil {
			t.Fatalf("record: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	got, err := ReadFile(NewWriter(dir, "frames").Path(ts))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[1].Frame != 2 {
		t.Fatalf("expected both sessions, got %+v", got)
	}
}
