package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTrace(t *testing.T, path string, resume bool, entries []TraceEntry) {
	t.Helper()
	tw, err := NewTraceWriter(path, resume)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	for _, e := range entries {
		if err := tw.Write(e); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestTraceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace.jsonl")
	now := time.Now().UTC()
	written := []TraceEntry{
		{Iteration: 0, Cost: 1.5, Timestamp: now},
		{Iteration: 1, Cost: 1.2, Timestamp: now, Filter: []float64{0.7, 0.7}},
		{Iteration: 2, Cost: 0.9, Timestamp: now},
	}
	writeTrace(t, path, false, written)

	tr, err := NewTraceReader(path)
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != len(written) {
		t.Fatalf("read %d entries, want %d", len(entries), len(written))
	}
	for i, e := range entries {
		if e.Iteration != written[i].Iteration || e.Cost != written[i].Cost {
			t.Errorf("entry %d = %+v, want %+v", i, e, written[i])
		}
	}
	if len(entries[1].Filter) != 2 {
		t.Errorf("entry 1 filter = %v, want 2 coefficients", entries[1].Filter)
	}
	if entries[0].Filter != nil {
		t.Errorf("entry 0 filter = %v, want omitted", entries[0].Filter)
	}

	if _, err := tr.Read(); err != io.EOF {
		t.Errorf("Read past the end = %v, want io.EOF", err)
	}
}

func TestTraceResumeAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace.jsonl")
	writeTrace(t, path, false, []TraceEntry{{Iteration: 0, Cost: 2, Timestamp: time.Now()}})
	writeTrace(t, path, true, []TraceEntry{{Iteration: 1, Cost: 1, Timestamp: time.Now()}})

	tr, err := NewTraceReader(path)
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 2 || entries[1].Iteration != 1 {
		t.Fatalf("resumed trace holds %+v, want both iterations", entries)
	}
}

func TestTraceTruncateWithoutResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace.jsonl")
	writeTrace(t, path, false, []TraceEntry{{Iteration: 0, Cost: 2, Timestamp: time.Now()}})
	writeTrace(t, path, false, []TraceEntry{{Iteration: 0, Cost: 1, Timestamp: time.Now()}})

	tr, err := NewTraceReader(path)
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Cost != 1 {
		t.Fatalf("fresh trace holds %+v, want the single new entry", entries)
	}
}

func TestTraceReaderErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewTraceReader(filepath.Join(dir, "absent.jsonl")); !errors.Is(err, &NotFoundError{}) {
		t.Fatalf("NewTraceReader for a missing file = %v, want NotFoundError", err)
	}

	path := filepath.Join(dir, "bad.jsonl")
	if err := os.WriteFile(path, []byte("{broken\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tr, err := NewTraceReader(path)
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()
	if _, err := tr.Read(); !errors.Is(err, &FormatError{}) {
		t.Fatalf("Read of a broken line = %v, want FormatError", err)
	}
}
