package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// TraceEntry is one line of the training trace: the cost and, optionally,
// the filter coefficients at one iteration. The trace is a lightweight
// append-only complement to snapshots, cheap enough to write every
// iteration.
type TraceEntry struct {
	Iteration int       `json:"iteration"`
	Cost      float64   `json:"cost"`
	Timestamp time.Time `json:"timestamp"`
	Filter    []float64 `json:"filter,omitempty"`
}

// TraceWriter appends trace entries to a JSONL file next to the snapshot
// series. Buffered; call Flush or Close to make entries durable.
type TraceWriter struct {
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTraceWriter opens the trace file at path, appending to an existing
// trace when resuming a run.
func NewTraceWriter(path string, resume bool) (*TraceWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}

	var file *os.File
	var err error
	if resume {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write appends one entry as a JSON line.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	if err := tw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write trace newline: %w", err)
	}
	return nil
}

// Flush writes buffered entries and syncs the file.
func (tw *TraceWriter) Flush() error {
	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("flush trace writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("sync trace file: %w", err)
	}
	return nil
}

// Close flushes and closes the trace file.
func (tw *TraceWriter) Close() error {
	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("flush trace on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("close trace file: %w", err)
	}
	return nil
}

// Path returns the trace file path.
func (tw *TraceWriter) Path() string { return tw.path }

// TraceReader reads trace entries back from a JSONL file.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewTraceReader opens the trace file at path for reading.
func NewTraceReader(path string) (*TraceReader, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &TraceReader{file: file, scanner: scanner}, nil
}

// Read returns the next entry, or io.EOF at the end of the trace.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan trace line: %w", err)
		}
		return nil, io.EOF
	}
	var entry TraceEntry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, &FormatError{Path: tr.file.Name(), Reason: err.Error()}
	}
	return &entry, nil
}

// ReadAll drains the remaining entries.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Close closes the trace reader.
func (tr *TraceReader) Close() error {
	return tr.file.Close()
}
