package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// numberPlaceholder is the verb every snapshot pattern must contain; it
// expands to the zero-padded sequence number in filenames like
// run.000001.snap.
const numberPlaceholder = "%06d"

// SnapStore manages the numbered snapshot file series of one run, addressed
// by a filename pattern containing a 6-digit sequence placeholder.
//
// Writes use the temp-file-plus-rename pattern, so a crash mid-save never
// leaves a partially written snapshot at the final path. Concurrent runs
// must use disjoint patterns; within one pattern the store itself keeps no
// mutable state.
type SnapStore struct {
	pattern string
}

// NewSnapStore creates a store for the given pattern. The pattern must
// contain the %06d sequence placeholder exactly once.
func NewSnapStore(pattern string) (*SnapStore, error) {
	if strings.Count(pattern, numberPlaceholder) != 1 {
		return nil, fmt.Errorf("snapshot pattern %q must contain %q exactly once", pattern, numberPlaceholder)
	}
	return &SnapStore{pattern: pattern}, nil
}

// File returns the path of the snapshot file for the given number.
func (s *SnapStore) File(number int) string {
	return fmt.Sprintf(s.pattern, number)
}

// Exists reports whether a snapshot file is present for the given number.
func (s *SnapStore) Exists(number int) bool {
	_, err := os.Stat(s.File(number))
	return err == nil
}

// Save validates and writes the snapshot under the given number,
// overwriting any existing file at that exact number. The write is atomic:
// serialize to a sibling temp file, then rename into place.
func (s *SnapStore) Save(number int, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("save snapshot %d: snapshot cannot be nil", number)
	}
	snap.Number = number
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("save snapshot %d: %w", number, err)
	}

	path := s.File(number)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize snapshot %d: %w", number, err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp snapshot file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename snapshot file: %w", err)
	}

	slog.Debug("snapshot saved", "number", number, "path", path, "iterations", len(snap.CostLog))
	return nil
}

// Load reads and validates the snapshot for the given number. A missing
// file is NotFoundError, an unreadable one a wrapped I/O error, and a file
// that parses but violates the layout a FormatError.
func (s *SnapStore) Load(number int) (*Snapshot, error) {
	snap, err := LoadFile(s.File(number))
	if err != nil {
		return nil, err
	}
	slog.Debug("snapshot loaded", "number", number, "path", s.File(number), "iterations", len(snap.CostLog))
	return snap, nil
}

// LoadFile reads and validates a single snapshot file by path.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &FormatError{Path: path, Reason: err.Error()}
	}
	if err := snap.Validate(); err != nil {
		if fe, ok := err.(*FormatError); ok {
			fe.Path = path
		}
		return nil, err
	}
	return &snap, nil
}

// Cursor walks a snapshot series sequentially. The caller checks Exists
// before loading; a missing file at the current number is the ordinary
// end-of-sequence condition, not an error.
type Cursor struct {
	store  *SnapStore
	number int
}

// Cursor returns a cursor positioned at the given starting number.
func (s *SnapStore) Cursor(start int) *Cursor {
	return &Cursor{store: s, number: start}
}

// Number returns the current sequence number.
func (c *Cursor) Number() int { return c.number }

// File returns the path of the snapshot file at the current position.
func (c *Cursor) File() string { return c.store.File(c.number) }

// Exists reports whether a snapshot is present at the current position.
func (c *Cursor) Exists() bool { return c.store.Exists(c.number) }

// Load reads the snapshot at the current position.
func (c *Cursor) Load() (*Snapshot, error) { return c.store.Load(c.number) }

// Next advances to the following sequence number.
func (c *Cursor) Next() { c.number++ }

// SetNumber repositions the cursor at an arbitrary sequence number.
func (c *Cursor) SetNumber(number int) { c.number = number }
