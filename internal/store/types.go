package store

import (
	"fmt"
	"time"
)

// SnapshotVersion is the on-disk format version. Bumped on any layout
// change; Load rejects other versions with FormatError.
const SnapshotVersion = 1

// RunConfig holds the configuration of one training run. It is persisted
// inside every snapshot so a run can be validated and resumed later.
type RunConfig struct {
	Project            string  `json:"project"`
	Mode               string  `json:"mode"` // uniform, needle, gaussian
	FilterSize         int     `json:"filterSize"`
	Shape              [2]int  `json:"shape"`
	MaxIterations      int     `json:"maxIterations"`
	LearningRate       float64 `json:"learningRate"`
	Momentum           float64 `json:"momentum"`
	Lambda             float64 `json:"lambda"`
	BatchSize          int     `json:"batchSize"`
	Seed               int64   `json:"seed"`
	CheckpointInterval int     `json:"checkpointInterval,omitempty"`
}

// Snapshot is one numbered unit of persisted training state: the current
// filter plus the full filter and cost logs of the run. Snapshots are
// immutable once written; a later-numbered snapshot supersedes rather than
// mutates an earlier one. Iteration indices are implicit: log entry i
// belongs to iteration i.
type Snapshot struct {
	Version   int         `json:"version"`
	Project   string      `json:"project"`
	Number    int         `json:"number"`
	Filter    []float64   `json:"filter"`
	FilterLog [][]float64 `json:"filterLog"`
	CostLog   []float64   `json:"costLog"`
	Timestamp time.Time   `json:"timestamp"`
	Config    RunConfig   `json:"config"`
}

// NewSnapshot assembles a snapshot from run state.
func NewSnapshot(number int, filter []float64, filterLog [][]float64, costLog []float64, config RunConfig) *Snapshot {
	return &Snapshot{
		Version:   SnapshotVersion,
		Project:   config.Project,
		Number:    number,
		Filter:    filter,
		FilterLog: filterLog,
		CostLog:   costLog,
		Timestamp: time.Now(),
		Config:    config,
	}
}

// SnapshotInfo is the metadata view of a snapshot, for listings that do not
// need the full logs.
type SnapshotInfo struct {
	Project    string    `json:"project"`
	Number     int       `json:"number"`
	Iterations int       `json:"iterations"`
	FinalCost  float64   `json:"finalCost"`
	Timestamp  time.Time `json:"timestamp"`
	Mode       string    `json:"mode"`
	FilterSize int       `json:"filterSize"`
}

// ToInfo converts a full snapshot to its metadata view.
func (s *Snapshot) ToInfo() SnapshotInfo {
	info := SnapshotInfo{
		Project:    s.Project,
		Number:     s.Number,
		Iterations: len(s.CostLog),
		Timestamp:  s.Timestamp,
		Mode:       s.Config.Mode,
		FilterSize: s.Config.FilterSize,
	}
	if n := len(s.CostLog); n > 0 {
		info.FinalCost = s.CostLog[n-1]
	}
	return info
}

// Validate checks the structural invariants of a snapshot. Violations are
// reported as FormatError so a parsed-but-malformed file is distinguishable
// from an unreadable one.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return &FormatError{Reason: fmt.Sprintf("unsupported version %d (want %d)", s.Version, SnapshotVersion)}
	}
	if s.Project == "" {
		return &FormatError{Reason: "project cannot be empty"}
	}
	if s.Number < 1 {
		return &FormatError{Reason: fmt.Sprintf("number must be >= 1, got %d", s.Number)}
	}
	if len(s.Filter) == 0 {
		return &FormatError{Reason: "filter cannot be empty"}
	}
	// The cost log may run one entry ahead of the filter log while a run is
	// still active; anything else is corruption.
	if len(s.CostLog) != len(s.FilterLog) && len(s.CostLog) != len(s.FilterLog)+1 {
		return &FormatError{
			Reason: fmt.Sprintf("filter log has %d entries, cost log %d", len(s.FilterLog), len(s.CostLog)),
		}
	}
	for i, entry := range s.FilterLog {
		if len(entry) != len(s.Filter) {
			return &FormatError{
				Reason: fmt.Sprintf("filter log entry %d has length %d, filter has %d", i, len(entry), len(s.Filter)),
			}
		}
	}
	if s.Timestamp.IsZero() {
		return &FormatError{Reason: "timestamp cannot be zero"}
	}
	return nil
}

// NotFoundError reports a snapshot number with no file behind it.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	if e.Path != "" {
		return "snapshot not found: " + e.Path
	}
	return "snapshot not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// FormatError reports a file that was readable but is not a valid snapshot
// or cost-map payload.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Path != "" {
		return "format error: " + e.Path + ": " + e.Reason
	}
	return "format error: " + e.Reason
}

func (e *FormatError) Is(target error) bool {
	_, ok := target.(*FormatError)
	return ok
}
