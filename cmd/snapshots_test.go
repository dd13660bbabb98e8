package main

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/waveletfit/internal/store"
)

func snapFile(project string, number int, age time.Duration) snapshotFile {
	return snapshotFile{
		Path: filepath.Join("out", project, "snapshots", fmt.Sprintf("%s.%06d.snap", project, number)),
		Info: store.SnapshotInfo{
			Project:   project,
			Number:    number,
			Timestamp: time.Now().Add(-age),
		},
	}
}

func TestSelectSnapshotsForDeletionKeepLast(t *testing.T) {
	files := []snapshotFile{
		snapFile("a", 1, 0), snapFile("a", 2, 0), snapFile("a", 3, 0),
		snapFile("b", 1, 0),
	}

	toDelete := selectSnapshotsForDeletion(files, 2, 0)
	if len(toDelete) != 1 {
		t.Fatalf("selected %d files, want 1", len(toDelete))
	}
	// Only project a exceeds the retention count; its lowest number goes.
	if toDelete[0].Info.Project != "a" || toDelete[0].Info.Number != 1 {
		t.Errorf("selected %s #%d, want a #1", toDelete[0].Info.Project, toDelete[0].Info.Number)
	}
}

func TestSelectSnapshotsForDeletionOlderThan(t *testing.T) {
	files := []snapshotFile{
		snapFile("a", 1, 72*time.Hour),
		snapFile("a", 2, time.Hour),
	}

	toDelete := selectSnapshotsForDeletion(files, 0, 2)
	if len(toDelete) != 1 || toDelete[0].Info.Number != 1 {
		t.Fatalf("selected %v, want only the 3-day-old snapshot", toDelete)
	}
}

func TestSelectSnapshotsForDeletionCombinedPoliciesDeduplicate(t *testing.T) {
	files := []snapshotFile{
		snapFile("a", 1, 72*time.Hour),
		snapFile("a", 2, 72*time.Hour),
		snapFile("a", 3, time.Hour),
	}

	// Snapshot 1 matches both the age cutoff and the count policy; it must
	// appear once.
	toDelete := selectSnapshotsForDeletion(files, 1, 2)
	if len(toDelete) != 2 {
		t.Fatalf("selected %d files, want 2", len(toDelete))
	}
	seen := map[int]int{}
	for _, f := range toDelete {
		seen[f.Info.Number]++
	}
	if seen[1] != 1 || seen[2] != 1 {
		t.Errorf("selected numbers %v, want 1 and 2 exactly once each", seen)
	}
}

func TestSelectSnapshotsForDeletionNoPolicies(t *testing.T) {
	files := []snapshotFile{snapFile("a", 1, 72*time.Hour)}
	if got := selectSnapshotsForDeletion(files, 0, 0); len(got) != 0 {
		t.Errorf("no policy selected %d files, want 0", len(got))
	}
}
