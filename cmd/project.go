package main

import (
	"path/filepath"
	"strconv"
)

// projectName composes the run identifier from the name prefix, generator
// mode and filter size, e.g. "Run.needle.N4". Analysis strips the .N<k>
// suffix when naming cost-map caches.
func projectName(prefix, mode string, filterSize int) string {
	return prefix + "." + mode + ".N" + strconv.Itoa(filterSize)
}

// projectDir is the per-project output directory.
func projectDir(outDir, project string) string {
	return filepath.Join(outDir, project)
}

// snapshotPattern is the snapshot series pattern for a project, with the
// 6-digit sequence placeholder.
func snapshotPattern(outDir, project string) string {
	return filepath.Join(projectDir(outDir, project), "snapshots", project+".%06d.snap")
}

// tracePattern is the per-run training trace pattern alongside the
// snapshot series.
func tracePattern(outDir, project string) string {
	return filepath.Join(projectDir(outDir, project), "snapshots", project+".%06d.trace.jsonl")
}
