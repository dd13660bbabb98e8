package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"gonum.org/v1/gonum/mat"
)

// filterCountSuffix matches the .N<k> filter-count component of a project
// name, e.g. the ".N4" in "Run.Needle.N4". Cost maps grid the first two
// coefficients only, so maps are shared across filter sizes and the suffix
// is stripped from cache filenames.
var filterCountSuffix = regexp.MustCompile(`\.N\d+`)

// CostMapCache persists the three cost-map variants of a project as sibling
// JSON files. Sampling a map is the dominant expense in offline analysis;
// when all three files are present, re-sampling is skipped entirely.
type CostMapCache struct {
	dir     string
	project string
}

// NewCostMapCache creates a cache rooted at dir for the given project name.
func NewCostMapCache(dir, project string) *CostMapCache {
	return &CostMapCache{dir: dir, project: project}
}

// costMapPayload is the on-disk matrix layout.
type costMapPayload struct {
	Version int       `json:"version"`
	Rows    int       `json:"rows"`
	Cols    int       `json:"cols"`
	Data    []float64 `json:"data"` // row-major
}

func (c *CostMapCache) path(variant string) string {
	stripped := filterCountSuffix.ReplaceAllString(c.project, "")
	return filepath.Join(c.dir, variant+"."+stripped+".json")
}

// Paths returns the three cache file paths in variant order
// (sparsity, combined, regularization).
func (c *CostMapCache) Paths() [3]string {
	return [3]string{c.path("costMapSparse"), c.path("costMap"), c.path("costMapReg")}
}

// Complete reports whether all three variant files are present.
func (c *CostMapCache) Complete() bool {
	for _, path := range c.Paths() {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// Save writes the three variants, each atomically.
func (c *CostMapCache) Save(sparsity, combined, regularization *mat.Dense) error {
	paths := c.Paths()
	for i, m := range []*mat.Dense{sparsity, combined, regularization} {
		if err := saveMatrix(paths[i], m); err != nil {
			return err
		}
	}
	slog.Debug("cost maps cached", "project", c.project, "dir", c.dir)
	return nil
}

// Load reads the three variants back in the same order Save wrote them.
func (c *CostMapCache) Load() (sparsity, combined, regularization *mat.Dense, err error) {
	paths := c.Paths()
	mats := make([]*mat.Dense, 3)
	for i, path := range paths {
		mats[i], err = loadMatrix(path)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return mats[0], mats[1], mats[2], nil
}

func saveMatrix(path string, m *mat.Dense) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cost map directory: %w", err)
	}

	rows, cols := m.Dims()
	payload := costMapPayload{
		Version: SnapshotVersion,
		Rows:    rows,
		Cols:    cols,
		Data:    make([]float64, 0, rows*cols),
	}
	for r := 0; r < rows; r++ {
		payload.Data = append(payload.Data, m.RawRowView(r)...)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serialize cost map: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp cost map file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename cost map file: %w", err)
	}
	return nil
}

func loadMatrix(path string) (*mat.Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("read cost map file: %w", err)
	}

	var payload costMapPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &FormatError{Path: path, Reason: err.Error()}
	}
	if payload.Version != SnapshotVersion {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("unsupported version %d", payload.Version)}
	}
	if payload.Rows <= 0 || payload.Cols <= 0 || len(payload.Data) != payload.Rows*payload.Cols {
		return nil, &FormatError{
			Path:   path,
			Reason: fmt.Sprintf("%dx%d shape does not match %d values", payload.Rows, payload.Cols, len(payload.Data)),
		}
	}
	return mat.NewDense(payload.Rows, payload.Cols, payload.Data), nil
}
