package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// writeCSV writes a numeric table with a header row. This is the handoff
// format to the external rendering layer: plain ordered numbers, no
// styling.
func writeCSV(path string, header []string, rows [][]float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// writeMatrixCSV writes a matrix row by row, without a header.
func writeMatrixCSV(path string, m *mat.Dense) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows, cols := m.Dims()
	record := make([]string, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			record[c] = strconv.FormatFloat(m.At(r, c), 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write matrix row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
