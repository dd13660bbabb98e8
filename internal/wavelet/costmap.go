package wavelet

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// CostMaps holds the three gridded cost landscapes produced by one sampling
// pass, all gridSize x gridSize, in a fixed variant order.
type CostMaps struct {
	Sparsity       *mat.Dense
	Combined       *mat.Dense
	Regularization *mat.Dense
}

// SampleCostMap grids the cost functional over the first two filter
// coefficients: row r varies coefficient 1 and column c varies coefficient 0,
// each spanning [-extent, +extent] around its current value, with the
// remaining coefficients held fixed. One evaluator pass per grid point fills
// all three variants, so the cost is O(gridSize^2) evaluations.
func SampleCostMap(e *Evaluator, f *Filter, examples []*mat.Dense, extent float64, gridSize int) (*CostMaps, error) {
	if f.Len() < 2 {
		return nil, &ShapeError{Op: "SampleCostMap", Detail: "filter must have at least 2 coefficients"}
	}
	if gridSize < 2 || extent <= 0 {
		return nil, fmt.Errorf("sample cost map: need gridSize >= 2 and extent > 0, got %d and %v", gridSize, extent)
	}

	base := f.Coeffs()
	probe := f.Clone()
	coeffs := f.Coeffs()

	maps := &CostMaps{
		Sparsity:       mat.NewDense(gridSize, gridSize, nil),
		Combined:       mat.NewDense(gridSize, gridSize, nil),
		Regularization: mat.NewDense(gridSize, gridSize, nil),
	}

	slog.Info("sampling cost map", "grid", gridSize, "extent", extent, "examples", len(examples))
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			coeffs[0] = base[0] + gridOffset(c, gridSize, extent)
			coeffs[1] = base[1] + gridOffset(r, gridSize, extent)
			if err := probe.Set(coeffs); err != nil {
				return nil, err
			}
			costs, err := e.Evaluate(probe, examples)
			if err != nil {
				return nil, err
			}
			maps.Sparsity.Set(r, c, costs.Sparsity)
			maps.Combined.Set(r, c, costs.Combined)
			maps.Regularization.Set(r, c, costs.Regularization)
		}
	}
	return maps, nil
}

// gridOffset maps grid index i to an offset in [-extent, +extent].
func gridOffset(i, gridSize int, extent float64) float64 {
	return extent * (2*float64(i)/float64(gridSize-1) - 1)
}
