package wavelet

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// BasisFunction synthesizes the 2D basis function of f at coefficient-space
// position (i, j) for a sizeX x sizeY output, by placing a unit impulse at
// (i, j) and cascading it back through the resolution pyramid. The result is
// a pure function of the filter and arguments.
func BasisFunction(f *Filter, sizeX, sizeY, i, j int) (*mat.Dense, error) {
	if err := checkRadix2("BasisFunction", sizeX, sizeY); err != nil {
		return nil, err
	}
	if i < 0 || i >= sizeX || j < 0 || j >= sizeY {
		return nil, &ShapeError{
			Op:     "BasisFunction",
			Detail: fmt.Sprintf("position (%d,%d) outside %dx%d grid", i, j, sizeX, sizeY),
		}
	}
	impulse := mat.NewDense(sizeX, sizeY, nil)
	impulse.Set(i, j, 1)
	return Inverse2D(f, impulse)
}

// Overlap returns trace(a b^T), the inner product of two equally shaped
// basis functions. For an orthonormal filter the self overlap is 1 and the
// overlap of distinct basis functions is 0.
func Overlap(a, b *mat.Dense) float64 {
	rows, cols := a.Dims()
	var sum float64
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			sum += a.At(r, c) * b.At(r, c)
		}
	}
	return sum
}
