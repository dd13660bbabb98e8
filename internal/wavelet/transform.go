package wavelet

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// forwardStep performs one periodic analysis step on x, writing the
// approximation into the first half of out and the detail into the second.
func forwardStep(low, high, x, out []float64) {
	n := len(x)
	half := n / 2
	for i := 0; i < half; i++ {
		var a, d float64
		for k := range low {
			v := x[(2*i+k)%n]
			a += low[k] * v
			d += high[k] * v
		}
		out[i] = a
		out[half+i] = d
	}
}

// inverseStep performs one periodic synthesis step, combining the
// approximation and detail halves of x back into out.
func inverseStep(low, high, approx, detail, out []float64) {
	n := 2 * len(approx)
	for i := range out[:n] {
		out[i] = 0
	}
	for i, a := range approx {
		d := detail[i]
		for k := range low {
			out[(2*i+k)%n] += low[k]*a + high[k]*d
		}
	}
}

// forward1D runs the full analysis pyramid in place: buf[0] ends up as the
// coarsest approximation, followed by detail bands of increasing resolution.
func forward1D(low, high, buf, scratch []float64) {
	for n := len(buf); n >= 2; n /= 2 {
		forwardStep(low, high, buf[:n], scratch[:n])
		copy(buf[:n], scratch[:n])
	}
}

// inverse1D runs the synthesis pyramid in place, undoing forward1D.
func inverse1D(low, high, buf, scratch []float64) {
	for n := 2; n <= len(buf); n *= 2 {
		inverseStep(low, high, buf[:n/2], buf[n/2:n], scratch[:n])
		copy(buf[:n], scratch[:n])
	}
}

func checkRadix2(op string, rows, cols int) error {
	if !IsRadix2(rows) || !IsRadix2(cols) {
		return &ShapeError{
			Op:     op,
			Detail: fmt.Sprintf("size %dx%d is not radix 2", rows, cols),
		}
	}
	return nil
}

// Forward2D applies the separable 2D wavelet transform of the filter to m,
// rows first, then columns. Both dimensions must be radix 2.
func Forward2D(f *Filter, m *mat.Dense) (*mat.Dense, error) {
	rows, cols := m.Dims()
	if err := checkRadix2("Forward2D", rows, cols); err != nil {
		return nil, err
	}
	low := f.coeffs
	high := f.HighPass()

	out := mat.DenseCopyOf(m)
	scratch := make([]float64, max(rows, cols))
	for r := 0; r < rows; r++ {
		forward1D(low, high, out.RawRowView(r), scratch)
	}
	col := make([]float64, rows)
	for c := 0; c < cols; c++ {
		mat.Col(col, c, out)
		forward1D(low, high, col, scratch)
		out.SetCol(c, col)
	}
	return out, nil
}

// Inverse2D undoes Forward2D: columns first, then rows.
func Inverse2D(f *Filter, m *mat.Dense) (*mat.Dense, error) {
	rows, cols := m.Dims()
	if err := checkRadix2("Inverse2D", rows, cols); err != nil {
		return nil, err
	}
	low := f.coeffs
	high := f.HighPass()

	out := mat.DenseCopyOf(m)
	scratch := make([]float64, max(rows, cols))
	col := make([]float64, rows)
	for c := 0; c < cols; c++ {
		mat.Col(col, c, out)
		inverse1D(low, high, col, scratch)
		out.SetCol(c, col)
	}
	for r := 0; r < rows; r++ {
		inverse1D(low, high, out.RawRowView(r), scratch)
	}
	return out, nil
}
