package wavelet

import (
	"fmt"
	"math"
	"math/rand"
)

// Filter holds the low-pass coefficient vector being optimized. The length
// is fixed for the lifetime of the filter; changing it requires a new run.
type Filter struct {
	coeffs []float64
}

// NewFilter creates a filter from the given low-pass coefficients.
// The length must be even and at least 2.
func NewFilter(coeffs []float64) (*Filter, error) {
	if len(coeffs) < 2 || len(coeffs)%2 != 0 {
		return nil, &ShapeError{
			Op:     "NewFilter",
			Detail: fmt.Sprintf("filter length must be even and >= 2, got %d", len(coeffs)),
		}
	}
	f := &Filter{coeffs: make([]float64, len(coeffs))}
	copy(f.coeffs, coeffs)
	return f, nil
}

// NewHaarFilter returns the 2-tap Haar filter, which induces an exactly
// orthonormal basis. Useful as a known-good starting point and in tests.
func NewHaarFilter() *Filter {
	h := 1.0 / math.Sqrt2
	return &Filter{coeffs: []float64{h, h}}
}

// NewRandomFilter returns a filter of length n drawn uniformly from the unit
// n-sphere. Deterministic for a given rng state.
func NewRandomFilter(n int, rng *rand.Rand) (*Filter, error) {
	if n < 2 || n%2 != 0 {
		return nil, &ShapeError{
			Op:     "NewRandomFilter",
			Detail: fmt.Sprintf("filter length must be even and >= 2, got %d", n),
		}
	}
	coeffs := make([]float64, n)
	var norm float64
	for i := range coeffs {
		coeffs[i] = rng.NormFloat64()
		norm += coeffs[i] * coeffs[i]
	}
	norm = math.Sqrt(norm)
	for i := range coeffs {
		coeffs[i] /= norm
	}
	return &Filter{coeffs: coeffs}, nil
}

// Len returns the number of coefficients.
func (f *Filter) Len() int {
	return len(f.coeffs)
}

// Coeffs returns a copy of the low-pass coefficients.
func (f *Filter) Coeffs() []float64 {
	out := make([]float64, len(f.coeffs))
	copy(out, f.coeffs)
	return out
}

// Set replaces the coefficients. The length must match the existing one;
// a mismatch fails with ShapeError and leaves the filter unchanged.
func (f *Filter) Set(coeffs []float64) error {
	if len(coeffs) != len(f.coeffs) {
		return &ShapeError{
			Op:     "Filter.Set",
			Detail: fmt.Sprintf("length %d does not match run length %d", len(coeffs), len(f.coeffs)),
		}
	}
	copy(f.coeffs, coeffs)
	return nil
}

// HighPass returns the quadrature mirror of the low-pass coefficients:
// b[k] = (-1)^k a[N-1-k]. Together the two define the two-scale relation.
func (f *Filter) HighPass() []float64 {
	n := len(f.coeffs)
	b := make([]float64, n)
	for k := 0; k < n; k++ {
		b[k] = f.coeffs[n-1-k]
		if k%2 == 1 {
			b[k] = -b[k]
		}
	}
	return b
}

// Clone returns an independent copy of the filter.
func (f *Filter) Clone() *Filter {
	return &Filter{coeffs: f.Coeffs()}
}

// IsRadix2 reports whether n is a positive power of two.
func IsRadix2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
