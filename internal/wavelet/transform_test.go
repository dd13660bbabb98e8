package wavelet

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// newDaubechies4 returns the D4 filter, orthonormal like Haar but with
// four taps, so it exercises the wrap-around in the periodic convolution.
func newDaubechies4(t *testing.T) *Filter {
	t.Helper()
	s := 4 * math.Sqrt2
	f, err := NewFilter([]float64{
		(1 + math.Sqrt(3)) / s,
		(3 + math.Sqrt(3)) / s,
		(3 - math.Sqrt(3)) / s,
		(1 - math.Sqrt(3)) / s,
	})
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}
	return f
}

func randomMatrix(t *testing.T, rows, cols int, seed int64) *mat.Dense {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, 2*rng.Float64()-1)
		}
	}
	return out
}

func TestForwardInverseRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		filter *Filter
	}{
		{"haar", NewHaarFilter()},
		{"daubechies4", newDaubechies4(t)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := randomMatrix(t, 8, 8, 11)
			coeffs, err := Forward2D(tc.filter, in)
			if err != nil {
				t.Fatalf("Forward2D failed: %v", err)
			}
			back, err := Inverse2D(tc.filter, coeffs)
			if err != nil {
				t.Fatalf("Inverse2D failed: %v", err)
			}
			for r := 0; r < 8; r++ {
				for c := 0; c < 8; c++ {
					if math.Abs(back.At(r, c)-in.At(r, c)) > tol {
						t.Fatalf("round trip mismatch at (%d,%d): got %v, want %v",
							r, c, back.At(r, c), in.At(r, c))
					}
				}
			}
		})
	}
}

func TestForwardPreservesEnergy(t *testing.T) {
	f := NewHaarFilter()
	in := randomMatrix(t, 16, 16, 3)

	coeffs, err := Forward2D(f, in)
	if err != nil {
		t.Fatalf("Forward2D failed: %v", err)
	}

	energy := func(m *mat.Dense) float64 {
		var sum float64
		rows, cols := m.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				sum += m.At(r, c) * m.At(r, c)
			}
		}
		return sum
	}

	if math.Abs(energy(in)-energy(coeffs)) > 1e-6 {
		t.Errorf("energy not preserved: %v -> %v", energy(in), energy(coeffs))
	}
}

func TestForwardRejectsNonRadix2(t *testing.T) {
	f := NewHaarFilter()
	in := mat.NewDense(12, 16, nil)

	if _, err := Forward2D(f, in); !errors.Is(err, &ShapeError{}) {
		t.Errorf("Forward2D: expected ShapeError, got %v", err)
	}
	if _, err := Inverse2D(f, in); !errors.Is(err, &ShapeError{}) {
		t.Errorf("Inverse2D: expected ShapeError, got %v", err)
	}
}

func TestForwardDoesNotMutateInput(t *testing.T) {
	f := NewHaarFilter()
	in := randomMatrix(t, 4, 4, 5)
	want := mat.DenseCopyOf(in)

	if _, err := Forward2D(f, in); err != nil {
		t.Fatalf("Forward2D failed: %v", err)
	}
	if !mat.Equal(in, want) {
		t.Error("Forward2D mutated its input")
	}
}

func TestRectangularTransform(t *testing.T) {
	f := NewHaarFilter()
	in := randomMatrix(t, 4, 16, 9)

	coeffs, err := Forward2D(f, in)
	if err != nil {
		t.Fatalf("Forward2D failed: %v", err)
	}
	back, err := Inverse2D(f, coeffs)
	if err != nil {
		t.Fatalf("Inverse2D failed: %v", err)
	}
	for r := 0; r < 4; r++ {
		for c := 0; c < 16; c++ {
			if math.Abs(back.At(r, c)-in.At(r, c)) > tol {
				t.Fatalf("round trip mismatch at (%d,%d)", r, c)
			}
		}
	}
}
