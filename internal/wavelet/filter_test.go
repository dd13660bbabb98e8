package wavelet

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

const tol = 1e-9

func TestNewFilterRejectsBadLength(t *testing.T) {
	cases := []struct {
		name   string
		coeffs []float64
	}{
		{"empty", nil},
		{"single", []float64{1}},
		{"odd", []float64{0.5, 0.5, 0.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFilter(tc.coeffs)
			if !errors.Is(err, &ShapeError{}) {
				t.Fatalf("expected ShapeError, got %v", err)
			}
		})
	}
}

func TestSetRejectsLengthChange(t *testing.T) {
	f, err := NewFilter([]float64{0.1, 0.2, 0.3, 0.4})
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	if err := f.Set([]float64{0.5, 0.5}); !errors.Is(err, &ShapeError{}) {
		t.Fatalf("expected ShapeError, got %v", err)
	}

	// The failed Set must leave the coefficients untouched.
	want := []float64{0.1, 0.2, 0.3, 0.4}
	got := f.Coeffs()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("coefficient %d changed: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSetReplacesCoefficients(t *testing.T) {
	f, _ := NewFilter([]float64{0, 0})
	if err := f.Set([]float64{0.25, -0.75}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got := f.Coeffs()
	if got[0] != 0.25 || got[1] != -0.75 {
		t.Errorf("unexpected coefficients: %v", got)
	}
}

func TestCoeffsReturnsCopy(t *testing.T) {
	f := NewHaarFilter()
	coeffs := f.Coeffs()
	coeffs[0] = 99

	if f.Coeffs()[0] == 99 {
		t.Error("mutating the returned slice changed the filter")
	}
}

func TestHighPassQuadratureMirror(t *testing.T) {
	h := 1.0 / math.Sqrt2
	f := NewHaarFilter()

	b := f.HighPass()
	if math.Abs(b[0]-h) > tol || math.Abs(b[1]+h) > tol {
		t.Errorf("Haar high-pass = %v, want [%v %v]", b, h, -h)
	}

	// b[k] = (-1)^k a[N-1-k] for a longer filter.
	f4, _ := NewFilter([]float64{1, 2, 3, 4})
	b4 := f4.HighPass()
	want := []float64{4, -3, 2, -1}
	for i := range want {
		if b4[i] != want[i] {
			t.Errorf("high-pass[%d] = %v, want %v", i, b4[i], want[i])
		}
	}
}

func TestIsRadix2(t *testing.T) {
	cases := []struct {
		n    int
		want bool
	}{
		{1, true}, {2, true}, {4, true}, {16, true}, {1024, true},
		{0, false}, {-4, false}, {3, false}, {15, false}, {24, false},
	}
	for _, tc := range cases {
		if got := IsRadix2(tc.n); got != tc.want {
			t.Errorf("IsRadix2(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}

func TestNewRandomFilter(t *testing.T) {
	f, err := NewRandomFilter(6, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("NewRandomFilter failed: %v", err)
	}

	var norm float64
	for _, c := range f.Coeffs() {
		norm += c * c
	}
	if math.Abs(norm-1) > tol {
		t.Errorf("squared norm = %v, want 1", norm)
	}

	// Same seed, same filter.
	g, _ := NewRandomFilter(6, rand.New(rand.NewSource(7)))
	for i, c := range f.Coeffs() {
		if g.Coeffs()[i] != c {
			t.Fatal("random filters with identical seeds differ")
		}
	}

	if _, err := NewRandomFilter(3, rand.New(rand.NewSource(7))); !errors.Is(err, &ShapeError{}) {
		t.Errorf("expected ShapeError for odd length, got %v", err)
	}
}
