package wavelet

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewGeneratorModes(t *testing.T) {
	for _, mode := range []GeneratorMode{ModeUniform, ModeNeedle, ModeGaussian} {
		g, err := NewGenerator(mode, 1)
		if err != nil {
			t.Fatalf("NewGenerator(%q) failed: %v", mode, err)
		}
		if err := g.SetShape([2]int{8, 8}); err != nil {
			t.Fatalf("SetShape failed for %q: %v", mode, err)
		}
		ex, err := g.Next()
		if err != nil {
			t.Fatalf("Next failed for %q: %v", mode, err)
		}
		if r, c := ex.Dims(); r != 8 || c != 8 {
			t.Errorf("%q produced a %dx%d example, want 8x8", mode, r, c)
		}
		g.Close()
	}

	if _, err := NewGenerator("perlin", 1); err == nil {
		t.Error("expected error for an unknown mode")
	}
}

func TestGeneratorRejectsNonRadix2Shapes(t *testing.T) {
	g := NewUniformGenerator(1)
	for _, shape := range [][2]int{{12, 16}, {16, 0}, {7, 7}} {
		if err := g.SetShape(shape); !errors.Is(err, &ShapeError{}) {
			t.Errorf("SetShape(%v) = %v, want ShapeError", shape, err)
		}
	}
}

func TestGeneratorNextRequiresShape(t *testing.T) {
	g := NewNeedleGenerator(1)
	if g.Good() {
		t.Error("generator without a shape reports Good")
	}
	if _, err := g.Next(); !errors.Is(err, &DataExhausted{}) {
		t.Fatalf("Next before SetShape = %v, want DataExhausted", err)
	}
}

func TestGeneratorNextAfterClose(t *testing.T) {
	g := NewGaussianGenerator(1)
	if err := g.SetShape([2]int{4, 4}); err != nil {
		t.Fatalf("SetShape failed: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if g.Good() {
		t.Error("closed generator reports Good")
	}
	if _, err := g.Next(); !errors.Is(err, &DataExhausted{}) {
		t.Fatalf("Next after Close = %v, want DataExhausted", err)
	}
}

func TestGeneratorDeterministicPerSeed(t *testing.T) {
	next := func(seed int64) *mat.Dense {
		g := NewNeedleGenerator(seed)
		if err := g.SetShape([2]int{16, 16}); err != nil {
			t.Fatalf("SetShape failed: %v", err)
		}
		defer g.Close()
		ex, err := g.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		return ex
	}

	if !mat.Equal(next(42), next(42)) {
		t.Error("identical seeds produced different examples")
	}
	if mat.Equal(next(42), next(43)) {
		t.Error("different seeds produced identical examples")
	}
}

func TestUniformGeneratorValueRange(t *testing.T) {
	g := NewUniformGenerator(3)
	if err := g.SetShape([2]int{16, 16}); err != nil {
		t.Fatalf("SetShape failed: %v", err)
	}
	ex, err := g.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	for _, v := range ex.RawMatrix().Data {
		if v < -1 || v >= 1 {
			t.Fatalf("value %v outside [-1, 1)", v)
		}
	}
}
