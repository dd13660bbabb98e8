package wavelet

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Generator produces training examples: square-ish, radix-2-sized matrices.
// The engine only depends on this capability set; whether examples come from
// a synthetic distribution or a file-backed source is the caller's concern.
type Generator interface {
	// SetShape fixes the example dimensions. Both must be radix 2.
	SetShape(shape [2]int) error

	// Next produces the next example. Fails with DataExhausted if the
	// source cannot produce one.
	Next() (*mat.Dense, error)

	// Good reports whether the generator is ready to produce examples.
	Good() bool

	// Close releases any resources held by the generator.
	Close() error
}

// GeneratorMode identifies the closed set of synthetic example sources.
type GeneratorMode string

const (
	ModeUniform  GeneratorMode = "uniform"
	ModeNeedle   GeneratorMode = "needle"
	ModeGaussian GeneratorMode = "gaussian"
)

// NewGenerator constructs the synthetic generator for the given mode.
func NewGenerator(mode GeneratorMode, seed int64) (Generator, error) {
	switch mode {
	case ModeUniform:
		return NewUniformGenerator(seed), nil
	case ModeNeedle:
		return NewNeedleGenerator(seed), nil
	case ModeGaussian:
		return NewGaussianGenerator(seed), nil
	default:
		return nil, fmt.Errorf("unknown generator mode %q", mode)
	}
}

// syntheticGenerator carries the shape and seeded source shared by the
// synthetic implementations.
type syntheticGenerator struct {
	shape  [2]int
	rng    *rand.Rand
	closed bool
}

func (g *syntheticGenerator) SetShape(shape [2]int) error {
	if !IsRadix2(shape[0]) || !IsRadix2(shape[1]) {
		return &ShapeError{
			Op:     "Generator.SetShape",
			Detail: fmt.Sprintf("shape %dx%d is not radix 2", shape[0], shape[1]),
		}
	}
	g.shape = shape
	return nil
}

func (g *syntheticGenerator) Good() bool {
	return !g.closed && g.shape[0] > 0 && g.shape[1] > 0
}

func (g *syntheticGenerator) Close() error {
	g.closed = true
	return nil
}

func (g *syntheticGenerator) check(source string) error {
	if !g.Good() {
		return &DataExhausted{Source: source}
	}
	return nil
}

// UniformGenerator fills each example with uniform noise in [-1, 1).
type UniformGenerator struct {
	syntheticGenerator
}

func NewUniformGenerator(seed int64) *UniformGenerator {
	return &UniformGenerator{syntheticGenerator{rng: rand.New(rand.NewSource(seed))}}
}

func (g *UniformGenerator) Next() (*mat.Dense, error) {
	if err := g.check("uniform"); err != nil {
		return nil, err
	}
	out := mat.NewDense(g.shape[0], g.shape[1], nil)
	for r := 0; r < g.shape[0]; r++ {
		for c := 0; c < g.shape[1]; c++ {
			out.Set(r, c, 2*g.rng.Float64()-1)
		}
	}
	return out, nil
}

// NeedleGenerator produces sparse examples: a few isolated unit-scale
// spikes on an otherwise empty canvas. Maximally sparse inputs make the
// sparsity term of the cost easy to probe.
type NeedleGenerator struct {
	syntheticGenerator

	// SpikeProbability is the chance of any one cell holding a spike.
	SpikeProbability float64
}

func NewNeedleGenerator(seed int64) *NeedleGenerator {
	return &NeedleGenerator{
		syntheticGenerator: syntheticGenerator{rng: rand.New(rand.NewSource(seed))},
		SpikeProbability:   0.05,
	}
}

func (g *NeedleGenerator) Next() (*mat.Dense, error) {
	if err := g.check("needle"); err != nil {
		return nil, err
	}
	out := mat.NewDense(g.shape[0], g.shape[1], nil)
	for r := 0; r < g.shape[0]; r++ {
		for c := 0; c < g.shape[1]; c++ {
			if g.rng.Float64() < g.SpikeProbability {
				out.Set(r, c, 2*g.rng.Float64()-1)
			}
		}
	}
	return out, nil
}

// GaussianGenerator produces a smooth bump: one 2D Gaussian with random
// center and width per example.
type GaussianGenerator struct {
	syntheticGenerator
}

func NewGaussianGenerator(seed int64) *GaussianGenerator {
	return &GaussianGenerator{syntheticGenerator{rng: rand.New(rand.NewSource(seed))}}
}

func (g *GaussianGenerator) Next() (*mat.Dense, error) {
	if err := g.check("gaussian"); err != nil {
		return nil, err
	}
	rows, cols := g.shape[0], g.shape[1]
	cx := g.rng.Float64() * float64(rows)
	cy := g.rng.Float64() * float64(cols)
	// Width between 1/16 and 1/4 of the smaller dimension.
	minDim := float64(min(rows, cols))
	sigma := minDim/16 + g.rng.Float64()*(minDim/4-minDim/16)

	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dr := float64(r) - cx
			dc := float64(c) - cy
			out.Set(r, c, math.Exp(-(dr*dr+dc*dc)/(2*sigma*sigma)))
		}
	}
	return out, nil
}
