package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter conforms the external mayfly swarm optimizer to the
// Optimizer interface. The swarm explores the bounded coefficient box
// globally, which makes it a useful seed for the local gradient descent
// that follows.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a mayfly-backed optimizer.
func NewMayfly(maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Minimize runs the swarm search. The external library takes scalar bounds,
// so the box must be the same interval in every dimension.
func (m *MayflyAdapter) Minimize(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error) {
	if len(lower) < dim || len(upper) < dim {
		return nil, 0, fmt.Errorf("mayfly: bounds cover %d/%d of %d dimensions", len(lower), len(upper), dim)
	}
	for i := 1; i < dim; i++ {
		if lower[i] != lower[0] || upper[i] != upper[0] {
			return nil, 0, fmt.Errorf("mayfly: bounds must be identical across dimensions")
		}
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = lower[0]
	config.UpperBound = upper[0]
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("mayfly optimization: %w", err)
	}
	return result.GlobalBest.Position, result.GlobalBest.Cost, nil
}
