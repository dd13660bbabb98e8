// Package opt provides run-to-completion global optimizers used to seed
// the gradient-descent trainer with a good starting filter.
package opt

// Optimizer is a derivative-free minimizer over a bounded box.
type Optimizer interface {
	// Minimize searches for the minimum of eval over the box described by
	// lower and upper, in dim dimensions, and returns the best point and
	// its cost.
	Minimize(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error)
}
