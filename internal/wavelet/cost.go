package wavelet

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const eps = 1e-12

// Costs holds the three variants of the cost functional, produced together
// from a single pass over the examples.
type Costs struct {
	// Sparsity is the sparsity penalty alone: the mean (1 - Gini) of the
	// absolute transform coefficients over the example batch.
	Sparsity float64

	// Regularization is the orthonormality penalty alone, scaled by Lambda.
	Regularization float64

	// Combined is Sparsity + Regularization, the quantity minimized during
	// training.
	Combined float64
}

// Evaluator computes the cost of a filter against a batch of examples.
// Deterministic: identical filter and examples always yield identical costs.
type Evaluator struct {
	// Lambda weights the orthonormality penalty against the sparsity term.
	Lambda float64
}

// NewEvaluator returns an evaluator with the given regularization weight.
func NewEvaluator(lambda float64) *Evaluator {
	return &Evaluator{Lambda: lambda}
}

// Evaluate returns all three cost variants for f over the examples.
// Every example must be radix-2 sized in both dimensions.
func (e *Evaluator) Evaluate(f *Filter, examples []*mat.Dense) (Costs, error) {
	if len(examples) == 0 {
		return Costs{}, fmt.Errorf("evaluate: no examples")
	}
	var sparsity float64
	for _, ex := range examples {
		coeffs, err := Forward2D(f, ex)
		if err != nil {
			return Costs{}, err
		}
		sparsity += 1 - giniIndex(coeffs.RawMatrix().Data)
	}
	sparsity /= float64(len(examples))

	reg := e.Lambda * regularizationTerm(f)
	return Costs{
		Sparsity:       sparsity,
		Regularization: reg,
		Combined:       sparsity + reg,
	}, nil
}

// giniIndex measures how concentrated the magnitudes of v are: 0 for a flat
// vector, approaching 1 when a single coefficient dominates.
func giniIndex(v []float64) float64 {
	abs := make([]float64, len(v))
	var total float64
	for i, x := range v {
		abs[i] = math.Abs(x)
		total += abs[i]
	}
	sort.Float64s(abs)
	n := float64(len(abs))
	var acc float64
	for i, x := range abs {
		acc += (2*float64(i+1) - n - 1) * x
	}
	return acc / (n*total + eps)
}

// regularizationTerm penalizes deviation from the two-scale orthonormality
// conditions: the Gram matrix of even shifts of the filter must be the
// identity (equivalently, trace(F_i F_j^T) of the induced bases must match
// the Kronecker delta), the low-pass sum must be sqrt(2) and the high-pass
// sum must vanish.
func regularizationTerm(f *Filter) float64 {
	a := f.coeffs
	b := f.HighPass()
	n := len(a)

	var reg float64
	for m := 0; m < n/2; m++ {
		var dot float64
		for k := 0; k+2*m < n; k++ {
			dot += a[k] * a[k+2*m]
		}
		target := 0.0
		if m == 0 {
			target = 1
		}
		reg += sq(dot - target)
	}

	var sumLow, sumHigh float64
	for k := 0; k < n; k++ {
		sumLow += a[k]
		sumHigh += b[k]
	}
	reg += sq(sumLow-math.Sqrt2) + sq(sumHigh)
	return reg
}

func sq(x float64) float64 { return x * x }
