package wavelet

import "gonum.org/v1/gonum/mat"

// gradient computes the central-difference gradient of the combined cost
// with respect to the filter coefficients. Exact to O(h^2), which is ample
// at the coefficient counts this engine targets.
func (e *Evaluator) gradient(f *Filter, examples []*mat.Dense, h float64) ([]float64, error) {
	coeffs := f.Coeffs()
	probe := f.Clone()
	grad := make([]float64, len(coeffs))

	for i := range coeffs {
		orig := coeffs[i]

		coeffs[i] = orig + h
		if err := probe.Set(coeffs); err != nil {
			return nil, err
		}
		plus, err := e.Evaluate(probe, examples)
		if err != nil {
			return nil, err
		}

		coeffs[i] = orig - h
		if err := probe.Set(coeffs); err != nil {
			return nil, err
		}
		minus, err := e.Evaluate(probe, examples)
		if err != nil {
			return nil, err
		}

		coeffs[i] = orig
		grad[i] = (plus.Combined - minus.Combined) / (2 * h)
	}
	return grad, nil
}
