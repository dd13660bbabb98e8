package wavelet

import "fmt"

// ShapeError reports a sizing violation: a non-radix-2 example or basis
// size, an out-of-range basis position, or a filter length change mid-run.
type ShapeError struct {
	Op     string
	Detail string
}

func (e *ShapeError) Error() string {
	return "shape error: " + e.Op + ": " + e.Detail
}

func (e *ShapeError) Is(target error) bool {
	_, ok := target.(*ShapeError)
	return ok
}

// NumericalInstabilityError reports a non-finite cost or filter coefficient
// encountered during optimization. The run is halted; snapshots written
// before the failing iteration remain valid.
type NumericalInstabilityError struct {
	Iteration int
	Cost      float64
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("numerical instability at iteration %d (cost %v)", e.Iteration, e.Cost)
}

func (e *NumericalInstabilityError) Is(target error) bool {
	_, ok := target.(*NumericalInstabilityError)
	return ok
}

// DataExhausted is returned by a Generator that cannot produce the requested
// example, e.g. a file-backed source that has run out of events.
type DataExhausted struct {
	Source string
}

func (e *DataExhausted) Error() string {
	if e.Source != "" {
		return "example source exhausted: " + e.Source
	}
	return "example source exhausted"
}

func (e *DataExhausted) Is(target error) bool {
	_, ok := target.(*DataExhausted)
	return ok
}
