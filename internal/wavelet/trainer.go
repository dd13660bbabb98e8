package wavelet

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

// State is the lifecycle state of a training run.
type State int

const (
	StateInitialized State = iota
	StateIterating
	StateConverged
	StateMaxIterations
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateMaxIterations:
		return "max-iterations"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the run has ended.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateMaxIterations || s == StateFailed
}

// TrainConfig holds the hyperparameters of one training run. Passed in
// explicitly; the trainer keeps no global state.
type TrainConfig struct {
	MaxIterations int
	LearningRate  float64
	Momentum      float64
	BatchSize     int
	GradientStep  float64

	// Tolerance is the minimum relative cost improvement that counts as
	// progress; Patience is how many iterations without progress are
	// allowed before the run is declared converged.
	Tolerance float64
	Patience  int

	// CheckpointInterval is the number of iterations between snapshot
	// callbacks in Run. Zero disables intermediate checkpoints.
	CheckpointInterval int
}

// DefaultTrainConfig returns sensible defaults for small filters and
// 16x16 examples.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		MaxIterations:      1000,
		LearningRate:       0.01,
		Momentum:           0.9,
		BatchSize:          1,
		GradientStep:       1e-5,
		Tolerance:          1e-4,
		Patience:           20,
		CheckpointInterval: 100,
	}
}

// FilterLogEntry records the filter coefficients at one iteration.
type FilterLogEntry struct {
	Iteration int
	Coeffs    []float64
}

// CostLogEntry records the combined cost at one iteration.
type CostLogEntry struct {
	Iteration int
	Cost      float64
}

// Trainer drives the iterative improvement of a filter: one gradient step
// per iteration, one filter-log and one cost-log entry appended per
// iteration. Single-threaded; a run owns its filter and logs exclusively.
type Trainer struct {
	cfg    TrainConfig
	eval   *Evaluator
	filter *Filter
	gen    Generator

	state     State
	iteration int
	velocity  []float64
	filterLog []FilterLogEntry
	costLog   []CostLogEntry
	runErr    error

	lastSignificant float64
	staleCount      int
}

// NewTrainer creates a trainer over the given filter, evaluator and example
// source.
func NewTrainer(filter *Filter, eval *Evaluator, gen Generator, cfg TrainConfig) *Trainer {
	return &Trainer{
		cfg:             cfg,
		eval:            eval,
		filter:          filter,
		gen:             gen,
		state:           StateInitialized,
		velocity:        make([]float64, filter.Len()),
		lastSignificant: math.Inf(1),
	}
}

// State returns the current lifecycle state.
func (t *Trainer) State() State { return t.state }

// Err returns the error that failed the run, if any.
func (t *Trainer) Err() error { return t.runErr }

// Iteration returns the number of completed iterations.
func (t *Trainer) Iteration() int { return t.iteration }

// Filter returns the filter being optimized.
func (t *Trainer) Filter() *Filter { return t.filter }

// FilterLog returns a copy of the per-iteration filter snapshots. Callers
// may iterate the returned slice repeatedly.
func (t *Trainer) FilterLog() []FilterLogEntry {
	out := make([]FilterLogEntry, len(t.filterLog))
	for i, e := range t.filterLog {
		coeffs := make([]float64, len(e.Coeffs))
		copy(coeffs, e.Coeffs)
		out[i] = FilterLogEntry{Iteration: e.Iteration, Coeffs: coeffs}
	}
	return out
}

// CostLog returns a copy of the per-iteration cost values.
func (t *Trainer) CostLog() []CostLogEntry {
	out := make([]CostLogEntry, len(t.costLog))
	copy(out, t.costLog)
	return out
}

// Restore replaces the trainer's filter and logs from a loaded snapshot and
// rewinds the state machine so the run can continue.
func (t *Trainer) Restore(coeffs []float64, filterLog [][]float64, costLog []float64) error {
	if len(filterLog) != len(costLog) {
		return fmt.Errorf("restore: filter log has %d entries, cost log %d", len(filterLog), len(costLog))
	}
	if err := t.filter.Set(coeffs); err != nil {
		return err
	}
	t.filterLog = t.filterLog[:0]
	t.costLog = t.costLog[:0]
	for i := range filterLog {
		entry := make([]float64, len(filterLog[i]))
		copy(entry, filterLog[i])
		t.filterLog = append(t.filterLog, FilterLogEntry{Iteration: i, Coeffs: entry})
		t.costLog = append(t.costLog, CostLogEntry{Iteration: i, Cost: costLog[i]})
	}
	t.iteration = len(filterLog)
	t.state = StateInitialized
	t.runErr = nil
	t.staleCount = 0
	t.lastSignificant = math.Inf(1)
	for i := range t.velocity {
		t.velocity[i] = 0
	}
	return nil
}

// Step performs a single optimization iteration: evaluate the current
// filter on a fresh batch, log filter and cost, then take a momentum
// gradient step. A non-finite cost or coefficient fails the run with
// NumericalInstabilityError; earlier log entries are preserved.
func (t *Trainer) Step() error {
	if t.state.Terminal() {
		return fmt.Errorf("step: run already %s", t.state)
	}
	t.state = StateIterating

	batch, err := t.drawBatch()
	if err != nil {
		return err
	}

	costs, err := t.eval.Evaluate(t.filter, batch)
	if err != nil {
		return err
	}
	if !isFinite(costs.Combined) {
		t.fail(costs.Combined)
		return t.runErr
	}

	t.filterLog = append(t.filterLog, FilterLogEntry{Iteration: t.iteration, Coeffs: t.filter.Coeffs()})
	t.costLog = append(t.costLog, CostLogEntry{Iteration: t.iteration, Cost: costs.Combined})

	grad, err := t.eval.gradient(t.filter, batch, t.cfg.GradientStep)
	if err != nil {
		return err
	}

	coeffs := t.filter.Coeffs()
	finite := true
	for i := range coeffs {
		t.velocity[i] = t.cfg.Momentum*t.velocity[i] - t.cfg.LearningRate*grad[i]
		coeffs[i] += t.velocity[i]
		finite = finite && isFinite(coeffs[i])
	}
	if !finite {
		t.fail(costs.Combined)
		return t.runErr
	}
	if err := t.filter.Set(coeffs); err != nil {
		return err
	}

	t.iteration++
	if t.converged(costs.Combined) {
		t.state = StateConverged
		slog.Info("run converged", "iteration", t.iteration, "cost", costs.Combined)
	} else if t.iteration >= t.cfg.MaxIterations {
		t.state = StateMaxIterations
		slog.Info("iteration cap reached", "iteration", t.iteration, "cost", costs.Combined)
	}
	return nil
}

// Run iterates until the run reaches a terminal state or ctx is cancelled.
// If onCheckpoint is non-nil it is invoked every CheckpointInterval
// iterations and once more when the run ends.
func (t *Trainer) Run(ctx context.Context, onCheckpoint func(*Trainer) error) error {
	for !t.state.Terminal() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := t.Step(); err != nil {
			return err
		}
		atInterval := t.cfg.CheckpointInterval > 0 && t.iteration%t.cfg.CheckpointInterval == 0
		if onCheckpoint != nil && (atInterval || t.state.Terminal()) {
			if err := onCheckpoint(t); err != nil {
				return fmt.Errorf("checkpoint at iteration %d: %w", t.iteration, err)
			}
		}
	}
	return nil
}

func (t *Trainer) drawBatch() ([]*mat.Dense, error) {
	n := t.cfg.BatchSize
	if n < 1 {
		n = 1
	}
	batch := make([]*mat.Dense, 0, n)
	for len(batch) < n {
		ex, err := t.gen.Next()
		if err != nil {
			return nil, err
		}
		batch = append(batch, ex)
	}
	return batch, nil
}

func (t *Trainer) fail(cost float64) {
	t.state = StateFailed
	t.runErr = &NumericalInstabilityError{Iteration: t.iteration, Cost: cost}
	slog.Error("run failed", "iteration", t.iteration, "error", t.runErr)
}

// converged applies a patience window over relative cost improvement:
// the run ends once Patience consecutive iterations fall short of the
// Tolerance improvement threshold.
func (t *Trainer) converged(cost float64) bool {
	if t.cfg.Patience <= 0 {
		return false
	}
	if math.IsInf(t.lastSignificant, 1) {
		t.lastSignificant = cost
		return false
	}
	improvement := (t.lastSignificant - cost) / (math.Abs(t.lastSignificant) + eps)
	if improvement >= t.cfg.Tolerance {
		t.lastSignificant = cost
		t.staleCount = 0
		return false
	}
	t.staleCount++
	return t.staleCount >= t.cfg.Patience
}
