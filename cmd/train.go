package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/waveletfit/internal/opt"
	"github.com/cwbudde/waveletfit/internal/store"
	"github.com/cwbudde/waveletfit/internal/wavelet"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var (
	trainPrefix     string
	trainOutDir     string
	trainMode       string
	trainFilterSize int
	trainSize       int
	trainRuns       int
	trainIters      int
	trainLR         float64
	trainMomentum   float64
	trainLambda     float64
	trainBatch      int
	trainPatience   int
	trainTolerance  float64
	trainSeed       int64
	trainInterval   int
	trainGlobalInit bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train wavelet filters over multiple runs",
	Long: `Runs the filter optimization one or more times from random starting
points, writing one numbered snapshot per run plus a per-iteration trace.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainPrefix, "project", "Run", "Project name prefix")
	trainCmd.Flags().StringVar(&trainOutDir, "out", "./output", "Output directory")
	trainCmd.Flags().StringVar(&trainMode, "mode", "needle", "Example generator: uniform, needle, gaussian")
	trainCmd.Flags().IntVar(&trainFilterSize, "filter-size", 4, "Number of filter coefficients (even)")
	trainCmd.Flags().IntVar(&trainSize, "size", 16, "Example side length (radix 2)")
	trainCmd.Flags().IntVar(&trainRuns, "runs", 5, "Number of independent runs")
	trainCmd.Flags().IntVar(&trainIters, "iters", 1000, "Max iterations per run")
	trainCmd.Flags().Float64Var(&trainLR, "lr", 0.01, "Learning rate")
	trainCmd.Flags().Float64Var(&trainMomentum, "momentum", 0.9, "Momentum coefficient")
	trainCmd.Flags().Float64Var(&trainLambda, "lambda", 10.0, "Regularization weight")
	trainCmd.Flags().IntVar(&trainBatch, "batch", 1, "Examples per iteration")
	trainCmd.Flags().IntVar(&trainPatience, "patience", 20, "Iterations without improvement before convergence")
	trainCmd.Flags().Float64Var(&trainTolerance, "tolerance", 1e-4, "Relative improvement threshold")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 42, "Random seed")
	trainCmd.Flags().IntVar(&trainInterval, "checkpoint-interval", 100, "Iterations between snapshot writes (0 = final only)")
	trainCmd.Flags().BoolVar(&trainGlobalInit, "global-init", false, "Seed the initial filter with a mayfly global search")

	rootCmd.AddCommand(trainCmd)
}

type runSummary struct {
	Number    int
	FinalCost float64
	State     string
}

func runTrain(cmd *cobra.Command, args []string) error {
	project := projectName(trainPrefix, trainMode, trainFilterSize)
	pattern := snapshotPattern(trainOutDir, project)

	snapStore, err := store.NewSnapStore(pattern)
	if err != nil {
		return err
	}

	eval := wavelet.NewEvaluator(trainLambda)
	cfg := wavelet.TrainConfig{
		MaxIterations:      trainIters,
		LearningRate:       trainLR,
		Momentum:           trainMomentum,
		BatchSize:          trainBatch,
		GradientStep:       1e-5,
		Tolerance:          trainTolerance,
		Patience:           trainPatience,
		CheckpointInterval: trainInterval,
	}

	slog.Info("starting training", "project", project, "runs", trainRuns,
		"filter_size", trainFilterSize, "shape", trainSize, "mode", trainMode)

	var summaries []runSummary
	start := time.Now()
	for run := 1; run <= trainRuns; run++ {
		summary, err := trainOne(run, project, snapStore, eval, cfg)
		if err != nil {
			var instability *wavelet.NumericalInstabilityError
			if errors.As(err, &instability) {
				// The run is lost but its last written snapshot is not.
				slog.Warn("run diverged, moving on", "run", run, "error", err)
				summaries = append(summaries, runSummary{Number: run, FinalCost: instability.Cost, State: "failed"})
				continue
			}
			return fmt.Errorf("run %d: %w", run, err)
		}
		summaries = append(summaries, summary)
	}

	best, ok := bestRun(summaries)
	if !ok {
		return fmt.Errorf("no run produced a usable snapshot")
	}
	slog.Info("training complete",
		"elapsed", time.Since(start),
		"best_run", best.Number,
		"best_cost", best.FinalCost,
	)
	fmt.Printf("Best run: %d (final cost %.6f), snapshots at %s\n", best.Number, best.FinalCost, pattern)
	return nil
}

func trainOne(run int, project string, snapStore *store.SnapStore, eval *wavelet.Evaluator, cfg wavelet.TrainConfig) (runSummary, error) {
	runSeed := trainSeed + int64(run)
	gen, err := wavelet.NewGenerator(wavelet.GeneratorMode(trainMode), runSeed)
	if err != nil {
		return runSummary{}, err
	}
	defer gen.Close()
	if err := gen.SetShape([2]int{trainSize, trainSize}); err != nil {
		return runSummary{}, err
	}

	filter, err := initialFilter(eval, gen, runSeed)
	if err != nil {
		return runSummary{}, err
	}

	trace, err := store.NewTraceWriter(fmt.Sprintf(tracePattern(trainOutDir, project), run), false)
	if err != nil {
		return runSummary{}, err
	}
	defer trace.Close()

	runCfg := store.RunConfig{
		Project:            project,
		Mode:               trainMode,
		FilterSize:         trainFilterSize,
		Shape:              [2]int{trainSize, trainSize},
		MaxIterations:      cfg.MaxIterations,
		LearningRate:       cfg.LearningRate,
		Momentum:           cfg.Momentum,
		Lambda:             eval.Lambda,
		BatchSize:          cfg.BatchSize,
		Seed:               runSeed,
		CheckpointInterval: cfg.CheckpointInterval,
	}

	trainer := wavelet.NewTrainer(filter, eval, gen, cfg)
	traced := 0
	checkpoint := func(t *wavelet.Trainer) error {
		costLog := t.CostLog()
		filterLog := t.FilterLog()
		for ; traced < len(costLog); traced++ {
			entry := store.TraceEntry{
				Iteration: costLog[traced].Iteration,
				Cost:      costLog[traced].Cost,
				Timestamp: time.Now(),
				Filter:    filterLog[traced].Coeffs,
			}
			if err := trace.Write(entry); err != nil {
				return err
			}
		}
		if err := trace.Flush(); err != nil {
			return err
		}
		return snapStore.Save(run, snapshotOf(run, t, runCfg))
	}

	slog.Info("starting run", "run", run, "seed", runSeed)
	if err := trainer.Run(context.Background(), checkpoint); err != nil {
		// Persist the log up to the failing iteration before bailing.
		if trainer.State() == wavelet.StateFailed {
			if saveErr := snapStore.Save(run, snapshotOf(run, trainer, runCfg)); saveErr != nil {
				slog.Warn("could not save failing run", "run", run, "error", saveErr)
			}
		}
		return runSummary{}, err
	}

	costLog := trainer.CostLog()
	summary := runSummary{Number: run, State: trainer.State().String()}
	if len(costLog) > 0 {
		summary.FinalCost = costLog[len(costLog)-1].Cost
	}
	slog.Info("run finished", "run", run, "state", summary.State,
		"iterations", trainer.Iteration(), "final_cost", summary.FinalCost)
	return summary, nil
}

func snapshotOf(run int, t *wavelet.Trainer, cfg store.RunConfig) *store.Snapshot {
	filterLog := t.FilterLog()
	costLog := t.CostLog()
	rawFilters := make([][]float64, len(filterLog))
	rawCosts := make([]float64, len(costLog))
	for i := range filterLog {
		rawFilters[i] = filterLog[i].Coeffs
	}
	for i := range costLog {
		rawCosts[i] = costLog[i].Cost
	}
	return store.NewSnapshot(run, t.Filter().Coeffs(), rawFilters, rawCosts, cfg)
}

// initialFilter draws a random unit-norm starting filter, optionally
// refined by a global mayfly search over a fixed example batch.
func initialFilter(eval *wavelet.Evaluator, gen wavelet.Generator, seed int64) (*wavelet.Filter, error) {
	rng := rand.New(rand.NewSource(seed))
	filter, err := wavelet.NewRandomFilter(trainFilterSize, rng)
	if err != nil {
		return nil, err
	}
	if !trainGlobalInit {
		return filter, nil
	}

	batch := make([]*mat.Dense, 0, 10)
	for len(batch) < cap(batch) {
		ex, err := gen.Next()
		if err != nil {
			return nil, err
		}
		batch = append(batch, ex)
	}

	probe := filter.Clone()
	objective := func(x []float64) float64 {
		if err := probe.Set(x); err != nil {
			return 1e9
		}
		costs, err := eval.Evaluate(probe, batch)
		if err != nil || math.IsNaN(costs.Combined) {
			return 1e9
		}
		return costs.Combined
	}

	lower := make([]float64, trainFilterSize)
	upper := make([]float64, trainFilterSize)
	for i := range lower {
		lower[i] = -1.2
		upper[i] = 1.2
	}

	seeder := opt.NewMayfly(50, 20, seed)
	best, cost, err := seeder.Minimize(objective, lower, upper, trainFilterSize)
	if err != nil {
		slog.Warn("global init failed, using random filter", "error", err)
		return filter, nil
	}
	slog.Info("global init complete", "cost", cost)
	if err := filter.Set(best); err != nil {
		return nil, err
	}
	return filter, nil
}

// bestRun reduces completed run summaries to the lowest final cost.
func bestRun(summaries []runSummary) (runSummary, bool) {
	var best runSummary
	found := false
	for _, s := range summaries {
		if s.State == "failed" {
			continue
		}
		if !found || s.FinalCost < best.FinalCost {
			best = s
			found = true
		}
	}
	return best, found
}
