package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/cwbudde/waveletfit/internal/store"
	"github.com/cwbudde/waveletfit/internal/wavelet"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var (
	analysePrefix     string
	analyseOutDir     string
	analyseMode       string
	analyseFilterSize int
	analyseSize       int
	analyseMaxRuns    int
	analyseExamples   int
	analyseExtent     float64
	analyseGrid       int
	analyseDim        int
	analyseSeed       int64
)

var analyseCmd = &cobra.Command{
	Use:   "analyse",
	Short: "Analyse a snapshot series and export numeric artifacts",
	Long: `Walks the snapshot series of a project, exports cost and filter
trajectories, samples (or reloads) the cost-map landscape, surveys basis
orthonormality for the best run and exports its basis functions. All
artifacts are plain CSV/JSON numeric containers for an external plotting
layer.`,
	RunE: runAnalyse,
}

func init() {
	analyseCmd.Flags().StringVar(&analysePrefix, "project", "Run", "Project name prefix")
	analyseCmd.Flags().StringVar(&analyseOutDir, "out", "./output", "Output directory")
	analyseCmd.Flags().StringVar(&analyseMode, "mode", "needle", "Example generator: uniform, needle, gaussian")
	analyseCmd.Flags().IntVar(&analyseFilterSize, "filter-size", 4, "Number of filter coefficients")
	analyseCmd.Flags().IntVar(&analyseSize, "size", 16, "Example side length (radix 2)")
	analyseCmd.Flags().IntVar(&analyseMaxRuns, "max-runs", 5, "Highest snapshot number to consider")
	analyseCmd.Flags().IntVar(&analyseExamples, "examples", 10, "Examples drawn for cost-map sampling")
	analyseCmd.Flags().Float64Var(&analyseExtent, "extent", 1.2, "Half range of the cost-map grid")
	analyseCmd.Flags().IntVar(&analyseGrid, "grid", 300, "Cost-map grid size per axis")
	analyseCmd.Flags().IntVar(&analyseDim, "dim", 8, "Basis grid side length to export")
	analyseCmd.Flags().Int64Var(&analyseSeed, "seed", 42, "Random seed for the example batch")

	rootCmd.AddCommand(analyseCmd)
}

func runAnalyse(cmd *cobra.Command, args []string) error {
	project := projectName(analysePrefix, analyseMode, analyseFilterSize)
	dir := projectDir(analyseOutDir, project)

	snapStore, err := store.NewSnapStore(snapshotPattern(analyseOutDir, project))
	if err != nil {
		return err
	}

	// Walk the series; a missing number at or below the bound ends it.
	var summaries []runSummary
	cursor := snapStore.Cursor(1)
	for cursor.Exists() && cursor.Number() <= analyseMaxRuns {
		snap, err := cursor.Load()
		if err != nil {
			return err
		}
		if err := exportRun(dir, snap); err != nil {
			return err
		}
		info := snap.ToInfo()
		summaries = append(summaries, runSummary{
			Number:    info.Number,
			FinalCost: info.FinalCost,
			State:     "loaded",
		})
		slog.Info("run analysed", "number", info.Number,
			"iterations", info.Iterations, "final_cost", info.FinalCost)
		cursor.Next()
	}
	if len(summaries) == 0 {
		return fmt.Errorf("no snapshots found at %s", snapStore.File(1))
	}

	best, _ := bestRun(summaries)
	slog.Info("best run selected", "number", best.Number, "final_cost", best.FinalCost)

	cursor.SetNumber(best.Number)
	snap, err := cursor.Load()
	if err != nil {
		return err
	}
	filter, err := wavelet.NewFilter(snap.Filter)
	if err != nil {
		return err
	}

	lambda := snap.Config.Lambda
	if lambda == 0 {
		lambda = 10.0
	}
	if err := exportCostMaps(dir, project, filter, lambda); err != nil {
		return err
	}
	if err := exportNorms(dir, filter); err != nil {
		return err
	}
	if err := exportBases(dir, filter); err != nil {
		return err
	}

	fmt.Printf("Analysed %d run(s); best run %d (cost %.6f). Artifacts in %s\n",
		len(summaries), best.Number, best.FinalCost, dir)
	return nil
}

// exportRun writes the cost log and the trajectory of the first two filter
// coefficients for one run.
func exportRun(dir string, snap *store.Snapshot) error {
	n := snap.Number

	costRows := make([][]float64, len(snap.CostLog))
	for i, c := range snap.CostLog {
		costRows[i] = []float64{float64(i), c}
	}
	costPath := filepath.Join(dir, fmt.Sprintf("costlog.%06d.csv", n))
	if err := writeCSV(costPath, []string{"iteration", "cost"}, costRows); err != nil {
		return err
	}

	trajRows := make([][]float64, len(snap.FilterLog))
	for i, coeffs := range snap.FilterLog {
		trajRows[i] = []float64{float64(i), coeffs[0], coeffs[1]}
	}
	trajPath := filepath.Join(dir, fmt.Sprintf("filterpath.%06d.csv", n))
	return writeCSV(trajPath, []string{"iteration", "a1", "a2"}, trajRows)
}

// exportCostMaps loads the cached landscape or samples it once, then writes
// the three variants as CSV matrices next to the JSON cache.
func exportCostMaps(dir, project string, filter *wavelet.Filter, lambda float64) error {
	cache := store.NewCostMapCache(dir, project)

	var sparsity, combined, regularization *mat.Dense
	if cache.Complete() {
		var err error
		sparsity, combined, regularization, err = cache.Load()
		if err != nil {
			return err
		}
		slog.Info("cost maps loaded from cache", "dir", dir)
	} else {
		gen, err := wavelet.NewGenerator(wavelet.GeneratorMode(analyseMode), analyseSeed)
		if err != nil {
			return err
		}
		defer gen.Close()
		if err := gen.SetShape([2]int{analyseSize, analyseSize}); err != nil {
			return err
		}
		examples := make([]*mat.Dense, 0, analyseExamples)
		for len(examples) < analyseExamples {
			ex, err := gen.Next()
			if err != nil {
				return err
			}
			examples = append(examples, ex)
		}

		eval := wavelet.NewEvaluator(lambda)
		maps, err := wavelet.SampleCostMap(eval, filter, examples, analyseExtent, analyseGrid)
		if err != nil {
			return err
		}
		sparsity, combined, regularization = maps.Sparsity, maps.Combined, maps.Regularization
		if err := cache.Save(sparsity, combined, regularization); err != nil {
			return err
		}
	}

	for name, m := range map[string]*mat.Dense{
		"costMapSparse.csv": sparsity,
		"costMap.csv":       combined,
		"costMapReg.csv":    regularization,
	} {
		if err := writeMatrixCSV(filepath.Join(dir, name), m); err != nil {
			return err
		}
	}
	return nil
}

// exportNorms surveys basis orthonormality: self overlaps for every grid
// position and cross overlaps for distinct position pairs. Self overlaps
// are clamped to [-0.5, 1.5] for histogram handoff.
func exportNorms(dir string, filter *wavelet.Filter) error {
	dim := min(analyseDim, analyseSize)

	var selfRows, crossRows [][]float64
	maxSelfDev, maxCross := 0.0, 0.0
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			f1, err := wavelet.BasisFunction(filter, analyseSize, analyseSize, i, j)
			if err != nil {
				return err
			}
			norm := wavelet.Overlap(f1, f1)
			if dev := abs(norm - 1); dev > maxSelfDev {
				maxSelfDev = dev
			}
			selfRows = append(selfRows, []float64{float64(i), float64(j), clamp(norm, -0.5, 1.5)})

			// Cross terms against the next distinct position on the grid.
			i2, j2 := i, j+1
			if j2 == dim {
				i2, j2 = i+1, 0
			}
			if i2 == dim {
				continue
			}
			f2, err := wavelet.BasisFunction(filter, analyseSize, analyseSize, i2, j2)
			if err != nil {
				return err
			}
			cross := wavelet.Overlap(f1, f2)
			if abs(cross) > maxCross {
				maxCross = abs(cross)
			}
			crossRows = append(crossRows, []float64{float64(i), float64(j), float64(i2), float64(j2), cross})
		}
	}

	slog.Info("orthonormality survey", "max_self_deviation", maxSelfDev, "max_cross_overlap", maxCross)
	if err := writeCSV(filepath.Join(dir, "norms.csv"), []string{"i", "j", "norm"}, selfRows); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, "crossnorms.csv"), []string{"i1", "j1", "i2", "j2", "overlap"}, crossRows)
}

// exportBases writes the basis-function matrices of the filter for the
// top-left dim x dim grid positions.
func exportBases(dir string, filter *wavelet.Filter) error {
	dim := min(analyseDim, analyseSize)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			basis, err := wavelet.BasisFunction(filter, analyseSize, analyseSize, i, j)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, "basis", fmt.Sprintf("basis_%d_%d.csv", i, j))
			if err := writeMatrixCSV(path, basis); err != nil {
				return err
			}
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
