package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/waveletfit/internal/store"
	"github.com/spf13/cobra"
)

var (
	snapshotsOutDir   string
	snapshotsKeepLast int
	snapshotsOlder    int
	snapshotsForce    bool
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage snapshot series",
	Long: `List and clean the numbered snapshot files written during training.
Snapshots allow resuming runs and drive the analyse command.`,
}

var listSnapshotsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all snapshots under the output directory",
	RunE:  runListSnapshots,
}

var cleanSnapshotsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old snapshots",
	Long: `Delete snapshots by retention policy: keep only the last N per project,
or drop snapshots older than N days.`,
	RunE: runCleanSnapshots,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(listSnapshotsCmd)
	snapshotsCmd.AddCommand(cleanSnapshotsCmd)

	snapshotsCmd.PersistentFlags().StringVar(&snapshotsOutDir, "out", "./output", "Output directory to scan")
	cleanSnapshotsCmd.Flags().IntVar(&snapshotsKeepLast, "keep-last", 0, "Keep only the last N snapshots per project (0 = keep all)")
	cleanSnapshotsCmd.Flags().IntVar(&snapshotsOlder, "older-than", 0, "Delete snapshots older than N days (0 = no age limit)")
	cleanSnapshotsCmd.Flags().BoolVarP(&snapshotsForce, "force", "f", false, "Skip confirmation prompt")
}

type snapshotFile struct {
	Path string
	Info store.SnapshotInfo
}

// scanSnapshots walks the output directory for *.snap files and loads
// their metadata, skipping unreadable or malformed ones with a warning.
func scanSnapshots(outDir string) ([]snapshotFile, error) {
	var files []snapshotFile
	err := filepath.Walk(outDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".snap") {
			return nil
		}
		snap, err := store.LoadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable snapshot", "path", path, "error", err)
			return nil
		}
		files = append(files, snapshotFile{Path: path, Info: snap.ToInfo()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", outDir, err)
	}
	return files, nil
}

func runListSnapshots(cmd *cobra.Command, args []string) error {
	files, err := scanSnapshots(snapshotsOutDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No snapshots found.")
		return nil
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Info.Project != files[j].Info.Project {
			return files[i].Info.Project < files[j].Info.Project
		}
		return files[i].Info.Number < files[j].Info.Number
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tNUMBER\tTIMESTAMP\tITERATIONS\tFINAL COST")
	fmt.Fprintln(w, "-------\t------\t---------\t----------\t----------")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%06d\t%s\t%d\t%.6f\n",
			f.Info.Project,
			f.Info.Number,
			f.Info.Timestamp.Format("2006-01-02 15:04:05"),
			f.Info.Iterations,
			f.Info.FinalCost,
		)
	}
	w.Flush()

	fmt.Printf("\nTotal snapshots: %d\n", len(files))
	return nil
}

func runCleanSnapshots(cmd *cobra.Command, args []string) error {
	if snapshotsKeepLast == 0 && snapshotsOlder == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	files, err := scanSnapshots(snapshotsOutDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No snapshots to clean.")
		return nil
	}

	toDelete := selectSnapshotsForDeletion(files, snapshotsKeepLast, snapshotsOlder)
	if len(toDelete) == 0 {
		fmt.Println("No snapshots match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d snapshot(s) to delete:\n", len(toDelete))
	for _, f := range toDelete {
		fmt.Printf("  - %s (run %06d, %s)\n",
			f.Info.Project, f.Info.Number, f.Info.Timestamp.Format("2006-01-02 15:04:05"))
	}

	if !snapshotsForce {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted, failed := 0, 0
	for _, f := range toDelete {
		if err := os.Remove(f.Path); err != nil {
			slog.Error("failed to delete snapshot", "path", f.Path, "error", err)
			failed++
		} else {
			slog.Info("deleted snapshot", "path", f.Path)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d snapshot(s), %d failed.\n", deleted, failed)
	return nil
}

// selectSnapshotsForDeletion applies the retention policy: age first, then
// per-project count, keeping the highest-numbered snapshots.
func selectSnapshotsForDeletion(files []snapshotFile, keepLast, olderThanDays int) []snapshotFile {
	var toDelete []snapshotFile
	marked := map[string]bool{}

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, f := range files {
			if f.Info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, f)
				marked[f.Path] = true
			}
		}
	}

	if keepLast > 0 {
		byProject := map[string][]snapshotFile{}
		for _, f := range files {
			byProject[f.Info.Project] = append(byProject[f.Info.Project], f)
		}
		for _, series := range byProject {
			sort.Slice(series, func(i, j int) bool {
				return series[i].Info.Number < series[j].Info.Number
			})
			for i := 0; i < len(series)-keepLast; i++ {
				if !marked[series[i].Path] {
					toDelete = append(toDelete, series[i])
					marked[series[i].Path] = true
				}
			}
		}
	}

	return toDelete
}
