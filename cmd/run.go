package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/kaskra/MLGV/internal/batch"
	"github.com/kaskra/MLGV/internal/render"
	"github.com/kaskra/MLGV/internal/store"
	"github.com/spf13/cobra"
)

var (
	runCfg      = batch.DefaultConfig()
	runColormap string
	runDataDir  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate disparity maps for a KITTI dataset",
	Long: `Runs SAD block matching over every stereo pair of the dataset and writes
one color-mapped disparity image per frame to <output-dir>/window_size_<N>/.
When the dataset has ground truth, the mean end-point error and D1 outlier
rate are reported.`,
	RunE: runBatch,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runCfg.InputDir, "input-dir", batch.DefaultInputDir, "Input directory of the KITTI 2015 subset")
	f.StringVar(&runCfg.OutputDir, "output-dir", batch.DefaultOutputDir, "Output directory for disparity maps")
	f.IntVar(&runCfg.WindowSize, "window-size", runCfg.WindowSize, "Edge length of the matching window")
	f.IntVar(&runCfg.MaxDisparity, "max-disparity", runCfg.MaxDisparity, "Maximum disparity searched (exclusive)")
	f.IntVar(&runCfg.Workers, "workers", 0, "Parallel row workers (0 = all CPUs)")
	f.StringVar(&runCfg.Backend, "backend", "auto", "SAD kernel: auto, scalar, unrolled")
	f.Float64Var(&runCfg.Scale, "scale", 0, "Downscale factor in (0, 1] applied to every frame (0 = native)")
	f.IntVar(&runCfg.Limit, "limit", 0, "Process only the first N frames (0 = all)")
	f.StringVar(&runColormap, "colormap", "rainbow_r", "Colormap: rainbow_r, rainbow, gray")
	f.StringVar(&runDataDir, "data-dir", "./data", "Run store directory (empty = do not record)")

	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cmap, err := render.ColormapByName(runColormap)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := batch.Options{
		Colormap: cmap,
		Progress: func(r batch.FrameResult) {
			slog.Info("Frame done", "frame", r.Index, "processed", r.Processed, "total", r.Total, "elapsed", r.Elapsed)
		},
	}

	var (
		sum   *batch.Summary
		runID string
	)
	if runDataDir != "" {
		runs, serr := store.NewFSStore(runDataDir)
		if serr != nil {
			return fmt.Errorf("failed to create run store: %w", serr)
		}
		runID = store.NewRunID()
		sum, err = batch.Record(ctx, runs, runID, runCfg, opts)
	} else {
		sum, err = batch.Run(ctx, runCfg, opts)
	}
	if errors.Is(err, context.Canceled) && sum != nil {
		fmt.Printf("Interrupted after %d of %d frames.\n", sum.Processed, sum.Frames)
		fmt.Println(formatSummary(sum, runID))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Finished generating disparity maps using the SAD method with a window size of %d.\n", runCfg.WindowSize)
	fmt.Println(formatSummary(sum, runID))
	return nil
}

// formatSummary renders the run summary for the terminal.
func formatSummary(sum *batch.Summary, runID string) string {
	label := lipgloss.NewStyle().Bold(true)
	durationStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("202"))
	speedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	scoreStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	fps := 0.0
	if sum.Elapsed > 0 {
		fps = float64(sum.Processed) / sum.Elapsed.Seconds()
	}

	lines := []string{
		fmt.Sprintf("%s %d", label.Render("Frames:"), sum.Processed),
		fmt.Sprintf("%s %s", label.Render("Output:"), sum.OutputDir),
		fmt.Sprintf("%s %s", label.Render("Total processing time:"), durationStyle.Render(fmt.Sprintf("%.3fs", sum.Elapsed.Seconds()))),
		fmt.Sprintf("%s %s", label.Render("Frames per second:"), speedStyle.Render(fmt.Sprintf("%.2f", fps))),
	}
	if sum.HasGroundTruth {
		lines = append(lines,
			fmt.Sprintf("%s %s", label.Render("Mean EPE:"), scoreStyle.Render(fmt.Sprintf("%.3f px", sum.Mean.EPE))),
			fmt.Sprintf("%s %s", label.Render("Mean D1:"), scoreStyle.Render(fmt.Sprintf("%.2f%%", 100*sum.Mean.D1))),
		)
	}
	if runID != "" {
		lines = append(lines, fmt.Sprintf("%s %s", label.Render("Run ID:"), runID))
	}

	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
