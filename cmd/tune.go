package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/kaskra/MLGV/internal/batch"
	"github.com/kaskra/MLGV/internal/dataset"
	"github.com/kaskra/MLGV/internal/opt"
	"github.com/kaskra/MLGV/internal/stereo"
	"github.com/kaskra/MLGV/internal/tune"
	"github.com/spf13/cobra"
)

var (
	tuneInputDir     string
	tuneMinWindow    int
	tuneMaxWindow    int
	tuneMaxDisparity int
	tuneWorkers      int
	tuneIters        int
	tunePop          int
	tuneSeed         int64
	tuneLimit        int
	tuneScale        float64
	tuneExhaustive   bool
	tuneJSON         bool
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Search for the window size with the lowest D1 error",
	Long: `Scores odd window sizes between --min-window and --max-window on the
frames that have ground truth and reports the size with the lowest mean D1
outlier rate. The search is driven by the mayfly optimizer, or by a full
sweep with --exhaustive.`,
	RunE: runTune,
}

func init() {
	f := tuneCmd.Flags()
	f.StringVar(&tuneInputDir, "input-dir", batch.DefaultInputDir, "Input directory of the KITTI 2015 subset")
	f.IntVar(&tuneMinWindow, "min-window", 3, "Smallest window size considered")
	f.IntVar(&tuneMaxWindow, "max-window", 15, "Largest window size considered")
	f.IntVar(&tuneMaxDisparity, "max-disparity", stereo.DefaultMaxDisparity, "Maximum disparity searched (exclusive)")
	f.IntVar(&tuneWorkers, "workers", 0, "Parallel row workers (0 = all CPUs)")
	f.IntVar(&tuneIters, "iters", 10, "Optimizer iterations")
	f.IntVar(&tunePop, "pop", 20, "Optimizer population size")
	f.Int64Var(&tuneSeed, "seed", 42, "Random seed")
	f.IntVar(&tuneLimit, "limit", 5, "Number of ground-truth frames to score (0 = all)")
	f.Float64Var(&tuneScale, "scale", 0.5, "Downscale factor in (0, 1] applied to every frame (0 = native)")
	f.BoolVar(&tuneExhaustive, "exhaustive", false, "Evaluate every candidate instead of running the optimizer")
	f.BoolVar(&tuneJSON, "json", false, "Print the result as JSON")

	rootCmd.AddCommand(tuneCmd)
}

func runTune(cmd *cobra.Command, args []string) error {
	ds, err := dataset.Open(tuneInputDir, dataset.Options{Scale: tuneScale})
	if err != nil {
		return err
	}
	frames, err := tune.LoadFrames(ds, tuneLimit)
	if err != nil {
		return err
	}

	t := &tune.Tuner{
		Frames:       frames,
		MinWindow:    tuneMinWindow,
		MaxWindow:    tuneMaxWindow,
		MaxDisparity: tuneMaxDisparity,
		Workers:      tuneWorkers,
	}

	var optimizer opt.Optimizer
	if tuneExhaustive {
		optimizer = opt.NewExhaustive(len(t.Candidates()))
	} else {
		optimizer = opt.NewMayfly(tuneIters, tunePop, tuneSeed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := t.Run(ctx, optimizer)
	if err != nil {
		return err
	}

	if tuneJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tEPE\tD1")
	for _, e := range res.Evaluated {
		marker := ""
		if e.WindowSize == res.BestWindow {
			marker = " *"
		}
		fmt.Fprintf(tw, "%d\t%.3f\t%.2f%%%s\n", e.WindowSize, e.Metrics.EPE, 100*e.Metrics.D1, marker)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nBest window size: %d (D1 %.2f%% over %d frames)\n", res.BestWindow, 100*res.Cost, len(frames))
	return nil
}
