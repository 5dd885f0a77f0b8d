// Package batch runs the block matcher over every pair of a dataset and
// writes one color-mapped disparity image per frame.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kaskra/MLGV/internal/dataset"
	"github.com/kaskra/MLGV/internal/eval"
	"github.com/kaskra/MLGV/internal/render"
	"github.com/kaskra/MLGV/internal/stereo"
	"github.com/kaskra/MLGV/internal/store"
)

// FrameResult describes one processed pair.
type FrameResult struct {
	Index   int           `json:"index"`
	Name    string        `json:"name"`
	Output  string        `json:"output"`
	Stats   stereo.Stats  `json:"stats"`
	Metrics *eval.Metrics `json:"metrics,omitempty"`
	Elapsed time.Duration `json:"elapsed"`

	// Processed and Total track progress through the run.
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// Entry converts r into a trace entry.
func (r FrameResult) Entry() store.FrameEntry {
	e := store.FrameEntry{
		Index:         r.Index,
		Name:          r.Name,
		Output:        r.Output,
		MinDisparity:  r.Stats.Min,
		MaxDisparity:  r.Stats.Max,
		MeanDisparity: r.Stats.Mean,
		Elapsed:       r.Elapsed,
		Timestamp:     time.Now(),
	}
	if r.Metrics != nil {
		epe, d1 := r.Metrics.EPE, r.Metrics.D1
		e.EPE, e.D1, e.Valid = &epe, &d1, r.Metrics.Valid
	}
	return e
}

// Options carries the optional hooks of a run.
type Options struct {
	// Progress is called after every frame, from the calling goroutine.
	Progress func(FrameResult)
	// Trace receives one entry per frame when set.
	Trace *store.TraceWriter
	// Colormap defaults to render.RainbowR.
	Colormap render.Colormap
}

// Summary is returned by Run.
type Summary struct {
	OutputDir      string        `json:"outputDir"`
	WindowSize     int           `json:"windowSize"`
	Frames         int           `json:"frames"`
	Processed      int           `json:"processed"`
	Elapsed        time.Duration `json:"elapsed"`
	HasGroundTruth bool          `json:"hasGroundTruth"`
	Mean           eval.Metrics  `json:"mean"`
}

// Run processes the dataset described by cfg. On error or cancellation the
// summary of the frames written so far is returned alongside the error.
func Run(ctx context.Context, cfg Config, opts Options) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ds, err := dataset.Open(cfg.InputDir, dataset.Options{Scale: cfg.Scale})
	if err != nil {
		return nil, err
	}

	outDir := render.OutputDir(cfg.OutputDir, cfg.WindowSize)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := ds.Len()
	if cfg.Limit > 0 && cfg.Limit < total {
		total = cfg.Limit
	}

	sum := &Summary{
		OutputDir:  outDir,
		WindowSize: cfg.WindowSize,
		Frames:     total,
	}
	slog.Info("Starting batch",
		"input", ds.Dir(), "output", outDir, "frames", total,
		"window_size", cfg.WindowSize, "max_disparity", cfg.MaxDisparity)

	start := time.Now()
	var scored []eval.Metrics
	finish := func() {
		sum.Elapsed = time.Since(start)
		if len(scored) > 0 {
			sum.HasGroundTruth = true
			sum.Mean = eval.Mean(scored)
		}
		if opts.Trace != nil {
			if err := opts.Trace.Flush(); err != nil {
				slog.Warn("Failed to flush trace", "error", err)
			}
		}
	}

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			finish()
			return sum, err
		}

		res, err := processFrame(ctx, ds, i, cfg, outDir, opts.Colormap)
		if err != nil {
			finish()
			return sum, fmt.Errorf("frame %d (%s): %w", i, ds.Name(i), err)
		}

		sum.Processed++
		res.Processed, res.Total = sum.Processed, total
		if res.Metrics != nil {
			scored = append(scored, *res.Metrics)
		}

		if opts.Trace != nil {
			if err := opts.Trace.Write(res.Entry()); err != nil {
				slog.Warn("Failed to write trace entry", "frame", i, "error", err)
			}
		}
		if opts.Progress != nil {
			opts.Progress(res)
		}
	}

	finish()
	slog.Info("Batch finished", "frames", sum.Processed, "elapsed", sum.Elapsed)
	return sum, nil
}

func processFrame(ctx context.Context, ds *dataset.KITTI, i int, cfg Config, outDir string, cmap render.Colormap) (FrameResult, error) {
	start := time.Now()

	pair, err := ds.Pair(i)
	if err != nil {
		return FrameResult{}, err
	}

	disp, err := stereo.ComputeDisparity(ctx, pair.Left, pair.Right, cfg.Params())
	if err != nil {
		return FrameResult{}, err
	}

	img := render.Render(disp, render.Options{
		Title:    render.FrameTitle(i, cfg.WindowSize),
		VMin:     0,
		VMax:     float64(cfg.MaxDisparity),
		Colormap: cmap,
	})
	path := filepath.Join(outDir, render.FrameFileName(i, cfg.WindowSize))
	if err := render.WritePNG(path, img); err != nil {
		return FrameResult{}, err
	}

	res := FrameResult{
		Index:  i,
		Name:   pair.Name,
		Output: path,
		Stats:  stereo.ComputeStats(disp),
	}

	gt, ok, err := ds.GroundTruth(i)
	if err != nil {
		return FrameResult{}, err
	}
	if ok {
		m, err := eval.Compare(disp, gt)
		if err != nil {
			return FrameResult{}, err
		}
		res.Metrics = &m
	}

	res.Elapsed = time.Since(start)
	slog.Debug("Frame processed", "frame", i, "name", pair.Name, "elapsed", res.Elapsed)
	return res, nil
}
