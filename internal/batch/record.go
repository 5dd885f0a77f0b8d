package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kaskra/MLGV/internal/store"
)

// Record runs cfg like Run and persists the run in fs: a manifest that is
// rewritten after every frame and a trace with one entry per frame.
// A hook in opts.Trace is replaced by the run's own trace writer.
func Record(ctx context.Context, fs *store.FSStore, runID string, cfg Config, opts Options) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	run := store.NewRun(runID, cfg.Record())
	if err := fs.SaveRun(run); err != nil {
		return nil, err
	}

	trace, err := store.NewTraceWriter(fs.BaseDir(), runID, false)
	if err != nil {
		return nil, err
	}
	defer trace.Close()

	progress := opts.Progress
	opts.Trace = trace
	opts.Progress = func(res FrameResult) {
		run.Frames, run.Processed = res.Total, res.Processed
		if err := fs.SaveRun(run); err != nil {
			slog.Warn("Failed to update run manifest", "run_id", runID, "error", err)
		}
		if progress != nil {
			progress(res)
		}
	}

	sum, runErr := Run(ctx, cfg, opts)

	run.Finished = time.Now()
	switch {
	case runErr == nil:
		run.Status = store.StatusCompleted
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		run.Status = store.StatusCancelled
	default:
		run.Status = store.StatusFailed
		run.Error = runErr.Error()
	}
	if sum != nil {
		run.Frames, run.Processed = sum.Frames, sum.Processed
		run.HasGroundTruth = sum.HasGroundTruth
		run.MeanEPE, run.MeanD1 = sum.Mean.EPE, sum.Mean.D1
	}

	if err := fs.SaveRun(run); err != nil {
		slog.Error("Failed to save final run manifest", "run_id", runID, "error", err)
		if runErr == nil {
			return sum, err
		}
	}
	return sum, runErr
}
