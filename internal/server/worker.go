package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kaskra/MLGV/internal/batch"
	"github.com/kaskra/MLGV/internal/store"
)

// runJob executes a batch job in the background. When runs is not nil the
// job is recorded there under its job ID. Cancelling ctx stops the job and
// marks it cancelled.
func runJob(ctx context.Context, jm *JobManager, runs *store.FSStore, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	defer jm.releaseCancel(jobID)

	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	}); err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "input", job.Config.InputDir, "window_size", job.Config.WindowSize)

	start := time.Now()
	opts := batch.Options{
		Progress: func(res batch.FrameResult) {
			jm.UpdateJob(jobID, func(j *Job) {
				j.Frames = res.Total
				j.Processed = res.Processed
			})

			frame := res.Index
			event := ProgressEvent{
				JobID:     jobID,
				State:     StateRunning,
				Processed: res.Processed,
				Frames:    res.Total,
				Frame:     &frame,
				FPS:       framesPerSecond(res.Processed, time.Since(start)),
				Timestamp: time.Now(),
			}
			if res.Metrics != nil {
				d1 := res.Metrics.D1
				event.D1 = &d1
			}
			jm.broadcaster.Broadcast(event)
		},
	}

	var (
		sum *batch.Summary
		err error
	)
	if runs != nil {
		sum, err = batch.Record(ctx, runs, jobID, job.Config, opts)
	} else {
		sum, err = batch.Run(ctx, job.Config, opts)
	}

	endTime := time.Now()
	state := StateCompleted
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		state = StateCancelled
	default:
		state = StateFailed
	}

	jm.UpdateJob(jobID, func(j *Job) {
		j.State = state
		j.EndTime = &endTime
		if sum != nil {
			j.Frames = sum.Frames
			j.Processed = sum.Processed
			j.OutputDir = sum.OutputDir
			j.HasGroundTruth = sum.HasGroundTruth
			j.MeanEPE = sum.Mean.EPE
			j.MeanD1 = sum.Mean.D1
		}
		if state == StateFailed {
			j.Error = err.Error()
		}
	})

	final := ProgressEvent{
		JobID:     jobID,
		State:     state,
		Timestamp: time.Now(),
	}
	if sum != nil {
		final.Processed = sum.Processed
		final.Frames = sum.Frames
		final.FPS = framesPerSecond(sum.Processed, sum.Elapsed)
		if sum.HasGroundTruth {
			d1 := sum.Mean.D1
			final.D1 = &d1
		}
	}

	switch state {
	case StateCompleted:
		slog.Info("Job completed", "job_id", jobID, "frames", final.Processed, "elapsed", endTime.Sub(start), "fps", final.FPS)
	case StateCancelled:
		slog.Info("Job cancelled", "job_id", jobID, "processed", final.Processed)
	default:
		final.Error = err.Error()
		slog.Error("Job failed", "job_id", jobID, "error", err)
	}
	jm.broadcaster.Broadcast(final)

	return err
}
