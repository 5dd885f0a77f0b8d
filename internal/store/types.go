package store

import (
	"time"

	"github.com/google/uuid"
)

// Run states recorded in a manifest.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// RunConfig is the persisted copy of a batch configuration.
// It is kept separate from batch.Config so the store has no domain imports.
type RunConfig struct {
	InputDir     string  `json:"inputDir"`
	OutputDir    string  `json:"outputDir"`
	WindowSize   int     `json:"windowSize"`
	MaxDisparity int     `json:"maxDisparity"`
	Workers      int     `json:"workers,omitempty"`
	Backend      string  `json:"backend,omitempty"`
	Scale        float64 `json:"scale,omitempty"`
	Limit        int     `json:"limit,omitempty"`
}

// Run is the manifest of one batch run over a dataset.
//
// The manifest is rewritten as the run progresses, so a crashed run is left
// in StatusRunning with Processed telling how far it got. Per-frame details
// live in the run's trace.jsonl.
type Run struct {
	RunID  string    `json:"runId"`
	Status string    `json:"status"`
	Config RunConfig `json:"config"`

	// Frames is the number of pairs scheduled; Processed counts those written.
	Frames    int `json:"frames"`
	Processed int `json:"processed"`

	// Mean ground-truth scores over frames that had ground truth.
	HasGroundTruth bool    `json:"hasGroundTruth"`
	MeanEPE        float64 `json:"meanEpe,omitempty"`
	MeanD1         float64 `json:"meanD1,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitzero"`
	Error    string    `json:"error,omitempty"`
}

// RunInfo contains metadata about a run for listings.
type RunInfo struct {
	RunID      string    `json:"runId"`
	Status     string    `json:"status"`
	WindowSize int       `json:"windowSize"`
	InputDir   string    `json:"inputDir"`
	Frames     int       `json:"frames"`
	Processed  int       `json:"processed"`
	MeanD1     float64   `json:"meanD1,omitempty"`
	Started    time.Time `json:"started"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// NewRun creates a running manifest for config.
func NewRun(runID string, config RunConfig) *Run {
	return &Run{
		RunID:   runID,
		Status:  StatusRunning,
		Config:  config,
		Started: time.Now(),
	}
}

// ToInfo converts a full Run to RunInfo.
func (r *Run) ToInfo() RunInfo {
	return RunInfo{
		RunID:      r.RunID,
		Status:     r.Status,
		WindowSize: r.Config.WindowSize,
		InputDir:   r.Config.InputDir,
		Frames:     r.Frames,
		Processed:  r.Processed,
		MeanD1:     r.MeanD1,
		Started:    r.Started,
	}
}

// Done reports whether the run reached a terminal state.
func (r *Run) Done() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed || r.Status == StatusCancelled
}

// Validate checks if the manifest has valid data.
func (r *Run) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	switch r.Status {
	case StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
	default:
		return &ValidationError{Field: "Status", Reason: "unknown status " + r.Status}
	}
	if r.Config.InputDir == "" {
		return &ValidationError{Field: "Config.InputDir", Reason: "cannot be empty"}
	}
	if r.Config.WindowSize <= 0 {
		return &ValidationError{Field: "Config.WindowSize", Reason: "must be positive"}
	}
	if r.Config.MaxDisparity <= 0 {
		return &ValidationError{Field: "Config.MaxDisparity", Reason: "must be positive"}
	}
	if r.Frames < 0 || r.Processed < 0 {
		return &ValidationError{Field: "Processed", Reason: "cannot be negative"}
	}
	if r.Processed > r.Frames {
		return &ValidationError{Field: "Processed", Reason: "exceeds Frames"}
	}
	if r.MeanD1 < 0 || r.MeanD1 > 1 {
		return &ValidationError{Field: "MeanD1", Reason: "must lie in [0, 1]"}
	}
	if r.Started.IsZero() {
		return &ValidationError{Field: "Started", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a manifest validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
