package store

// Store defines the interface for run persistence.
// Implementations must be safe for concurrent use.
//
// Load and Delete return ErrNotFound for unknown run IDs; other failures are
// wrapped with context.
type Store interface {
	// SaveRun atomically writes the manifest, overwriting any previous one.
	SaveRun(run *Run) error

	// LoadRun retrieves the manifest for runID.
	LoadRun(runID string) (*Run, error)

	// ListRuns returns metadata for all stored runs, newest first.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the manifest and trace of runID. Rendered images
	// live in the run's output directory and are left alone.
	DeleteRun(runID string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
