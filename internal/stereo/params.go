package stereo

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWindowSize   = errors.New("window size must be positive")
	ErrInvalidMaxDisparity = errors.New("max disparity must be positive")
	ErrInvalidWorkers      = errors.New("workers must be non-negative")
	ErrShapeMismatch       = errors.New("left and right images must have the same shape")
	ErrNotSingleChannel    = errors.New("images must be single-channel")
	ErrNilImage            = errors.New("image is nil")
)

// Default matching parameters.
const (
	DefaultWindowSize   = 3
	DefaultMaxDisparity = 50
)

// Params configures a block-matching run.
type Params struct {
	// WindowSize is the edge length of the square matching window.
	WindowSize int `json:"windowSize"`

	// MaxDisparity bounds the search: disparities lie in [0, MaxDisparity).
	MaxDisparity int `json:"maxDisparity"`

	// Workers is the number of goroutines matching rows (0 = GOMAXPROCS).
	Workers int `json:"workers,omitempty"`

	// Backend names the SAD kernel (auto, scalar, unrolled).
	Backend string `json:"backend,omitempty"`
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		WindowSize:   DefaultWindowSize,
		MaxDisparity: DefaultMaxDisparity,
		Backend:      string(BackendAuto),
	}
}

// Padding returns the border width added around both images.
func (p Params) Padding() int {
	return p.WindowSize / 2
}

// Validate rejects parameters the engine cannot run with.
func (p Params) Validate() error {
	if p.WindowSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWindowSize, p.WindowSize)
	}
	if p.MaxDisparity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxDisparity, p.MaxDisparity)
	}
	if p.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, p.Workers)
	}
	if _, err := ResolveBackend(p.Backend); err != nil {
		return err
	}
	return nil
}
