package stereo

import (
	"log/slog"

	"golang.org/x/sys/cpu"
)

// SAD (Sum of Absolute Differences) window kernel.
//
// The matcher scores a candidate disparity by summing |L - R| over every
// element of two equally sized windows. Windows are walked row by row; each
// row is handed to a row kernel selected at start-up:
//   - sadRowUnrolled: 4-way unrolled loop with independent accumulators
//   - sadRowScalar:   straightforward reference loop
//
// Both kernels accumulate in float64 and are exact for integer-valued
// float32 intensities, so they return identical results.

// SADBackend indicates which row kernel is active
type SADBackend int

const (
	SADBackendScalar SADBackend = iota
	SADBackendUnrolled
)

func (b SADBackend) String() string {
	switch b {
	case SADBackendUnrolled:
		return "unrolled"
	case SADBackendScalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// ActiveSADBackend reports which backend was selected for SAD
var ActiveSADBackend SADBackend

// sadRow is the runtime-dispatched row kernel.
var sadRow func(a, b []float32) float64

func init() {
	// Wide-issue cores keep the four accumulators of the unrolled kernel busy.
	if cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD {
		ActiveSADBackend = SADBackendUnrolled
		sadRow = sadRowUnrolled
		slog.Debug("SAD kernel initialized", "backend", "unrolled")
	} else {
		ActiveSADBackend = SADBackendScalar
		sadRow = sadRowScalar
		slog.Debug("SAD kernel initialized", "backend", "scalar")
	}
}

// rowKernel returns the row function implementing backend.
func rowKernel(backend SADBackend) func(a, b []float32) float64 {
	if backend == SADBackendUnrolled {
		return sadRowUnrolled
	}
	return sadRowScalar
}
