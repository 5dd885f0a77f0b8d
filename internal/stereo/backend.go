package stereo

import (
	"errors"
	"fmt"
	"strings"
)

// Backend identifies a SAD kernel implementation by name.
type Backend string

const (
	BackendAuto     Backend = "auto"
	BackendScalar   Backend = "scalar"
	BackendUnrolled Backend = "unrolled"
)

// ErrUnknownBackend is returned when the name does not match a known backend.
var ErrUnknownBackend = errors.New("unknown SAD backend")

// NormalizeBackend maps arbitrary user input to a canonical backend identifier.
func NormalizeBackend(name string) Backend {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return BackendAuto
	case "scalar", "generic":
		return BackendScalar
	case "unrolled", "fast":
		return BackendUnrolled
	default:
		return Backend(name)
	}
}

// SupportedBackends returns the list of backends understood by ResolveBackend.
func SupportedBackends() []Backend {
	return []Backend{BackendAuto, BackendScalar, BackendUnrolled}
}

// ResolveBackend returns the kernel selected by name. "auto" resolves to the
// backend chosen at start-up from the CPU features.
func ResolveBackend(name string) (SADBackend, error) {
	switch NormalizeBackend(name) {
	case BackendAuto:
		return ActiveSADBackend, nil
	case BackendScalar:
		return SADBackendScalar, nil
	case BackendUnrolled:
		return SADBackendUnrolled, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}
