package stereo

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/kaskra/MLGV/internal/grid"
)

func rowImage(values ...float32) *grid.Image[float32] {
	return grid.FromSlice(len(values), 1, values)
}

func TestMatchScanline_HighContrastMinimum(t *testing.T) {
	// Every SAD is larger than maxDisparity+1; the best one must still win.
	left := rowImage(0, 0, 0, 200, 0, 0)
	right := rowImage(10, 190, 30, 20, 40, 50)

	got := MatchScanline(grid.WindowAt(left, 3, 0, 1), right, 3, 0, 5, 1)
	if got != 2 {
		t.Errorf("disparity = %d, want 2", got)
	}
}

func TestMatchScanline_TiesPreferSmallestDisparity(t *testing.T) {
	tests := []struct {
		name  string
		right *grid.Image[float32]
		want  int
	}{
		{"all equal", rowImage(100, 100, 100), 0},
		{"tie after first", rowImage(100, 100, 50), 1},
		{"unique best", rowImage(100, 90, 80), 2},
	}

	left := rowImage(0, 0, 100)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchScanline(grid.WindowAt(left, 2, 0, 1), tt.right, 2, 0, 3, 1)
			if got != tt.want {
				t.Errorf("disparity = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMatchScanline_StopsAtLeftEdge(t *testing.T) {
	// At x=1 only d=0 and d=1 are valid even though maxDisparity is larger.
	left := rowImage(0, 7, 0, 0)
	right := rowImage(7, 3, 0, 0)

	got := MatchScanline(grid.WindowAt(left, 1, 0, 1), right, 1, 0, 10, 1)
	if got != 1 {
		t.Errorf("disparity = %d, want 1", got)
	}

	got = MatchScanline(grid.WindowAt(left, 0, 0, 1), right, 0, 0, 10, 1)
	if got != 0 {
		t.Errorf("disparity at x=0 = %d, want 0", got)
	}
}

func TestMatchScanline_NoCandidates(t *testing.T) {
	left := rowImage(1, 2)
	right := rowImage(3, 4)

	if got := MatchScanline(grid.WindowAt(left, 0, 0, 1), right, 0, 0, 0, 1); got != 0 {
		t.Errorf("disparity = %d, want 0", got)
	}
}

func TestSADKernels_Equivalent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{0, 1, 3, 4, 5, 7, 8, 9, 15, 16, 31, 64} {
		t.Run(fmt.Sprintf("len_%d", n), func(t *testing.T) {
			a := make([]float32, n)
			b := make([]float32, n)
			var want float64
			for i := range a {
				a[i] = float32(rng.Intn(256))
				b[i] = float32(rng.Intn(256))
				d := float64(a[i]) - float64(b[i])
				if d < 0 {
					d = -d
				}
				want += d
			}

			if got := sadRowScalar(a, b); got != want {
				t.Errorf("scalar = %v, want %v", got, want)
			}
			if got := sadRowUnrolled(a, b); got != want {
				t.Errorf("unrolled = %v, want %v", got, want)
			}
			if got := sadRow(a, b); got != want {
				t.Errorf("active (%s) = %v, want %v", ActiveSADBackend, got, want)
			}
		})
	}
}

func TestResolveBackend(t *testing.T) {
	tests := []struct {
		name string
		want SADBackend
		err  error
	}{
		{"", ActiveSADBackend, nil},
		{"auto", ActiveSADBackend, nil},
		{" Scalar ", SADBackendScalar, nil},
		{"generic", SADBackendScalar, nil},
		{"UNROLLED", SADBackendUnrolled, nil},
		{"fast", SADBackendUnrolled, nil},
		{"cuda", 0, ErrUnknownBackend},
	}

	for _, tt := range tests {
		got, err := ResolveBackend(tt.name)
		if !errors.Is(err, tt.err) {
			t.Errorf("ResolveBackend(%q) error = %v, want %v", tt.name, err, tt.err)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ResolveBackend(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}

	if len(SupportedBackends()) != 3 {
		t.Errorf("expected 3 supported backends, got %v", SupportedBackends())
	}
}

func TestParams(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	if p.Padding() != 1 {
		t.Errorf("Padding() = %d, want 1", p.Padding())
	}

	for ws, want := range map[int]int{1: 0, 2: 1, 3: 1, 4: 2, 9: 4} {
		p.WindowSize = ws
		if got := p.Padding(); got != want {
			t.Errorf("Padding(ws=%d) = %d, want %d", ws, got, want)
		}
	}
}
