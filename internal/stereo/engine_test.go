package stereo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kaskra/MLGV/internal/grid"
)

// randomTexture returns a single-channel image of uniform random intensities.
func randomTexture(width, height int, seed int64) *grid.Image[uint8] {
	rng := rand.New(rand.NewSource(seed))
	img := grid.New[uint8](width, height, 1)
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// shiftedPair builds a right image such that right(x) = left(x+k); a pixel at
// column x in the left image therefore appears at x-k in the right one.
func shiftedPair(width, height, k int, seed int64) (*grid.Image[uint8], *grid.Image[uint8]) {
	wide := randomTexture(width+k, height, seed)
	left := grid.New[uint8](width, height, 1)
	right := grid.New[uint8](width, height, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			left.Set(x, y, 0, wide.At(x, y, 0))
			right.Set(x, y, 0, wide.At(x+k, y, 0))
		}
	}
	return left, right
}

func TestComputeDisparity_IdenticalImages(t *testing.T) {
	for _, ws := range []int{1, 3, 4, 5, 7} {
		t.Run(fmt.Sprintf("ws%d", ws), func(t *testing.T) {
			img := randomTexture(24, 16, 11)
			params := Params{WindowSize: ws, MaxDisparity: 8}

			disp, err := ComputeDisparity(context.Background(), img, img, params)
			if err != nil {
				t.Fatalf("ComputeDisparity failed: %v", err)
			}
			for i, v := range disp.Pix {
				if v != 0 {
					t.Fatalf("pixel %d: disparity %d, want 0", i, v)
				}
			}
		})
	}
}

func TestComputeDisparity_RecoversShift(t *testing.T) {
	cases := []struct {
		ws, k, maxD int
	}{
		{3, 2, 8},
		{5, 4, 16},
		{7, 6, 10},
		{4, 3, 6},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("ws%d_k%d", tc.ws, tc.k), func(t *testing.T) {
			const width, height = 48, 20
			left, right := shiftedPair(width, height, tc.k, 99)

			disp, err := ComputeDisparity(context.Background(), left, right, Params{WindowSize: tc.ws, MaxDisparity: tc.maxD})
			if err != nil {
				t.Fatalf("ComputeDisparity failed: %v", err)
			}

			p := tc.ws / 2
			for y := 0; y < height; y++ {
				for x := p + tc.k; x < width-tc.ws; x++ {
					if got := disp.At(x, y, 0); int(got) != tc.k {
						t.Fatalf("(%d,%d): disparity %d, want %d", x, y, got, tc.k)
					}
				}
			}
		})
	}
}

func TestComputeDisparity_GradientScenario(t *testing.T) {
	// ws=3, maxD=5, 10x10 horizontal gradient, right = left shifted by 2.
	const width, height, k = 10, 10, 2
	left := grid.New[float32](width, height, 1)
	right := grid.New[float32](width, height, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			left.Set(x, y, 0, float32(10*x+5))
			right.Set(x, y, 0, float32(10*(x+k)+5))
		}
	}

	disp, err := ComputeDisparity(context.Background(), left, right, Params{WindowSize: 3, MaxDisparity: 5})
	if err != nil {
		t.Fatalf("ComputeDisparity failed: %v", err)
	}

	// Columns whose left and right windows both stay inside the image.
	for y := 0; y < height; y++ {
		for x := 1 + k; x < width-1; x++ {
			if got := disp.At(x, y, 0); got != k {
				t.Errorf("(%d,%d): disparity %d, want %d", x, y, got, k)
			}
		}
	}
}

func TestComputeDisparity_ShapeAndRange(t *testing.T) {
	left := randomTexture(31, 17, 1)
	right := randomTexture(31, 17, 2)

	for _, ws := range []int{1, 2, 3, 6, 9} {
		for _, maxD := range []int{1, 4, 40} {
			t.Run(fmt.Sprintf("ws%d_d%d", ws, maxD), func(t *testing.T) {
				disp, err := ComputeDisparity(context.Background(), left, right, Params{WindowSize: ws, MaxDisparity: maxD})
				if err != nil {
					t.Fatalf("ComputeDisparity failed: %v", err)
				}
				if disp.Width != left.Width || disp.Height != left.Height || disp.Channels != 1 {
					t.Fatalf("disparity shape %dx%dx%d, want %dx%dx1",
						disp.Width, disp.Height, disp.Channels, left.Width, left.Height)
				}
				for y := 0; y < disp.Height; y++ {
					for x := 0; x < disp.Width; x++ {
						v := int(disp.At(x, y, 0))
						if v < 0 || v >= maxD {
							t.Fatalf("(%d,%d): disparity %d outside [0,%d)", x, y, v, maxD)
						}
						// Only candidates with x-d >= 0 are ever evaluated.
						if v > x {
							t.Fatalf("(%d,%d): disparity %d exceeds column", x, y, v)
						}
					}
				}
			})
		}
	}
}

func TestComputeDisparity_DeterministicAcrossWorkers(t *testing.T) {
	left, right := shiftedPair(40, 33, 3, 5)
	base := Params{WindowSize: 5, MaxDisparity: 12, Workers: 1}

	want, err := ComputeDisparity(context.Background(), left, right, base)
	if err != nil {
		t.Fatalf("ComputeDisparity failed: %v", err)
	}

	for _, workers := range []int{0, 2, 3, 8, 64} {
		for _, backend := range []string{"scalar", "unrolled", "auto"} {
			p := base
			p.Workers = workers
			p.Backend = backend
			got, err := ComputeDisparity(context.Background(), left, right, p)
			if err != nil {
				t.Fatalf("workers=%d backend=%s: %v", workers, backend, err)
			}
			if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
				t.Errorf("workers=%d backend=%s: result differs (-want +got):\n%s", workers, backend, diff)
			}
		}
	}
}

func TestComputeDisparity_InvalidInputs(t *testing.T) {
	img := randomTexture(8, 8, 1)
	other := randomTexture(9, 8, 1)
	rgb := grid.New[uint8](8, 8, 3)

	tests := []struct {
		name        string
		left, right *grid.Image[uint8]
		params      Params
		want        error
	}{
		{"nil", nil, img, DefaultParams(), ErrNilImage},
		{"shape", img, other, DefaultParams(), ErrShapeMismatch},
		{"channels", rgb, rgb, DefaultParams(), ErrNotSingleChannel},
		{"zero window", img, img, Params{WindowSize: 0, MaxDisparity: 4}, ErrInvalidWindowSize},
		{"negative window", img, img, Params{WindowSize: -3, MaxDisparity: 4}, ErrInvalidWindowSize},
		{"zero disparity", img, img, Params{WindowSize: 3, MaxDisparity: 0}, ErrInvalidMaxDisparity},
		{"negative workers", img, img, Params{WindowSize: 3, MaxDisparity: 4, Workers: -1}, ErrInvalidWorkers},
		{"backend", img, img, Params{WindowSize: 3, MaxDisparity: 4, Backend: "opencl"}, ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeDisparity(context.Background(), tt.left, tt.right, tt.params)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestComputeDisparity_Cancelled(t *testing.T) {
	left, right := shiftedPair(64, 64, 2, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ComputeDisparity(ctx, left, right, Params{WindowSize: 3, MaxDisparity: 8})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestComputeStats(t *testing.T) {
	disp := grid.FromSlice(3, 2, []int32{0, 1, 2, 3, 4, 8})
	got := ComputeStats(disp)
	want := Stats{Min: 0, Max: 8, Mean: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	if got := ComputeStats(grid.New[int32](0, 0, 1)); got != (Stats{}) {
		t.Errorf("empty stats = %+v", got)
	}
}

func BenchmarkComputeDisparity(b *testing.B) {
	left, right := shiftedPair(320, 96, 7, 1)
	params := Params{WindowSize: 5, MaxDisparity: 32}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ComputeDisparity(ctx, left, right, params); err != nil {
			b.Fatal(err)
		}
	}
}
