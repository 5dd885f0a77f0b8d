package stereo

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/kaskra/MLGV/internal/grid"
	"golang.org/x/sync/errgroup"
)

// chunksPerWorker controls how finely rows are split across workers.
const chunksPerWorker = 4

// ComputeDisparity runs exhaustive SAD block matching on a rectified,
// single-channel image pair and returns a freshly allocated H×W disparity
// map owned by the caller.
//
// Both images are converted to float32 and zero-padded by WindowSize/2. Each
// output cell (x, y) is matched with the left window anchored at (x, y) in
// padded coordinates. Because Hp-ws+1 >= H for odd and even window sizes, the
// iterated range clamped to the output covers every cell exactly once.
//
// Rows are split into disjoint chunks and matched concurrently; the result
// does not depend on the number of workers. Cancelling ctx stops the run
// between rows and returns ctx.Err().
func ComputeDisparity[T grid.Pixel](ctx context.Context, left, right *grid.Image[T], params Params) (*grid.Image[int32], error) {
	if left == nil || right == nil {
		return nil, ErrNilImage
	}
	if left.Channels != 1 || right.Channels != 1 {
		return nil, ErrNotSingleChannel
	}
	if !left.SameShape(right) {
		return nil, ErrShapeMismatch
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	backend, err := ResolveBackend(params.Backend)
	if err != nil {
		return nil, err
	}

	padding := params.Padding()
	paddedLeft, err := grid.Pad(grid.Convert[float32](left), padding)
	if err != nil {
		return nil, err
	}
	paddedRight, err := grid.Pad(grid.Convert[float32](right), padding)
	if err != nil {
		return nil, err
	}

	width, height := left.Width, left.Height
	disparity := grid.New[int32](width, height, 1)

	ws := params.WindowSize
	rows := min(paddedLeft.Height-ws+1, height)
	cols := min(paddedLeft.Width-ws+1, width)

	workers := params.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	m := &rowMatcher{
		row:          rowKernel(backend),
		left:         paddedLeft,
		right:        paddedRight,
		out:          disparity,
		cols:         cols,
		windowSize:   ws,
		maxDisparity: params.MaxDisparity,
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := max(1, (rows+workers*chunksPerWorker-1)/(workers*chunksPerWorker))
	for y0 := 0; y0 < rows; y0 += chunk {
		y1 := min(y0+chunk, rows)
		g.Go(func() error {
			for y := y0; y < y1; y++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				m.matchRow(y)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("Disparity computed",
		"width", width,
		"height", height,
		"window_size", ws,
		"max_disparity", params.MaxDisparity,
		"backend", backend.String(),
		"workers", workers,
		"elapsed", time.Since(start),
	)
	return disparity, nil
}

// rowMatcher holds the read-only state shared by all row workers. Each call
// to matchRow writes only to its own output row.
type rowMatcher struct {
	row          func(a, b []float32) float64
	left, right  *grid.Image[float32]
	out          *grid.Image[int32]
	cols         int
	windowSize   int
	maxDisparity int
}

func (m *rowMatcher) matchRow(y int) {
	out := m.out.Row(y)
	for x := 0; x < m.cols; x++ {
		window := grid.WindowAt(m.left, x, y, m.windowSize)
		out[x] = int32(matchScanline(m.row, window, m.right, x, y, m.maxDisparity, m.windowSize))
	}
}

// Stats summarises a disparity map.
type Stats struct {
	Min  int32   `json:"min"`
	Max  int32   `json:"max"`
	Mean float64 `json:"mean"`
}

// ComputeStats returns the minimum, maximum and mean disparity.
func ComputeStats(disparity *grid.Image[int32]) Stats {
	if len(disparity.Pix) == 0 {
		return Stats{}
	}
	s := Stats{Min: disparity.Pix[0], Max: disparity.Pix[0]}
	var sum float64
	for _, v := range disparity.Pix {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += float64(v)
	}
	s.Mean = sum / float64(len(disparity.Pix))
	return s
}
