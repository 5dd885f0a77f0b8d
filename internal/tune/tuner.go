// Package tune searches for the block-matching window size that minimises the
// KITTI D1 outlier rate on frames with ground truth.
package tune

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/kaskra/MLGV/internal/dataset"
	"github.com/kaskra/MLGV/internal/eval"
	"github.com/kaskra/MLGV/internal/grid"
	"github.com/kaskra/MLGV/internal/opt"
	"github.com/kaskra/MLGV/internal/stereo"
)

var (
	ErrNoFrames      = errors.New("no frames with ground truth to tune on")
	ErrInvalidRange  = errors.New("invalid window size range")
)

// Frame is one stereo pair with its ground-truth disparity.
type Frame struct {
	Left, Right *grid.Image[uint8]
	Truth       *grid.Image[float32]
}

// Evaluation records the score of one window size.
type Evaluation struct {
	WindowSize int          `json:"windowSize"`
	Metrics    eval.Metrics `json:"metrics"`
}

// Result is the outcome of a tuning run.
type Result struct {
	BestWindow int          `json:"bestWindow"`
	Cost       float64      `json:"cost"`
	Evaluated  []Evaluation `json:"evaluated"`
}

// Tuner maps a one-dimensional optimizer position in [0, 1] onto the odd
// window sizes between MinWindow and MaxWindow.
type Tuner struct {
	Frames       []Frame
	MinWindow    int
	MaxWindow    int
	MaxDisparity int
	Workers      int

	mu    sync.Mutex
	cache map[int]eval.Metrics
}

// LoadFrames reads up to limit frames with ground truth from ds. limit <= 0
// loads all of them.
func LoadFrames(ds *dataset.KITTI, limit int) ([]Frame, error) {
	var frames []Frame
	for i := 0; i < ds.Len(); i++ {
		if limit > 0 && len(frames) >= limit {
			break
		}
		gt, ok, err := ds.GroundTruth(i)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		pair, err := ds.Pair(i)
		if err != nil {
			return nil, err
		}
		frames = append(frames, Frame{Left: pair.Left, Right: pair.Right, Truth: gt})
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}

// Candidates lists the window sizes the tuner can choose from.
func (t *Tuner) Candidates() []int {
	lo := t.MinWindow
	if lo%2 == 0 {
		lo++
	}
	var sizes []int
	for ws := lo; ws <= t.MaxWindow; ws += 2 {
		sizes = append(sizes, ws)
	}
	return sizes
}

// windowAt maps a position in [0, 1] to a candidate window size.
func windowAt(candidates []int, pos float64) int {
	if math.IsNaN(pos) {
		pos = 0
	}
	pos = math.Max(0, math.Min(1, pos))
	idx := int(math.Round(pos * float64(len(candidates)-1)))
	return candidates[idx]
}

// Run drives optimizer over the candidate window sizes. Each size is matched
// at most once; repeated proposals hit the cache.
func (t *Tuner) Run(ctx context.Context, optimizer opt.Optimizer) (Result, error) {
	if len(t.Frames) == 0 {
		return Result{}, ErrNoFrames
	}
	if t.MinWindow < 1 || t.MaxWindow < t.MinWindow {
		return Result{}, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, t.MinWindow, t.MaxWindow)
	}
	candidates := t.Candidates()
	if len(candidates) == 0 {
		return Result{}, fmt.Errorf("%w: no odd sizes in [%d, %d]", ErrInvalidRange, t.MinWindow, t.MaxWindow)
	}

	t.mu.Lock()
	t.cache = make(map[int]eval.Metrics)
	t.mu.Unlock()

	var runErr error
	objective := func(x []float64) float64 {
		if runErr != nil {
			return math.Inf(1)
		}
		ws := windowAt(candidates, x[0])
		m, err := t.evaluate(ctx, ws)
		if err != nil {
			runErr = err
			return math.Inf(1)
		}
		return m.D1
	}

	best, _ := optimizer.Run(objective, []float64{0}, []float64{1}, 1)
	if runErr != nil {
		return Result{}, runErr
	}

	bestWindow := windowAt(candidates, best[0])
	res := Result{BestWindow: bestWindow}

	t.mu.Lock()
	for ws, m := range t.cache {
		res.Evaluated = append(res.Evaluated, Evaluation{WindowSize: ws, Metrics: m})
	}
	t.mu.Unlock()
	sort.Slice(res.Evaluated, func(i, j int) bool {
		return res.Evaluated[i].WindowSize < res.Evaluated[j].WindowSize
	})

	// The optimizer's reported cost belongs to its own position; take the
	// cached score of the window size it maps to.
	for _, e := range res.Evaluated {
		if e.WindowSize == bestWindow {
			res.Cost = e.Metrics.D1
		}
	}

	slog.Info("Tuning finished", "best_window", res.BestWindow, "d1", res.Cost, "evaluated", len(res.Evaluated))
	return res, nil
}

func (t *Tuner) evaluate(ctx context.Context, ws int) (eval.Metrics, error) {
	t.mu.Lock()
	m, ok := t.cache[ws]
	t.mu.Unlock()
	if ok {
		return m, nil
	}

	if err := ctx.Err(); err != nil {
		return eval.Metrics{}, err
	}

	params := stereo.Params{
		WindowSize:   ws,
		MaxDisparity: t.MaxDisparity,
		Workers:      t.Workers,
	}
	per := make([]eval.Metrics, 0, len(t.Frames))
	for i, f := range t.Frames {
		disp, err := stereo.ComputeDisparity(ctx, f.Left, f.Right, params)
		if err != nil {
			return eval.Metrics{}, fmt.Errorf("frame %d, window %d: %w", i, ws, err)
		}
		fm, err := eval.Compare(disp, f.Truth)
		if err != nil {
			return eval.Metrics{}, fmt.Errorf("frame %d: %w", i, err)
		}
		per = append(per, fm)
	}
	m = eval.Mean(per)

	t.mu.Lock()
	t.cache[ws] = m
	t.mu.Unlock()

	slog.Debug("Evaluated window size", "window", ws, "d1", m.D1, "epe", m.EPE)
	return m, nil
}
