package stereo

import "github.com/kaskra/MLGV/internal/grid"

// MatchScanline searches the padded right image along row y for the window
// that best matches left, and returns the winning disparity.
//
// Candidates d = 0, 1, ... maxDisparity-1 anchor the right window at
// (x-d, y) in padded coordinates; the search stops at the first d with
// x-d < 0. The smallest d reaching the minimum SAD wins. If no candidate is
// evaluated the result is 0.
func MatchScanline(left grid.Window[float32], right *grid.Image[float32], x, y, maxDisparity, windowSize int) int {
	return matchScanline(sadRow, left, right, x, y, maxDisparity, windowSize)
}

func matchScanline(row func(a, b []float32) float64, left grid.Window[float32], right *grid.Image[float32], x, y, maxDisparity, windowSize int) int {
	var (
		found   bool
		bestSAD float64
		bestD   int
	)

	for d := 0; d < maxDisparity; d++ {
		dispX := x - d
		if dispX < 0 {
			break
		}

		var sad float64
		for j := 0; j < windowSize; j++ {
			ri := (y+j)*right.Width + dispX
			sad += row(left.Row(j), right.Pix[ri:ri+windowSize])
		}

		if !found || sad < bestSAD {
			found = true
			bestSAD = sad
			bestD = d
		}
	}

	return bestD
}
