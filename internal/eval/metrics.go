// Package eval scores disparity maps against ground truth using the
// KITTI 2015 conventions.
package eval

import (
	"errors"
	"fmt"
	"math"

	"github.com/kaskra/MLGV/internal/grid"
)

// KITTI outlier thresholds: a pixel is bad when its error exceeds both the
// absolute and the relative bound.
const (
	OutlierAbsolute = 3.0
	OutlierRelative = 0.05
)

// ErrShapeMismatch is returned when the estimate and ground truth differ in size.
var ErrShapeMismatch = errors.New("disparity and ground truth must have the same shape")

// Metrics summarises the error of a disparity estimate.
type Metrics struct {
	// EPE is the mean absolute disparity error (end-point error).
	EPE float64 `json:"epe"`
	// D1 is the fraction of outlier pixels in [0, 1].
	D1 float64 `json:"d1"`
	// Valid is the number of pixels with ground truth.
	Valid int `json:"valid"`
	// Density is Valid divided by the number of pixels.
	Density float64 `json:"density"`
}

// Compare scores disp against gt. Ground-truth values <= 0 are ignored.
func Compare(disp *grid.Image[int32], gt *grid.Image[float32]) (Metrics, error) {
	if disp.Width != gt.Width || disp.Height != gt.Height {
		return Metrics{}, fmt.Errorf("%w: %dx%d vs %dx%d",
			ErrShapeMismatch, disp.Width, disp.Height, gt.Width, gt.Height)
	}

	var (
		sumErr   float64
		outliers int
		valid    int
	)
	for i, g := range gt.Pix {
		if g <= 0 {
			continue
		}
		valid++
		e := math.Abs(float64(disp.Pix[i]) - float64(g))
		sumErr += e
		if IsOutlier(e, float64(g)) {
			outliers++
		}
	}

	m := Metrics{Valid: valid}
	if n := len(gt.Pix); n > 0 {
		m.Density = float64(valid) / float64(n)
	}
	if valid > 0 {
		m.EPE = sumErr / float64(valid)
		m.D1 = float64(outliers) / float64(valid)
	}
	return m, nil
}

// IsOutlier applies the KITTI D1 rule to an absolute error.
func IsOutlier(absErr, truth float64) bool {
	return absErr > OutlierAbsolute && absErr > OutlierRelative*truth
}

// Mean averages the D1 and EPE of several frames, weighting each frame
// equally. Frames without valid pixels are skipped.
func Mean(ms []Metrics) Metrics {
	var out Metrics
	n := 0
	for _, m := range ms {
		if m.Valid == 0 {
			continue
		}
		out.EPE += m.EPE
		out.D1 += m.D1
		out.Density += m.Density
		out.Valid += m.Valid
		n++
	}
	if n > 0 {
		out.EPE /= float64(n)
		out.D1 /= float64(n)
		out.Density /= float64(n)
	}
	return out
}
