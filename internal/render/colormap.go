package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Colormap maps a normalised value t in [0, 1] to a color.
type Colormap interface {
	At(t float64) color.Color
}

// hueRamp sweeps the HSV hue wheel between two angles at full saturation.
type hueRamp struct {
	from, to float64 // degrees
}

func (h hueRamp) At(t float64) color.Color {
	t = clamp01(t)
	hue := h.from + (h.to-h.from)*t
	c := colorful.Hsv(hue, 1, 1).Clamped()
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// grayRamp maps t linearly onto black..white.
type grayRamp struct{}

func (grayRamp) At(t float64) color.Color {
	v := uint8(math.Round(clamp01(t) * 255))
	return color.NRGBA{R: v, G: v, B: v, A: 255}
}

var (
	// Rainbow runs from violet (near) to red (far).
	Rainbow Colormap = hueRamp{from: 270, to: 0}
	// RainbowR is Rainbow reversed: small disparities are red, large ones violet.
	RainbowR Colormap = hueRamp{from: 0, to: 270}
	// Gray is a linear grayscale ramp.
	Gray Colormap = grayRamp{}
)

// ColormapByName resolves a colormap name as accepted on the command line.
func ColormapByName(name string) (Colormap, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rainbow_r":
		return RainbowR, nil
	case "rainbow":
		return Rainbow, nil
	case "gray", "grey":
		return Gray, nil
	default:
		return nil, fmt.Errorf("unknown colormap: %s", name)
	}
}

func clamp01(t float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	return math.Max(0, math.Min(1, t))
}
