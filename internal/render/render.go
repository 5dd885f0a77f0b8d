// Package render turns disparity maps into color-mapped PNG images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kaskra/MLGV/internal/grid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	titleHeight  = 20
	titleMarginX = 4
)

// Options controls how a disparity map is rendered.
type Options struct {
	// Title is drawn in a header band above the map when non-empty.
	Title string
	// VMin and VMax define the display range; values outside are clipped.
	VMin, VMax float64
	// Colormap defaults to RainbowR.
	Colormap Colormap
}

// Render color-maps disp into a new image.
func Render(disp *grid.Image[int32], opts Options) *image.NRGBA {
	cmap := opts.Colormap
	if cmap == nil {
		cmap = RainbowR
	}
	span := opts.VMax - opts.VMin
	if span <= 0 {
		span = 1
	}

	top := 0
	if opts.Title != "" {
		top = titleHeight
	}

	img := image.NewNRGBA(image.Rect(0, 0, disp.Width, disp.Height+top))
	if top > 0 {
		draw.Draw(img, image.Rect(0, 0, disp.Width, top), image.White, image.Point{}, draw.Src)
		drawTitle(img, opts.Title)
	}

	// Precompute one color per distinct disparity in the display range.
	lut := make(map[int32]color.NRGBA)
	for y := 0; y < disp.Height; y++ {
		row := disp.Row(y)
		for x, v := range row {
			c, ok := lut[v]
			if !ok {
				t := (float64(v) - opts.VMin) / span
				c = color.NRGBAModel.Convert(cmap.At(t)).(color.NRGBA)
				lut[v] = c
			}
			img.SetNRGBA(x, y+top, c)
		}
	}
	return img
}

func drawTitle(img *image.NRGBA, title string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
	}
	width := d.MeasureString(title).Ceil()
	x := titleMarginX
	if free := img.Bounds().Dx() - width; free > 2*titleMarginX {
		x = free / 2
	}
	baseline := (titleHeight + face.Metrics().Ascent.Ceil() - face.Metrics().Descent.Ceil()) / 2
	d.Dot = fixed.P(x, baseline)
	d.DrawString(title)
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// WritePNG writes img to path atomically (temp file + rename), creating the
// parent directory if needed.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.png")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename output file: %w", err)
	}

	slog.Debug("Wrote image", "path", path)
	return nil
}

// FrameFileName returns the output file name for frame i.
func FrameFileName(i, windowSize int) string {
	return fmt.Sprintf("%04d_w%03d.png", i, windowSize)
}

// FrameTitle returns the plot title for frame i.
func FrameTitle(i, windowSize int) string {
	return fmt.Sprintf("Disparity map for image %04d with block matching (window size %d)", i, windowSize)
}

// OutputDir returns the per-window-size output directory under base.
func OutputDir(base string, windowSize int) string {
	return filepath.Join(base, fmt.Sprintf("window_size_%d", windowSize))
}
