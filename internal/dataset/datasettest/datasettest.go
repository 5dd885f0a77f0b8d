// Package datasettest writes small synthetic KITTI-style splits for tests.
package datasettest

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// Split describes a synthetic split of shifted random-texture pairs.
type Split struct {
	Frames int
	Width  int
	Height int
	// Shift is the true disparity: right(x) = left(x+Shift).
	Shift int
	// GroundTruth writes disp_noc_0 maps holding Shift on columns
	// [Margin+Shift, Width-Margin-1) and zero elsewhere.
	GroundTruth bool
	Margin      int
	Seed        int64
}

// FrameName returns the file name of frame i.
func FrameName(i int) string {
	return fmt.Sprintf("%06d_10.png", i)
}

// Write creates the split under dir and returns dir.
func Write(t testing.TB, dir string, s Split) string {
	t.Helper()
	rng := rand.New(rand.NewSource(s.Seed))

	for i := 0; i < s.Frames; i++ {
		left := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
		right := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
		for y := 0; y < s.Height; y++ {
			row := make([]uint8, s.Width+s.Shift)
			for x := range row {
				row[x] = uint8(rng.Intn(256))
			}
			for x := 0; x < s.Width; x++ {
				left.SetGray(x, y, color.Gray{Y: row[x]})
				right.SetGray(x, y, color.Gray{Y: row[x+s.Shift]})
			}
		}
		name := FrameName(i)
		writePNG(t, filepath.Join(dir, "image_2", name), left)
		writePNG(t, filepath.Join(dir, "image_3", name), right)

		if s.GroundTruth {
			gt := image.NewGray16(image.Rect(0, 0, s.Width, s.Height))
			for y := 0; y < s.Height; y++ {
				for x := s.Margin + s.Shift; x < s.Width-s.Margin-1; x++ {
					gt.SetGray16(x, y, color.Gray16{Y: uint16(s.Shift * 256)})
				}
			}
			writePNG(t, filepath.Join(dir, "disp_noc_0", name), gt)
		}
	}
	return dir
}

func writePNG(t testing.TB, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}
