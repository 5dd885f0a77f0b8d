package dataset

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaskra/MLGV/internal/grid"
	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// supportedExts lists the file extensions decodeFile understands.
var supportedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// decodeFile opens and decodes an image, choosing the decoder from the
// file extension.
func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err = png.Decode(file)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	case ".bmp":
		img, err = bmp.Decode(file)
	case ".tif", ".tiff":
		img, err = tiff.Decode(file)
	default:
		img, _, err = image.Decode(file)
	}
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// LoadGray decodes an image file and converts it to 8-bit grayscale.
func LoadGray(path string) (*grid.Image[uint8], error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return grid.FromGray(toGray(img)), nil
}

// toGray converts any image to *image.Gray using luma weights.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// LoadDisparity decodes a KITTI 16-bit disparity PNG. Stored values are
// disparity × 256; zero marks pixels without ground truth.
func LoadDisparity(path string) (*grid.Image[float32], error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return fromGray16(toGray16(img), 1), nil
}

func toGray16(img image.Image) *image.Gray16 {
	if g, ok := img.(*image.Gray16); ok {
		return g
	}
	bounds := img.Bounds()
	out := image.NewGray16(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			out.SetGray16(x, y, color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16))
		}
	}
	return out
}

// fromGray16 decodes KITTI disparity encoding and multiplies by scale.
func fromGray16(g *image.Gray16, scale float64) *grid.Image[float32] {
	bounds := g.Bounds()
	out := grid.New[float32](bounds.Dx(), bounds.Dy(), 1)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			v := g.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			out.Set(x, y, 0, float32(float64(v)/256*scale))
		}
	}
	return out
}

// scaledSize returns the dimensions after scaling, never below one pixel.
func scaledSize(width, height int, scale float64) (uint, uint) {
	w := max(1, int(float64(width)*scale+0.5))
	h := max(1, int(float64(height)*scale+0.5))
	return uint(w), uint(h)
}

// downscaleGray resizes an 8-bit image with Lanczos filtering.
func downscaleGray(img *grid.Image[uint8], scale float64) *grid.Image[uint8] {
	w, h := scaledSize(img.Width, img.Height, scale)
	resized := resize.Resize(w, h, grid.ToGray(img), resize.Lanczos3)
	return grid.FromGray(toGray(resized))
}

// downscaleDisparity resizes a ground-truth map with nearest-neighbour
// sampling, so invalid (zero) pixels are never blended into valid ones, and
// rescales the disparity values to the new resolution.
func downscaleDisparity(path string, scale float64) (*grid.Image[float32], error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	g := toGray16(img)
	w, h := scaledSize(g.Bounds().Dx(), g.Bounds().Dy(), scale)
	resized := resize.Resize(w, h, g, resize.NearestNeighbor)
	return fromGray16(toGray16(resized), scale), nil
}
