// Package grid provides a small dense numeric image type used by the stereo
// matcher.
//
// An Image stores Height rows of Width pixels with Channels interleaved values
// per pixel. Rows are contiguous, so Row(y) returns a slice that can be walked
// without bounds arithmetic:
//
//	img := grid.New[float32](640, 480, 1)
//	for y := 0; y < img.Height; y++ {
//	    row := img.Row(y)
//	    // ...
//	}
package grid

import (
	"fmt"
	"image"
)

// Pixel is the set of element types an Image can hold.
type Pixel interface {
	~uint8 | ~uint16 | ~int32 | ~float32 | ~float64
}

// Image is a row-major H×W×C grid of scalar values.
type Image[T Pixel] struct {
	Pix      []T
	Width    int
	Height   int
	Channels int
}

// New allocates a zeroed image. channels < 1 is treated as 1.
func New[T Pixel](width, height, channels int) *Image[T] {
	if channels < 1 {
		channels = 1
	}
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image[T]{
		Pix:      make([]T, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

// FromSlice wraps pix as a single-channel image. It panics if the length
// does not match the dimensions.
func FromSlice[T Pixel](width, height int, pix []T) *Image[T] {
	if len(pix) != width*height {
		panic(fmt.Sprintf("grid.FromSlice: got %d values for %dx%d", len(pix), width, height))
	}
	return &Image[T]{Pix: pix, Width: width, Height: height, Channels: 1}
}

// Stride returns the number of elements per row.
func (img *Image[T]) Stride() int {
	return img.Width * img.Channels
}

// Bounds returns the image rectangle anchored at the origin.
func (img *Image[T]) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.Width, img.Height)
}

// Empty reports whether the image has no pixels.
func (img *Image[T]) Empty() bool {
	return img == nil || img.Width == 0 || img.Height == 0
}

// Row returns the elements of row y.
func (img *Image[T]) Row(y int) []T {
	s := img.Stride()
	return img.Pix[y*s : (y+1)*s]
}

// At returns channel c of pixel (x, y).
func (img *Image[T]) At(x, y, c int) T {
	return img.Pix[(y*img.Width+x)*img.Channels+c]
}

// Set writes channel c of pixel (x, y).
func (img *Image[T]) Set(x, y, c int, v T) {
	img.Pix[(y*img.Width+x)*img.Channels+c] = v
}

// SameShape reports whether both images have identical dimensions and channel count.
func (img *Image[T]) SameShape(other *Image[T]) bool {
	return img.Width == other.Width && img.Height == other.Height && img.Channels == other.Channels
}

// Clone returns a deep copy.
func (img *Image[T]) Clone() *Image[T] {
	out := &Image[T]{
		Pix:      make([]T, len(img.Pix)),
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
	}
	copy(out.Pix, img.Pix)
	return out
}

// Convert returns a copy of src with every element cast to D.
func Convert[D, S Pixel](src *Image[S]) *Image[D] {
	out := New[D](src.Width, src.Height, src.Channels)
	for i, v := range src.Pix {
		out.Pix[i] = D(v)
	}
	return out
}

// FromGray copies a standard library gray image into a single-channel grid.
func FromGray(g *image.Gray) *Image[uint8] {
	b := g.Bounds()
	out := New[uint8](b.Dx(), b.Dy(), 1)
	for y := 0; y < out.Height; y++ {
		start := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Row(y), g.Pix[start:start+out.Width])
	}
	return out
}

// ToGray converts a single-channel 8-bit grid back into an image.Gray.
func ToGray(img *Image[uint8]) *image.Gray {
	g := image.NewGray(img.Bounds())
	for y := 0; y < img.Height; y++ {
		copy(g.Pix[y*g.Stride:y*g.Stride+img.Width], img.Row(y)[:img.Width])
	}
	return g
}
