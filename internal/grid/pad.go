package grid

import "errors"

var (
	// ErrNegativePadding is returned when Pad is asked for a negative border.
	ErrNegativePadding = errors.New("padding must be non-negative")
	// ErrEmptyImage is returned for images without pixels.
	ErrEmptyImage = errors.New("image is empty")
)

// Pad returns a new image enlarged by padding cells on every side. The source
// is copied into [padding, H+padding) × [padding, W+padding) and every border
// cell is zero. The channel count is preserved and src is not modified.
func Pad[T Pixel](src *Image[T], padding int) (*Image[T], error) {
	if padding < 0 {
		return nil, ErrNegativePadding
	}
	if src.Empty() {
		return nil, ErrEmptyImage
	}
	if padding == 0 {
		return src.Clone(), nil
	}

	out := New[T](src.Width+2*padding, src.Height+2*padding, src.Channels)
	offset := padding * src.Channels
	for y := 0; y < src.Height; y++ {
		dst := out.Row(y + padding)
		copy(dst[offset:offset+src.Stride()], src.Row(y))
	}
	return out, nil
}
