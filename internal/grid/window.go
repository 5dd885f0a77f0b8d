package grid

// Window is a non-owning rectangular view into a single-channel image.
// Creating a window never copies pixel data.
type Window[T Pixel] struct {
	img  *Image[T]
	x, y int
	size int
}

// WindowAt returns the size×size view whose top-left corner is (x, y).
// The caller guarantees the view lies inside img.
func WindowAt[T Pixel](img *Image[T], x, y, size int) Window[T] {
	return Window[T]{img: img, x: x, y: y, size: size}
}

// Size returns the edge length of the window.
func (w Window[T]) Size() int {
	return w.size
}

// Origin returns the top-left corner in the underlying image.
func (w Window[T]) Origin() (x, y int) {
	return w.x, w.y
}

// Row returns row j of the window as a slice of the underlying buffer.
func (w Window[T]) Row(j int) []T {
	start := (w.y+j)*w.img.Width + w.x
	return w.img.Pix[start : start+w.size]
}

// At returns the value at column i, row j of the window.
func (w Window[T]) At(i, j int) T {
	return w.img.Pix[(w.y+j)*w.img.Width+w.x+i]
}
