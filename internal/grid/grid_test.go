package grid

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func randomImage(width, height, channels int, seed int64) *Image[float32] {
	rng := rand.New(rand.NewSource(seed))
	img := New[float32](width, height, channels)
	for i := range img.Pix {
		img.Pix[i] = float32(rng.Intn(256))
	}
	return img
}

func TestPad_CenterAndBorder(t *testing.T) {
	cases := []struct {
		width, height, channels, padding int
	}{
		{1, 1, 1, 1},
		{5, 4, 1, 1},
		{10, 10, 1, 2},
		{7, 3, 3, 3},
		{6, 6, 1, 0},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%dx%dx%d_p%d", tc.width, tc.height, tc.channels, tc.padding), func(t *testing.T) {
			src := randomImage(tc.width, tc.height, tc.channels, 7)
			padded, err := Pad(src, tc.padding)
			if err != nil {
				t.Fatalf("Pad failed: %v", err)
			}

			if padded.Width != tc.width+2*tc.padding || padded.Height != tc.height+2*tc.padding {
				t.Fatalf("unexpected padded size %dx%d", padded.Width, padded.Height)
			}
			if padded.Channels != tc.channels {
				t.Fatalf("channels changed: %d -> %d", tc.channels, padded.Channels)
			}

			for y := 0; y < padded.Height; y++ {
				for x := 0; x < padded.Width; x++ {
					inside := x >= tc.padding && x < tc.width+tc.padding &&
						y >= tc.padding && y < tc.height+tc.padding
					for c := 0; c < tc.channels; c++ {
						got := padded.At(x, y, c)
						if inside {
							want := src.At(x-tc.padding, y-tc.padding, c)
							if got != want {
								t.Fatalf("centre (%d,%d,%d) = %v, want %v", x, y, c, got, want)
							}
						} else if got != 0 {
							t.Fatalf("border (%d,%d,%d) = %v, want 0", x, y, c, got)
						}
					}
				}
			}
		})
	}
}

func TestPad_DoesNotMutateSource(t *testing.T) {
	src := randomImage(4, 4, 1, 3)
	before := src.Clone()

	padded, err := Pad(src, 2)
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	padded.Pix[len(padded.Pix)/2] = 999

	if diff := cmp.Diff(before.Pix, src.Pix); diff != "" {
		t.Errorf("source modified (-before +after):\n%s", diff)
	}
}

func TestPad_ZeroPaddingCopies(t *testing.T) {
	src := randomImage(3, 2, 1, 1)
	padded, err := Pad(src, 0)
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	if diff := cmp.Diff(src, padded); diff != "" {
		t.Errorf("zero padding should copy exactly (-src +padded):\n%s", diff)
	}
	padded.Pix[0]++
	if src.Pix[0] == padded.Pix[0] {
		t.Error("zero padding must not alias the source buffer")
	}
}

func TestPad_Errors(t *testing.T) {
	if _, err := Pad(randomImage(2, 2, 1, 1), -1); !errors.Is(err, ErrNegativePadding) {
		t.Errorf("expected ErrNegativePadding, got %v", err)
	}
	if _, err := Pad(New[uint8](0, 3, 1), 1); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

func TestWindow_View(t *testing.T) {
	img := FromSlice(4, 3, []int32{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	})

	w := WindowAt(img, 1, 1, 2)
	if w.Size() != 2 {
		t.Fatalf("Size = %d", w.Size())
	}
	if diff := cmp.Diff([]int32{5, 6}, w.Row(0)); diff != "" {
		t.Errorf("row 0 mismatch:\n%s", diff)
	}
	if got := w.At(1, 1); got != 10 {
		t.Errorf("At(1,1) = %d, want 10", got)
	}

	// Views share storage with the image.
	w.Row(0)[0] = 42
	if img.At(1, 1, 0) != 42 {
		t.Error("window should not copy pixel data")
	}
}

func TestConvertAndGrayRoundTrip(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 3, 2))
	for i := range g.Pix {
		g.Pix[i] = uint8(i * 40)
	}

	img := FromGray(g)
	f := Convert[float32](img)
	if f.At(2, 1, 0) != 200 {
		t.Errorf("converted value = %v, want 200", f.At(2, 1, 0))
	}

	back := ToGray(img)
	if diff := cmp.Diff(g.Pix, back.Pix); diff != "" {
		t.Errorf("gray round trip mismatch:\n%s", diff)
	}
}
