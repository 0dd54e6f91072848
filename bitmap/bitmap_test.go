package bitmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whiteImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return img
}

func aRandomImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Width, Height))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if rand.IntN(2) == 0 {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestEncodeAllWhite(t *testing.T) {
	b, err := Encode(whiteImage(Width, Height))
	require.NoError(t, err)

	for y := 0; y < Height; y++ {
		assert.Equal(t, Row{}, b.Row(y), "row %d should be blank", y)
	}
}

func TestEncodeSingleInkPixel(t *testing.T) {
	img := whiteImage(Width, Height)
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})

	b, err := Encode(img)
	require.NoError(t, err)

	row0 := b.Row(0)
	assert.Equal(t, byte(0x80), row0[0])
	for i := 1; i < Stride; i++ {
		assert.Zero(t, row0[i], "row 0 byte %d", i)
	}
	for y := 1; y < Height; y++ {
		assert.Equal(t, Row{}, b.Row(y), "row %d should be blank", y)
	}
}

func TestEncodeBitPositions(t *testing.T) {
	img := whiteImage(Width, Height)
	img.SetNRGBA(7, 3, color.NRGBA{A: 255})
	img.SetNRGBA(8, 3, color.NRGBA{A: 255})
	img.SetNRGBA(399, 239, color.NRGBA{A: 255})

	b, err := Encode(img)
	require.NoError(t, err)

	row3 := b.Row(3)
	assert.Equal(t, byte(0x01), row3[0])
	assert.Equal(t, byte(0x80), row3[1])

	last := b.Row(239)
	assert.Equal(t, byte(0x01), last[Stride-1])
}

func TestEncodeRejectsWrongSize(t *testing.T) {
	sizes := [][2]int{{401, 240}, {400, 239}, {240, 400}, {0, 0}}

	for _, sz := range sizes {
		t.Run(fmt.Sprintf("%dx%d", sz[0], sz[1]), func(t *testing.T) {
			_, err := Encode(image.NewGray(image.Rect(0, 0, sz[0], sz[1])))
			require.Error(t, err)

			var dimErr *ImageDimensionError
			require.True(t, errors.As(err, &dimErr))
			assert.Equal(t, sz[0], dimErr.Width)
			assert.Equal(t, sz[1], dimErr.Height)
		})
	}
}

func TestEncodeRedChannelRule(t *testing.T) {
	cases := []struct {
		name string
		c    color.NRGBA
		ink  bool
	}{
		{"black", color.NRGBA{A: 255}, true},
		{"cyan has no red", color.NRGBA{G: 255, B: 255, A: 255}, true},
		{"near black is background", color.NRGBA{R: 1, G: 1, B: 1, A: 255}, false},
		{"mid grey", color.NRGBA{R: 128, G: 128, B: 128, A: 255}, false},
		{"transparent white", color.NRGBA{R: 255, G: 255, B: 255, A: 0}, false},
		{"red", color.NRGBA{R: 255, A: 255}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			img := whiteImage(Width, Height)
			img.SetNRGBA(10, 20, tc.c)

			b, err := Encode(img)
			require.NoError(t, err)

			want := byte(0)
			if tc.ink {
				want = 1
			}
			assert.Equal(t, want, b.GetBit(10, 20))
		})
	}
}

func TestEncodeOffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(100, 50, 100+Width, 50+Height))
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	img.SetGray(100, 50, color.Gray{Y: 0})

	b, err := Encode(img)
	require.NoError(t, err)
	assert.Equal(t, byte(1), b.GetBit(0, 0))
}

func TestEncodeMatchesPixels(t *testing.T) {
	const testCaseCount = 5

	for i := range testCaseCount {
		t.Run(fmt.Sprintf("test %v", i), func(t *testing.T) {
			img := aRandomImage()
			b, err := Encode(img)
			require.NoError(t, err)

			for y := 0; y < Height; y++ {
				for x := 0; x < Width; x++ {
					want := byte(0)
					if img.GrayAt(x, y).Y == 0 {
						want = 1
					}
					if b.GetBit(x, y) != want {
						t.Fatalf("Bit at (%v, %v) doesn't match: %v vs %v", x, y, b.GetBit(x, y), want)
					}
				}
			}
		})
	}
}
