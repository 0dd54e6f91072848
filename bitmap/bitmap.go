// Package bitmap packs label images into the fixed 400x240 one-bit raster the
// B1 prints, and splits that raster into the row records sent on the wire.
package bitmap

import (
	"fmt"
	"image"
	"image/color"
)

// Raster geometry of a B1 label
const (
	Width  = 400
	Height = 240
	Stride = Width / 8 // Packed bytes per row
)

// Row is one packed raster row, bit 7 of byte 0 is the leftmost pixel
type Row [Stride]byte

// Bitmap is a packed Width x Height raster; a set bit is an ink pixel
type Bitmap struct {
	rows [Height]Row
}

// ImageDimensionError reports a source image that is not exactly Width x Height
type ImageDimensionError struct {
	Width, Height int
}

func (e *ImageDimensionError) Error() string {
	return fmt.Sprintf("image must be %dx%d pixels, got %dx%d", Width, Height, e.Width, e.Height)
}

func (b *Bitmap) Width() int {
	return Width
}

func (b *Bitmap) Height() int {
	return Height
}

// Row returns a copy of packed row y
func (b *Bitmap) Row(y int) Row {
	return b.rows[y]
}

// GetBit returns 1 if the pixel at (x, y) is ink, 0 otherwise
func (b *Bitmap) GetBit(x, y int) byte {
	return (b.rows[y][x/8] >> (7 - x%8)) & 1
}

// SetBit marks the pixel at (x, y) as ink
func (b *Bitmap) SetBit(x, y int) {
	b.rows[y][x/8] |= 1 << (7 - x%8)
}

func (b *Bitmap) String() string {
	return fmt.Sprintf("Bitmap(%d,%d)", Width, Height)
}

// Encode packs img into a Bitmap.
// A pixel is ink only when its red channel is exactly 0; every other value,
// grey included, is background. The image is never scaled or cropped.
func Encode(img image.Image) (*Bitmap, error) {
	bounds := img.Bounds()
	if bounds.Dx() != Width || bounds.Dy() != Height {
		return nil, &ImageDimensionError{Width: bounds.Dx(), Height: bounds.Dy()}
	}

	b := &Bitmap{}
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			if c.R == 0 {
				b.SetBit(x, y)
			}
		}
	}

	return b, nil
}
