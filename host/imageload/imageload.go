// Package imageload reads label images from disk
package imageload

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/makeworld-the-better-one/dither/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Options controls how an image is prepared
type Options struct {
	// Dither reduces the image to pure black and white with Floyd-Steinberg
	// error diffusion. Without it every pixel whose red channel is not zero
	// prints as paper.
	Dither bool
}

// Load decodes the image at path. The image is never scaled or cropped.
func Load(path string, opts Options) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	if opts.Dither {
		img = Dither(img)
	}
	return img, nil
}

// Dither maps img onto a black and white palette
func Dither(img image.Image) image.Image {
	palette := []color.Color{color.Black, color.White}
	ditherer := dither.NewDitherer(palette)
	ditherer.Matrix = dither.FloydSteinberg
	ditherer.Serpentine = true
	return ditherer.DitherPaletted(img)
}
