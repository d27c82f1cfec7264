// Package imaging turns uploaded image bytes into the fixed-size float tensors
// the classifiers consume.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when the input cannot be read as a colour raster.
var ErrDecode = errors.New("image decode failed")

// Interp is the resampling kernel used for every stage. Changing it changes
// every score, so it is fixed here rather than configurable.
const Interp = resize.Bicubic

// Channels is the number of colour channels in a tensor (RGB).
const Channels = 3

// Size is a stage input resolution in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Shape returns the NHWC tensor shape for a single image of this size.
func (s Size) Shape() [4]int64 {
	return [4]int64{1, int64(s.Height), int64(s.Width), Channels}
}

// Tensor is a single-image NHWC float32 tensor with values in [0,1].
type Tensor struct {
	Shape [4]int64
	Data  []float32
}

// MaxPixels caps the raster area Decode will allocate. The header is read
// first so an oversized image is rejected before any pixel buffer exists.
const MaxPixels = 40_000_000

// Decode reads JPEG, PNG, GIF, BMP or WebP bytes. All failures wrap ErrDecode.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty raster %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty raster %dx%d", ErrDecode, b.Dx(), b.Dy())
	}

	return img, nil
}

// Normalize resizes img to size and scales each channel into [0,1].
// Alpha is discarded after un-premultiplying, so a translucent pixel keeps
// its straight colour.
func Normalize(img image.Image, size Size) Tensor {
	resized := resize.Resize(uint(size.Width), uint(size.Height), img, Interp)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	data := make([]float32, height*width*Channels)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA64Model.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)

			i := (y*width + x) * Channels
			data[i] = float32(c.R) / 65535.0
			data[i+1] = float32(c.G) / 65535.0
			data[i+2] = float32(c.B) / 65535.0
		}
	}

	return Tensor{
		Shape: Size{Width: width, Height: height}.Shape(),
		Data:  data,
	}
}
