package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	t.Parallel()

	data := encodePNG(t, solidImage(7, 5, color.RGBA{10, 200, 30, 255}))

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 7, img.Bounds().Dx())
	assert.Equal(t, 5, img.Bounds().Dy())
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	cases := map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("definitely not an image"),
		"truncated": encodePNG(t, solidImage(4, 4, color.White))[:20],
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode), "error %v should wrap ErrDecode", err)
		})
	}
}

// headerOnlyPNG returns a PNG signature and an RGBA IHDR chunk claiming
// width x height, with no pixel data after it.
func headerOnlyPNG(width, height uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8  // bit depth
	ihdr[9] = 6  // colour type RGBA
	ihdr[10] = 0 // compression
	ihdr[11] = 0 // filter
	ihdr[12] = 0 // interlace

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(ihdr)))
	buf.Write(length[:])

	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)

	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], crc32.ChecksumIEEE(chunk))
	buf.Write(crc[:])
	return buf.Bytes()
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	t.Parallel()

	for _, dim := range []uint32{20000, 65535} {
		data := headerOnlyPNG(dim, dim)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err, "header should parse on its own")
		require.Equal(t, "png", format)
		require.Equal(t, int(dim), cfg.Width)

		_, err = Decode(data)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDecode)
		assert.Contains(t, err.Error(), "exceeds")
	}
}

func TestDecodeSmallHeaderPassesPixelCap(t *testing.T) {
	t.Parallel()

	// A header just under the cap passes the size check and then fails on
	// the missing pixel data, not on the cap.
	_, err := Decode(headerOnlyPNG(4, 4))
	require.ErrorIs(t, err, ErrDecode)
	assert.NotContains(t, err.Error(), "exceeds")
}

func TestNormalizeShapeAndRange(t *testing.T) {
	t.Parallel()

	img := solidImage(300, 200, color.RGBA{255, 0, 128, 255})
	size := Size{Width: 128, Height: 64}

	tensor := Normalize(img, size)

	assert.Equal(t, [4]int64{1, 64, 128, 3}, tensor.Shape)
	require.Len(t, tensor.Data, 64*128*3)

	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value %d out of range: %f", i, v)
		}
	}

	// First pixel of a solid image keeps its colour.
	assert.InDelta(t, 1.0, tensor.Data[0], 1e-3)
	assert.InDelta(t, 0.0, tensor.Data[1], 1e-3)
	assert.InDelta(t, 128.0/255.0, tensor.Data[2], 1e-3)
}

func TestNormalizeChannelOrder(t *testing.T) {
	t.Parallel()

	img := solidImage(2, 2, color.RGBA{0, 0, 255, 255})
	tensor := Normalize(img, Size{Width: 2, Height: 2})

	for p := 0; p < 4; p++ {
		assert.InDelta(t, 0.0, tensor.Data[p*3], 1e-6)
		assert.InDelta(t, 0.0, tensor.Data[p*3+1], 1e-6)
		assert.InDelta(t, 1.0, tensor.Data[p*3+2], 1e-6)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 50, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 50; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 5), uint8(y * 6), uint8(x + y), 255})
		}
	}

	a := Normalize(img, Size{Width: 32, Height: 32})
	b := Normalize(img, Size{Width: 32, Height: 32})
	assert.Equal(t, a, b)
}

func TestNormalizeDropsAlpha(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 128})
		}
	}

	tensor := Normalize(img, Size{Width: 4, Height: 4})
	for _, v := range tensor.Data {
		assert.InDelta(t, 1.0, v, 1e-2)
	}
}

func TestNormalizeOffsetBounds(t *testing.T) {
	t.Parallel()

	full := solidImage(20, 20, color.RGBA{0, 255, 0, 255})
	sub := full.SubImage(image.Rect(5, 5, 15, 15))

	tensor := Normalize(sub, Size{Width: 8, Height: 8})
	assert.Equal(t, [4]int64{1, 8, 8, 3}, tensor.Shape)
	assert.InDelta(t, 1.0, tensor.Data[1], 1e-3)
}
