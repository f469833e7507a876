package output

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{0, 255, 0, 255})
	img.SetRGBA(0, 1, color.RGBA{0, 0, 255, 255})
	img.SetRGBA(1, 1, color.RGBA{127, 64, 1, 255})
	return img
}

func TestWritePPM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePPM(&buf, testImage()))

	expected := "P3\n2 2\n255\n" +
		"255 0 0\n" +
		"0 255 0\n" +
		"0 0 255\n" +
		"127 64 1\n"
	assert.Equal(t, expected, buf.String())
}

func TestWritePNG_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	src := testImage()
	require.NoError(t, WritePNG(&buf, src))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), decoded.Bounds())

	r, g, b, _ := decoded.At(1, 1).RGBA()
	assert.Equal(t, []uint32{127, 64, 1}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"out.png":      FormatPNG,
		"OUT.PNG":      FormatPNG,
		"out.ppm":      FormatPPM,
		"-":            FormatPPM,
		"render":       FormatPPM,
		"dir.png/file": FormatPPM,
	}
	for path, expected := range tests {
		assert.Equal(t, expected, FormatFromPath(path), path)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PNG")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	_, err = ParseFormat("jpeg")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testImage(), FormatPPM))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("P3\n")))

	buf.Reset()
	require.NoError(t, Encode(&buf, testImage(), FormatPNG))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	assert.Error(t, Encode(&buf, testImage(), Format("gif")))
}
