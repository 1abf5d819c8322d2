package convert

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPixel(t *testing.T) {
	tests := []struct {
		name string
		c    color.NRGBA
		want inkColor
	}{
		{"black", color.NRGBA{0, 0, 0, 255}, inkBlack},
		{"dark gray", color.NRGBA{40, 40, 40, 255}, inkBlack},
		{"red", color.NRGBA{220, 20, 20, 255}, inkRed},
		{"pink is white", color.NRGBA{255, 230, 230, 255}, inkWhite},
		{"white", color.NRGBA{255, 255, 255, 255}, inkWhite},
		{"light gray", color.NRGBA{200, 200, 200, 255}, inkWhite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyPixel(tt.c))
		})
	}
}

func TestPackNRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, EPDWidth, EPDHeight))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 255})
	img.SetNRGBA(9, 1, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(799, 479, color.NRGBA{0, 0, 0, 255})
	img.SetNRGBA(5, 5, color.NRGBA{0, 0, 0, 10})

	black, red, err := PackNRGBA(img)
	require.NoError(t, err)
	require.Len(t, black, EPDPlaneSize)
	require.Len(t, red, EPDPlaneSize)

	assert.Equal(t, byte(0x7F), black[0])
	assert.Equal(t, byte(0xFE), black[EPDPlaneSize-1])
	assert.Equal(t, byte(0xBF), red[EPDByteStride+1])
	assert.Equal(t, byte(0xFF), black[5*EPDByteStride])

	var inked int
	for i := range black {
		if black[i] != 0xFF {
			inked++
		}
		if red[i] != 0xFF {
			inked++
		}
	}
	assert.Equal(t, 3, inked)
}

func TestPackNRGBACropsTallImages(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, EPDWidth, EPDHeight+100))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	// Row 50 of the source is row 0 after cropping.
	img.SetNRGBA(0, 50, color.NRGBA{0, 0, 0, 255})

	black, _, err := PackNRGBA(img)
	require.NoError(t, err)
	assert.Equal(t, byte(0x7F), black[0])
}

func TestPackNRGBARejectsGeometry(t *testing.T) {
	_, _, err := PackNRGBA(image.NewNRGBA(image.Rect(0, 0, 640, EPDHeight)))
	assert.ErrorContains(t, err, "expected width")

	_, _, err = PackNRGBA(image.NewNRGBA(image.Rect(0, 0, EPDWidth, 100)))
	assert.ErrorContains(t, err, "expected height")
}

func TestDecodePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	src.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := DecodePNG(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, img.NRGBAAt(1, 1))

	_, err = DecodePNG([]byte("nope"))
	assert.Error(t, err)
}
