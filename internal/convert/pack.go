package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// EPD panel geometry (7.5" B V2, tri-color).
const (
	EPDWidth      = 800
	EPDHeight     = 480
	EPDByteStride = EPDWidth / 8 // 100 bytes per row
	EPDPlaneSize  = EPDByteStride * EPDHeight
)

// DecodePNG decodes a screenshot into NRGBA, converting from whatever color
// model the encoder chose.
func DecodePNG(data []byte) (*image.NRGBA, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("convert: decode png: %w", err)
	}
	if img, ok := src.(*image.NRGBA); ok {
		return img, nil
	}
	b := src.Bounds()
	img := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	return img, nil
}

// PackNRGBA converts an image.NRGBA into packed 1bpp black/red planes for the
// 7.5" B panel.
//
//   - img width must be exactly EPDWidth.
//   - img height must be >= EPDHeight; taller images are center-cropped.
//   - Transparent pixels (alpha < 128) are white.
//
// Each plane is y-major, MSB-first: byte y*100 + x>>3, mask 0x80>>(x&7).
// Both planes start all ones (white) and ink clears a bit. The driver inverts
// the red plane on the way out.
func PackNRGBA(img *image.NRGBA) (black, red []byte, err error) {
	b := img.Bounds()
	w := b.Dx()
	h := b.Dy()

	if w != EPDWidth {
		return nil, nil, fmt.Errorf("convert: expected width %d, got %d", EPDWidth, w)
	}
	if h < EPDHeight {
		return nil, nil, fmt.Errorf("convert: expected height >= %d, got %d", EPDHeight, h)
	}

	startY := (h - EPDHeight) / 2

	black = bytes.Repeat([]byte{0xFF}, EPDPlaneSize)
	red = bytes.Repeat([]byte{0xFF}, EPDPlaneSize)

	for py := 0; py < EPDHeight; py++ {
		rowOff := (startY + py) * img.Stride

		for px := 0; px < EPDWidth; px++ {
			i := rowOff + px*4
			c := color.NRGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3]}
			if c.A < 128 {
				continue
			}

			byteIndex := py*EPDByteStride + (px >> 3)
			mask := byte(0x80 >> (px & 7))

			switch classifyPixel(c) {
			case inkBlack:
				black[byteIndex] &^= mask
			case inkRed:
				red[byteIndex] &^= mask
			}
		}
	}

	return black, red, nil
}

// inkColor indicates which plane a pixel should be drawn to.
type inkColor int

const (
	inkWhite inkColor = iota
	inkBlack
	inkRed
)

// classifyPixel decides whether a pixel is black, red or white:
//
//   - luma Y = 0.299R + 0.587G + 0.114B below 64 → black
//   - R > 128 and R - max(G, B) > 32 → red
//   - otherwise white
func classifyPixel(c color.NRGBA) inkColor {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)

	y := 0.299*r + 0.587*g + 0.114*b
	redness := r - max(g, b)

	if y < 64 {
		return inkBlack
	}
	if r > 128 && redness > 32 {
		return inkRed
	}
	return inkWhite
}
