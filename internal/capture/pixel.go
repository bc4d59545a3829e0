package capture

import (
	"fmt"
	"image"
)

// SwapRedBlue exchanges the first and third byte of every 4-byte pixel in
// place, converting BGRA to RGBA and back. A trailing partial pixel is left
// untouched.
func SwapRedBlue(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

// SetOpaque forces the alpha byte of every pixel to 0xff.
func SetOpaque(pix []byte) {
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 0xff
	}
}

// FromBGRA converts a tightly packed BGRA buffer into an RGBA image, reusing
// data as the pixel store. The length must be exactly width*height*4.
func FromBGRA(data []byte, width, height int) (*image.RGBA, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if want := width * height * 4; len(data) != want {
		return nil, fmt.Errorf("pixel data is %d bytes, want %d for %dx%d", len(data), want, width, height)
	}

	SwapRedBlue(data)
	return &image.RGBA{
		Pix:    data,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}
