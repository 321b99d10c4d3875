// Package ocr extracts label text from product photos using Tesseract.
//
// Recognition requires CGO and the native Tesseract libraries; builds
// without them get a stub that reports ErrUnavailable. Preprocessing is
// pure Go and always available.
package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrUnavailable is returned when the binary was built without the
// native Tesseract bindings.
var ErrUnavailable = errors.New("ocr: tesseract support not compiled in")

// DefaultLanguage is the Tesseract language code used when none is given.
const DefaultLanguage = "eng"

// maxDimension bounds the longest edge before recognition. Phone photos
// far larger than this slow Tesseract down without improving accuracy.
const maxDimension = 1200

// Decode parses raw image bytes in any registered format (PNG, JPEG,
// GIF, TIFF, BMP).
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Preprocess prepares a product photo for recognition: grayscale,
// bounded downscale, contrast stretch.
func Preprocess(img image.Image) image.Image {
	out := imaging.Grayscale(img)
	b := out.Bounds()
	if b.Dx() > maxDimension || b.Dy() > maxDimension {
		out = imaging.Fit(out, maxDimension, maxDimension, imaging.Lanczos)
	}
	return imaging.AdjustContrast(out, 20)
}
