//go:build cgo && linux

package ocr

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Available reports whether Tesseract bindings are compiled in.
func Available() bool { return true }

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// ReadLabel decodes raw image bytes, preprocesses them and returns the
// recognized label text. language is a Tesseract code like "eng"; empty
// falls back to DefaultLanguage.
func ReadLabel(data []byte, language string) (string, error) {
	img, err := Decode(data)
	if err != nil {
		return "", err
	}
	prepped := Preprocess(img)

	// Tesseract wants a file path.
	tmp, err := os.CreateTemp("", "label-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := imaging.Encode(tmp, prepped, imaging.PNG); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encode temp image: %w", err)
	}
	tmp.Close()

	if language == "" {
		language = DefaultLanguage
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return "", fmt.Errorf("set language %q: %w", language, err)
	}
	if err := client.SetImage(tmpPath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}
