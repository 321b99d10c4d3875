//go:build !cgo || !linux

package ocr

// Available reports whether Tesseract bindings are compiled in.
func Available() bool { return false }

// Version returns the linked Tesseract version.
func Version() string { return "" }

// ReadLabel always fails on builds without native Tesseract.
func ReadLabel(data []byte, language string) (string, error) {
	return "", ErrUnavailable
}
