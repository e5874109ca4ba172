//go:build !tesseract

package ocr

import "fmt"

func newTesseractBackend(Options) (Backend, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags tesseract", ErrEngineUnavailable)
}
