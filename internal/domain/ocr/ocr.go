// Package ocr defines the recognised-text contract consumed by extraction and
// the backends that produce it.
package ocr

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoSidecar     = errors.New("no OCR sidecar for image")
	ErrUnknownEngine = errors.New("unknown OCR engine")
	// ErrEngineUnavailable is returned when the binary was built without the requested engine.
	ErrEngineUnavailable = errors.New("OCR engine not compiled into this binary")
)

// LowConfidenceThreshold marks tokens that extraction reports as low confidence.
const LowConfidenceThreshold = 0.80

// BoundingBox is a token's pixel rectangle in the source image.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Token is one recognised word.
type Token struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// Result is the output of one OCR pass over a document image.
type Result struct {
	Text       string         `json:"text"`
	Confidence float64        `json:"confidence"`
	Tokens     []Token        `json:"tokens"`
	Layout     map[string]any `json:"layout,omitempty"`
}

// LowConfidenceTokens returns the tokens below LowConfidenceThreshold, in reading order.
func (r Result) LowConfidenceTokens() []Token {
	var out []Token
	for _, t := range r.Tokens {
		if t.Confidence < LowConfidenceThreshold {
			out = append(out, t)
		}
	}
	return out
}

// MeanTokenConfidence averages token confidences. Zero when there are no tokens.
func (r Result) MeanTokenConfidence() float64 {
	if len(r.Tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range r.Tokens {
		sum += t.Confidence
	}
	return sum / float64(len(r.Tokens))
}

// Image is a document image handed to a backend. Data may be nil when Path is set.
type Image struct {
	Path string
	Data []byte
}

// Backend turns an image into recognised text.
type Backend interface {
	Extract(ctx context.Context, img Image) (*Result, error)
}

// Options configure backend construction.
type Options struct {
	Language   string
	Preprocess PreprocessOptions
}

// NewBackend selects a backend by engine name: "sidecar" or "tesseract".
func NewBackend(engine string, opts Options) (Backend, error) {
	switch engine {
	case "", "sidecar":
		return NewSidecarBackend(), nil
	case "tesseract":
		return newTesseractBackend(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}
