package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// SidecarSuffix is appended to an image path to locate its recorded OCR output.
const SidecarSuffix = ".ocr.json"

// SidecarBackend reads OCR output recorded next to the image as <image>.ocr.json.
type SidecarBackend struct{}

func NewSidecarBackend() *SidecarBackend {
	return &SidecarBackend{}
}

// Extract loads and normalises the sidecar for img.Path.
func (b *SidecarBackend) Extract(ctx context.Context, img Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img.Path == "" {
		return nil, fmt.Errorf("%w: image has no path", ErrNoSidecar)
	}

	path := img.Path + SidecarSuffix
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoSidecar, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar %s: %w", path, err)
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode sidecar %s: %w", path, err)
	}

	res.Text = NormalizeText(res.Text)
	if res.Confidence == 0 && len(res.Tokens) > 0 {
		res.Confidence = res.MeanTokenConfidence()
	}
	res.Confidence = clamp01(res.Confidence)

	return &res, nil
}

// WriteSidecar records res next to imagePath so later runs can replay it.
func WriteSidecar(imagePath string, res *Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}
	if err := os.WriteFile(imagePath+SidecarSuffix, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
