package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// PreprocessOptions control image cleanup before recognition.
type PreprocessOptions struct {
	// MinHeight upscales shorter images; zero uses DefaultMinHeight.
	MinHeight int
	Sharpen   float64
	Contrast  float64
}

const DefaultMinHeight = 1200

// Preprocess converts img to grayscale, upscales it when shorter than MinHeight and
// optionally sharpens and boosts contrast.
func Preprocess(img image.Image, opts PreprocessOptions) image.Image {
	minHeight := opts.MinHeight
	if minHeight <= 0 {
		minHeight = DefaultMinHeight
	}

	out := imaging.Grayscale(img)
	if out.Bounds().Dy() < minHeight {
		out = imaging.Resize(out, 0, minHeight, imaging.Lanczos)
	}
	if opts.Contrast != 0 {
		out = imaging.AdjustContrast(out, opts.Contrast)
	}
	if opts.Sharpen > 0 {
		out = imaging.Sharpen(out, opts.Sharpen)
	}
	return out
}

// PrepareImage loads img from Data or Path, preprocesses it and re-encodes it as PNG.
func PrepareImage(img Image, opts PreprocessOptions) ([]byte, error) {
	var (
		src image.Image
		err error
	)
	if len(img.Data) > 0 {
		src, err = imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	} else {
		src, err = imaging.Open(img.Path, imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Preprocess(src, opts), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
