//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractBackend runs the local tesseract engine through gosseract.
type TesseractBackend struct {
	language   string
	preprocess PreprocessOptions
}

func newTesseractBackend(opts Options) (Backend, error) {
	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	return &TesseractBackend{language: lang, preprocess: opts.Preprocess}, nil
}

// Extract preprocesses the image, then recognises words with their boxes and confidences.
func (b *TesseractBackend) Extract(ctx context.Context, img Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := PrepareImage(img, b.preprocess)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(b.language, "+")...); err != nil {
		return nil, fmt.Errorf("tesseract language: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("tesseract image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract text: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract boxes: %w", err)
	}

	res := &Result{
		Text:   NormalizeText(text),
		Tokens: make([]Token, 0, len(boxes)),
		Layout: map[string]any{"engine": "tesseract", "language": b.language},
	}
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		res.Tokens = append(res.Tokens, Token{
			Text:       word,
			Confidence: clamp01(box.Confidence / 100),
			Box: BoundingBox{
				X: box.Box.Min.X,
				Y: box.Box.Min.Y,
				W: box.Box.Dx(),
				H: box.Box.Dy(),
			},
		})
	}
	res.Confidence = res.MeanTokenConfidence()

	return res, nil
}
