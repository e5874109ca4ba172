package ocr

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecarBackend_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "receipt.jpg")

	want := &Result{
		Text:       "Office Depot\r\nTotal: $50.00",
		Confidence: 0.92,
		Tokens: []Token{
			{Text: "Office", Confidence: 0.95, Box: BoundingBox{X: 1, Y: 2, W: 30, H: 10}},
			{Text: "Depot", Confidence: 0.60},
		},
	}
	require.NoError(t, WriteSidecar(imgPath, want))

	got, err := NewSidecarBackend().Extract(context.Background(), Image{Path: imgPath})
	require.NoError(t, err)

	assert.Equal(t, "Office Depot\nTotal: $50.00", got.Text)
	assert.Equal(t, 0.92, got.Confidence)
	require.Len(t, got.Tokens, 2)
	assert.Equal(t, BoundingBox{X: 1, Y: 2, W: 30, H: 10}, got.Tokens[0].Box)

	low := got.LowConfidenceTokens()
	require.Len(t, low, 1)
	assert.Equal(t, "Depot", low[0].Text)
}

func TestSidecarBackend_DerivesConfidenceFromTokens(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "check.png")
	require.NoError(t, os.WriteFile(imgPath+SidecarSuffix,
		[]byte(`{"text":"CHECK","tokens":[{"text":"CHECK","confidence":0.5},{"text":"#1","confidence":0.7}]}`), 0o600))

	got, err := NewSidecarBackend().Extract(context.Background(), Image{Path: imgPath})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, got.Confidence, 1e-9)
}

func TestSidecarBackend_Missing(t *testing.T) {
	_, err := NewSidecarBackend().Extract(context.Background(), Image{Path: filepath.Join(t.TempDir(), "nope.jpg")})
	assert.ErrorIs(t, err, ErrNoSidecar)
}

func TestSidecarBackend_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSidecarBackend().Extract(ctx, Image{Path: "x.jpg"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend("sidecar", Options{})
	require.NoError(t, err)
	assert.IsType(t, &SidecarBackend{}, b)

	_, err = NewBackend("cloud-vision", Options{})
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"control chars dropped", "To\x00tal\x07", "Total"},
		{"tabs kept", "Item\t$5.00", "Item\t$5.00"},
		{"fullwidth digits", "＄５０．００", "$50.00"},
		{"ligature", "ﬁle", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

func TestPreprocess_UpscalesShortImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for x := 0; x < 100; x++ {
		src.Set(x, 25, color.RGBA{R: 255, A: 255})
	}

	out := Preprocess(src, PreprocessOptions{MinHeight: 200})
	assert.Equal(t, 200, out.Bounds().Dy())
	assert.Equal(t, 400, out.Bounds().Dx())

	r, g, b, _ := out.At(10, 100).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestPreprocess_KeepsTallImages(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 40, 300))
	out := Preprocess(src, PreprocessOptions{MinHeight: 200, Sharpen: 1})
	assert.Equal(t, 300, out.Bounds().Dy())
	assert.Equal(t, 40, out.Bounds().Dx())
}
