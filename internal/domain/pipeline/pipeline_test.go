package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-triage/internal/domain/classify"
	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/internal/domain/ocr"
	"github.com/FACorreiaa/ledger-triage/internal/domain/triage"
	"github.com/FACorreiaa/ledger-triage/internal/domain/validate"
	"github.com/FACorreiaa/ledger-triage/pkg/config"
	"github.com/FACorreiaa/ledger-triage/pkg/money"
)

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()

	classifier, err := classify.New(classify.Config{
		Vendors: []classify.VendorRule{{Match: "Office Depot", Category: "Office Supplies"}},
	})
	require.NoError(t, err)

	p, err := New(cfg, Stages{
		OCR: ocr.NewSidecarBackend(),
		Extractor: extract.NewEngine(extract.Config{
			DateFormats:     config.DefaultDateFormats,
			CurrencySymbols: config.DefaultCurrencySymbols,
		}),
		Classifier: classifier,
		Builder:    normalize.NewBuilder(config.DefaultCategorySchemas()),
		Validator:  validate.New("medium"),
		Triage:     triage.New(0.80),
	}, NewMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return p
}

// writeImage records an OCR sidecar for a fake image and returns the image path.
func writeImage(t *testing.T, dir, name, text string, conf float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))
	require.NoError(t, ocr.WriteSidecar(path, &ocr.Result{Text: text, Confidence: conf}))
	return path
}

func TestPipeline_ProcessOfficeDepot(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "r1.jpg", "Office Depot\n123 Main St\nTotal: $50.00", 0.92)

	p := newTestPipeline(t, Config{Triage: true})
	out := p.Process(context.Background(), Document{Path: path})
	require.True(t, out.OK())

	assert.Equal(t, "Office Supplies", out.Row.Category())
	assert.Equal(t, classify.SourceVendorMap, out.Classification.Source)
	assert.Equal(t, "50.00", out.Row.Value("Amount"))

	assert.True(t, out.Row.HasFlag("parse_error:date"))
	assert.True(t, out.Row.Highlighted("Date"))
	assert.False(t, out.Row.HasFlag("low_conf:amount"))
	assert.False(t, out.Row.HasFlag("parse_error:amount"))
	assert.False(t, out.Row.Highlighted("Amount"))
	assert.Equal(t, normalize.PlaceholderParseError, out.Row.Value("Date"))

	again := p.Process(context.Background(), Document{Path: path})
	assert.True(t, again.Duplicate)
}

func TestPipeline_CleanReceipt(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "r.png", "Staples Inc\n01/15/2024\nPaper\nTotal: $45.00", 0.95)

	out := newTestPipeline(t, Config{Triage: true}).Process(context.Background(), Document{Path: path})
	require.True(t, out.OK())

	assert.Equal(t, "Office Supplies", out.Row.Category())
	assert.Equal(t, classify.SourceKeywords, out.Classification.Source)
	assert.Equal(t, "2024-01-15", out.Row.Value("Date"))
	assert.Empty(t, out.Violations)
	assert.Empty(t, out.Row.Flags())
}

func TestPipeline_TriageDisabled(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "r.jpg", "Office Depot\nTotal: $50.00", 0.5)

	out := newTestPipeline(t, Config{}).Process(context.Background(), Document{Path: path})
	require.True(t, out.OK())
	assert.Empty(t, out.Row.Flags())
	assert.NotEmpty(t, out.Violations, "validation still runs")
}

func TestPipeline_CategoryOverride(t *testing.T) {
	dir := t.TempDir()
	withFile := writeImage(t, dir, "a.jpg", "Office Depot\nTotal: $50.00", 0.95)
	require.NoError(t, os.WriteFile(withFile+CategorySuffix, []byte("Marketing\n"), 0o644))
	withoutFile := writeImage(t, dir, "b.jpg", "Office Depot\nTotal: $60.00", 0.95)

	p := newTestPipeline(t, Config{Triage: true})

	out := p.Process(context.Background(), Document{Path: withFile, Override: "COGS"})
	assert.Equal(t, "Marketing", out.Row.Category())
	assert.Equal(t, 1.0, out.Classification.Confidence)

	out = p.Process(context.Background(), Document{Path: withoutFile, Override: "COGS"})
	assert.Equal(t, "COGS", out.Row.Category())
	assert.Equal(t, []string{"Date", "Vendor/Supplier", "Item/Description", "Product Line", "Amount", "Payment Method"}, out.Row.Columns())
}

func TestPipeline_RunKeepsLowestIndexDuplicate(t *testing.T) {
	dir := t.TempDir()
	gen := money.NewTestDataGeneratorWithSeed(7)

	var docs []Document
	var texts []string
	for i, r := range gen.Receipts(money.USD, 5) {
		texts = append(texts, r.Text())
		docs = append(docs, Document{Index: i, Path: writeImage(t, dir, fmt.Sprintf("r%d.jpg", i), r.Text(), 0.95)})
	}
	// Second photographs of receipts 1 and 3, plus an image with no OCR output.
	docs = append(docs,
		Document{Index: 5, Path: writeImage(t, dir, "r5.jpg", texts[1], 0.95)},
		Document{Index: 6, Path: writeImage(t, dir, "r6.jpg", texts[3], 0.95)},
		Document{Index: 7, Path: filepath.Join(dir, "missing.jpg")},
	)

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			p := newTestPipeline(t, Config{Triage: true, Workers: workers})
			res, err := p.Run(context.Background(), docs)
			require.NoError(t, err)

			require.Len(t, res.Outcomes, len(docs))
			assert.Equal(t, 1, res.Failed)
			assert.Equal(t, 2, res.Duplicates)
			assert.Equal(t, 5, res.TotalRows())
			assert.Len(t, res.AllRows(), 5)

			assert.False(t, res.Outcomes[1].Duplicate)
			assert.False(t, res.Outcomes[3].Duplicate)
			assert.True(t, res.Outcomes[5].Duplicate)
			assert.True(t, res.Outcomes[6].Duplicate)
			assert.ErrorIs(t, res.Outcomes[7].Err, ocr.ErrNoSidecar)

			assert.Equal(t, 2.0, testutil.ToFloat64(p.Metrics().DuplicatesTotal))
			assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().OCRFailures))

			var total int
			for _, category := range res.Categories {
				total += len(res.Rows[category])
			}
			assert.Equal(t, 5, total)
		})
	}
}

func TestPipeline_RunDedupesByIndexNotPosition(t *testing.T) {
	dir := t.TempDir()
	text := "Office Depot\n01/15/2024\nTotal: $50.00"
	later := writeImage(t, dir, "later.jpg", text, 0.95)
	first := writeImage(t, dir, "first.jpg", text, 0.95)
	other := writeImage(t, dir, "other.jpg", "Office Depot\n01/16/2024\nTotal: $12.00", 0.95)

	docs := []Document{
		{Index: 9, Path: later},
		{Index: 4, Path: other},
		{Index: 2, Path: first},
	}

	res, err := newTestPipeline(t, Config{Workers: 2}).Run(context.Background(), docs)
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, later, res.Outcomes[0].Document.Path)
	assert.True(t, res.Outcomes[0].Duplicate)
	assert.False(t, res.Outcomes[2].Duplicate)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, []string{"Office Supplies"}, res.Categories)

	rows := res.Rows["Office Supplies"]
	require.Len(t, rows, 2)
	assert.Equal(t, first, rows[0].Source())
	assert.Equal(t, other, rows[1].Source())
}

func TestPipeline_RunCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "a.jpg", "Office Depot\nTotal: $50.00", 0.95)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(t, Config{}).Run(ctx, []Document{{Path: path}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "a.jpg", "Office Depot\nTotal: $50.00", 0.95)

	p := newTestPipeline(t, Config{Triage: true})
	_, err := p.Run(context.Background(), []Document{{Path: path}})
	require.NoError(t, err)

	out := filepath.Join(dir, "ledger.prom")
	require.NoError(t, p.Metrics().WriteTextfile(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `ledger_pipeline_rows_total{category="Office Supplies"} 1`), text)
	assert.Contains(t, text, `ledger_pipeline_documents_total{kind="receipt"} 1`)
	assert.Contains(t, text, "ledger_pipeline_stage_duration_seconds_bucket")
}

func TestNew_RequiresStages(t *testing.T) {
	_, err := New(Config{}, Stages{}, nil, nil)
	assert.Error(t, err)
}
