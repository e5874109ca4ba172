package review

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/internal/domain/triage"
	"github.com/FACorreiaa/ledger-triage/pkg/config"
	"github.com/FACorreiaa/ledger-triage/pkg/storage"
)

func stagedRow(source, category, vendor, date, amount string, amountConf float64) normalize.Row {
	fields := extract.Fields{
		Kind:          extract.KindReceipt,
		Vendor:        extract.Field{Value: vendor, Confidence: 0.9},
		Amount:        extract.Field{Value: amount, Confidence: amountConf},
		OCRConfidence: 0.95,
	}
	if date != "" {
		fields.Date = extract.Field{Value: date, Confidence: 0.95}
	}
	row := normalize.NewBuilder(config.DefaultCategorySchemas()).Build(fields, source, category, nil)
	return triage.New(0.80).Analyze(row, nil)
}

func fixtureRows() ([]string, map[string][]normalize.Row) {
	return []string{"Office Supplies", "Marketing", "COGS"}, map[string][]normalize.Row{
		"Office Supplies": {
			stagedRow("a.jpg", "Office Supplies", "Office Depot", "", "50.00", 0.95),
			stagedRow("b.jpg", "Office Supplies", "OFFICE DEPOT INC", "", "20.00", 0.95),
			stagedRow("c.jpg", "Office Supplies", "Staples Inc", "2024-01-15", "45.00", 0.95),
		},
		"Marketing": {
			stagedRow("d.jpg", "Marketing", "Google Ads", "2024-02-01", "10.00", 0.5),
		},
	}
}

func TestSummarize(t *testing.T) {
	categories, rows := fixtureRows()
	s := Summarize(categories, rows, RunStats{Failed: 1, Duplicates: 2})

	assert.Equal(t, 4, s.TotalRows)
	assert.Equal(t, 3, s.Flagged)
	assert.InDelta(t, 75.0, s.FlagRate(), 0.001)
	require.Len(t, s.Categories, 2, "empty categories are left out")

	office := s.Categories[0]
	assert.Equal(t, "Office Supplies", office.Category)
	assert.Equal(t, 3, office.Rows)
	assert.Equal(t, 2, office.Flagged)
	assert.Equal(t, "$115.00", office.Total)
	assert.Equal(t, []Count{{Name: "Date", N: 2}}, office.Fields)
	assert.Equal(t, []Count{{Name: "parse_error:date", N: 2}}, office.Reasons)

	marketing := s.Categories[1]
	assert.Equal(t, []Count{{Name: "low_conf:amount", N: 1}}, marketing.Reasons)
	assert.Equal(t, []Count{{Name: "Amount", N: 1}}, marketing.Fields)
	assert.Equal(t, "$10.00", marketing.Total)
}

func TestSummary_Markdown(t *testing.T) {
	categories, rows := fixtureRows()
	md := Summarize(categories, rows, RunStats{Failed: 1, Duplicates: 2}).Markdown()

	for _, want := range []string{
		"# Ledger Triage Run Report",
		"- Total rows processed: 4",
		"- Rows flagged for review: 3",
		"- Flag rate: 75.0%",
		"- Duplicates skipped: 2",
		"- Documents that failed OCR: 1",
		"### Office Supplies",
		"- Date: 2 cells",
		"- parse_error:date: 2",
		"- `OFFICE DEPOT INC` (2 flagged rows; also seen as `Office Depot`)",
		"- `Google Ads` (1 flagged rows)",
		"## Notes",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "### COGS")
}

func TestSummary_MarkdownEmpty(t *testing.T) {
	md := Summarize(nil, nil, RunStats{}).Markdown()
	assert.Contains(t, md, "- Flag rate: 0%\n")
	assert.Contains(t, md, "- No vendor recommendations (all mapped or low frequency)")
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	categories, rows := fixtureRows()
	path, err := WriteReport(context.Background(), store, Summarize(categories, rows, RunStats{}))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ReportName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Vendor Map Recommendations")
}

func TestRecommendVendors(t *testing.T) {
	rows := []normalize.Row{
		stagedRow("1.jpg", "Office Supplies", "STAPLES #1142", "", "1.00", 0.95),
		stagedRow("2.jpg", "Office Supplies", "Staples 1142", "", "2.00", 0.95),
		stagedRow("3.jpg", "Office Supplies", "Staples 1142", "", "3.00", 0.95),
		stagedRow("4.jpg", "Transportation", "Shell Fuel Station", "", "4.00", 0.95),
		stagedRow("5.jpg", "Office Supplies", "Clean Vendor", "2024-01-01", "5.00", 0.95),
	}

	recs := RecommendVendors(rows, 10)
	require.Len(t, recs, 2)
	assert.Equal(t, VendorRecommendation{
		Vendor:   "Staples 1142",
		Variants: []string{"Staples 1142", "STAPLES #1142"},
		Flagged:  3,
	}, recs[0])
	assert.Equal(t, "Shell Fuel Station", recs[1].Vendor)

	assert.Len(t, RecommendVendors(rows, 1), 1)
}

func TestFuzzyScore(t *testing.T) {
	tests := []struct {
		a, b string
		min  int
		max  int
	}{
		{"OFFICE DEPOT", "OFFICE DEPOT", 100, 100},
		{"OFFICE DEPOT INC", "OFFICE DEPOT", 90, 99},
		{"STAPLES", "STAPLS", 80, 90},
		{"GOOGLE ADS", "SHELL FUEL STATION", 0, 40},
		{"", "SHELL", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			score := fuzzyScore(tt.a, tt.b)
			assert.GreaterOrEqual(t, score, tt.min)
			assert.LessOrEqual(t, score, tt.max)
		})
	}
}

func TestIndex(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)
	defer idx.Close()

	_, rows := fixtureRows()
	for _, category := range []string{"Office Supplies", "Marketing"} {
		require.NoError(t, idx.Add(rows[category]...))
	}

	n, err := idx.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)

	t.Run("by category", func(t *testing.T) {
		hits, err := idx.ByCategory("Office Supplies", 0)
		require.NoError(t, err)
		assert.Len(t, hits, 3)
	})

	t.Run("by flag", func(t *testing.T) {
		hits, err := idx.ByFlag("parse_error:date", 0)
		require.NoError(t, err)
		assert.Len(t, hits, 2)

		hits, err = idx.ByFlag("low_conf:amount", 0)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "d.jpg", hits[0].Row.Source())
	})

	t.Run("typo tolerant search", func(t *testing.T) {
		hits, err := idx.Search("staple", 5)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, "c.jpg", hits[0].Row.Source())
	})

	t.Run("no match", func(t *testing.T) {
		hits, err := idx.ByFlag("rule_violation:negative_amount", 0)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("re-adding replaces", func(t *testing.T) {
		require.NoError(t, idx.Add(rows["Marketing"]...))
		n, err := idx.Len()
		require.NoError(t, err)
		assert.Equal(t, uint64(4), n)
	})
}
