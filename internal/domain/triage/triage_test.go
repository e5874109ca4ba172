package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/internal/domain/ocr"
	"github.com/FACorreiaa/ledger-triage/internal/domain/validate"
	"github.com/FACorreiaa/ledger-triage/pkg/config"
)

func cleanFields() extract.Fields {
	return extract.Fields{
		Kind:          extract.KindReceipt,
		Date:          extract.Field{Value: "2024-01-05", Confidence: 0.95},
		Amount:        extract.Field{Value: "45.00", Confidence: 0.95},
		Vendor:        extract.Field{Value: "Staples Inc", Confidence: 0.85},
		OCRConfidence: 0.93,
	}
}

func build(fields extract.Fields, category string) normalize.Row {
	return normalize.NewBuilder(config.DefaultCategorySchemas()).Build(fields, "r.jpg", category, nil)
}

func TestEngine_CleanRowHasNoFlags(t *testing.T) {
	row := New(0.80).Analyze(build(cleanFields(), "Office Supplies"), nil)

	assert.Empty(t, row.Flags())
	assert.Empty(t, row.Highlights())
	assert.False(t, row.Flagged())
}

func TestEngine_MissingDateOnly(t *testing.T) {
	fields := cleanFields()
	fields.Date = extract.Field{}
	fields.Amount = extract.Field{Value: "50.00", Confidence: 0.95}
	fields.OCRConfidence = 0.92

	row := New(0.80).Analyze(build(fields, "Office Supplies"), nil)

	assert.Equal(t, []string{"parse_error:date"}, row.Flags())
	assert.Equal(t, []string{"Date"}, row.Highlights())
	assert.Equal(t, normalize.PlaceholderParseError, row.Value("Date"))
	assert.Equal(t, "50.00", row.Value("Amount"))
}

func TestEngine_FieldConfidence(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(f *extract.Fields)
		category       string
		wantFlags      []string
		wantHighlights []string
	}{
		{
			name:           "low amount confidence",
			mutate:         func(f *extract.Fields) { f.Amount.Confidence = 0.5 },
			category:       "Office Supplies",
			wantFlags:      []string{"low_conf:amount"},
			wantHighlights: []string{"Amount"},
		},
		{
			name:           "low vendor confidence",
			mutate:         func(f *extract.Fields) { f.Vendor.Confidence = 0.70 },
			category:       "Office Supplies",
			wantFlags:      []string{"low_conf:vendor"},
			wantHighlights: []string{"Vendor"},
		},
		{
			name:           "absent vendor uses the schema alias",
			mutate:         func(f *extract.Fields) { f.Vendor = extract.Field{} },
			category:       "COGS",
			wantFlags:      []string{"parse_error:vendor"},
			wantHighlights: []string{"Vendor/Supplier"},
		},
		{
			name:           "absent vendor without any vendor column",
			mutate:         func(f *extract.Fields) { f.Vendor = extract.Field{} },
			category:       "Transportation",
			wantFlags:      []string{"parse_error:vendor"},
			wantHighlights: []string{"Vendor"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := cleanFields()
			tt.mutate(&fields)
			row := New(0.80).Analyze(build(fields, tt.category), nil)
			assert.Equal(t, tt.wantFlags, row.Flags())
			assert.Equal(t, tt.wantHighlights, row.Highlights())
		})
	}
}

func TestEngine_LowOCRConfidence(t *testing.T) {
	t.Run("with low confidence tokens", func(t *testing.T) {
		fields := cleanFields()
		fields.OCRConfidence = 0.6
		fields.LowConfTokens = []ocr.Token{{Text: "Stap1es", Confidence: 0.4}}

		row := New(0.80).Analyze(build(fields, "Office Supplies"), nil)
		assert.Equal(t, []string{"low_conf"}, row.Flags())
		assert.Equal(t, []string{"Date", "Amount", "Vendor"}, row.Highlights())
	})

	t.Run("without tokens", func(t *testing.T) {
		fields := cleanFields()
		fields.OCRConfidence = 0.6

		row := New(0.80).Analyze(build(fields, "Office Supplies"), nil)
		assert.Equal(t, []string{"low_conf"}, row.Flags())
		assert.Empty(t, row.Highlights())
	})
}

func TestEngine_MirrorsViolations(t *testing.T) {
	violations := []validate.Violation{
		{Kind: validate.KindRuleViolation, Code: validate.RuleNegativeAmount},
		{Kind: validate.KindRuleViolation, Code: validate.RuleRequiredFieldMissing, Field: "Business Purpose"},
		{Kind: validate.KindParseError, Code: validate.CodeAmountNotNumeric},
		{Kind: validate.KindRuleViolation, Code: validate.RuleNegativeAmount},
	}

	row := New(0.80).Analyze(build(cleanFields(), "Office Supplies"), violations)

	assert.Equal(t, []string{
		"rule_violation:negative_amount",
		"rule_violation:required_field_missing:Business Purpose",
		"parse_error:amount_not_numeric",
	}, row.Flags())
	assert.Equal(t, []string{"Business Purpose"}, row.Highlights())
}

func TestEngine_AnalyzeTwiceKeepsSets(t *testing.T) {
	fields := cleanFields()
	fields.Date = extract.Field{}

	e := New(0.80)
	once := e.Analyze(build(fields, "Office Supplies"), nil)
	twice := e.Analyze(once, nil)

	assert.Equal(t, once.Flags(), twice.Flags())
	assert.Equal(t, once.Highlights(), twice.Highlights())
}

func TestEngine_Monotonic(t *testing.T) {
	e := New(0.80)
	for _, conf := range []float64{0.80, 0.85, 0.99, 1.0} {
		fields := cleanFields()
		fields.OCRConfidence = conf
		fields.Date.Confidence = conf
		fields.Amount.Confidence = conf
		fields.Vendor.Confidence = conf
		assert.Empty(t, e.Analyze(build(fields, "Marketing"), nil).Flags(), "confidence %v", conf)
	}
}

func TestNew_Threshold(t *testing.T) {
	assert.Equal(t, 0.9, New(0.9).Threshold())
	assert.Equal(t, DefaultThreshold, New(1.5).Threshold())
	assert.Equal(t, DefaultThreshold, New(-0.1).Threshold())
}
