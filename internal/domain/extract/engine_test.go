package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-triage/internal/domain/ocr"
)

func newTestEngine() *Engine {
	return NewEngine(Config{DateFormats: defaultFormats, CurrencySymbols: []string{"$", "USD"}})
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindCheck, DetectKind("PAY TO THE ORDER OF John"))
	assert.Equal(t, KindCheck, DetectKind("one hundred DOLLARS"))
	assert.Equal(t, KindStatement, DetectKind("Monthly Statement\nBalance: 4.00"))
	assert.Equal(t, KindReceipt, DetectKind("Office Depot\nTotal: $50.00"))
}

func TestEngine_ExtractReceipt(t *testing.T) {
	res := ocr.Result{
		Text:       "Office Depot\n123 Main St\nTotal: $50.00",
		Confidence: 0.92,
		Tokens: []ocr.Token{
			{Text: "Office", Confidence: 0.97},
			{Text: "Depot", Confidence: 0.75},
		},
	}

	f := newTestEngine().Extract(res)

	assert.Equal(t, KindReceipt, f.Kind)
	assert.Equal(t, Field{Value: "50.00", Confidence: 0.95}, f.Amount)
	assert.Equal(t, Field{Value: "Office Depot", Confidence: 0.70}, f.Vendor)
	assert.False(t, f.Date.Present())
	assert.Equal(t, 0.92, f.OCRConfidence)
	require.Len(t, f.LowConfTokens, 1)
	assert.Equal(t, "Depot", f.LowConfTokens[0].Text)
}

func TestEngine_ExtractCheck(t *testing.T) {
	f := newTestEngine().Extract(ocr.Result{
		Text:       "PAY TO THE ORDER OF John Smith\n$433.96\nCHECK #1042",
		Confidence: 0.9,
	})

	assert.Equal(t, KindCheck, f.Kind)
	assert.Equal(t, "John Smith", f.Vendor.Value)
	assert.Equal(t, "433.96", f.Amount.Value)
	assert.Equal(t, "1042", f.Value(FieldCheckNumber))
	assert.Equal(t, "John Smith", f.Value(FieldPayee))

	_, ok := f.Get(FieldMemo)
	assert.False(t, ok)
	assert.Equal(t, []string{"433.96", "1042", "John Smith", "John Smith"}, f.Values())
}

func TestEngine_ExtractStatement(t *testing.T) {
	f := newTestEngine().Extract(ocr.Result{
		Text: "Account Statement\n03/02/2024 POS SHELL OIL 5521 -40.10\nBALANCE: 960.00",
	})

	assert.Equal(t, KindStatement, f.Kind)
	assert.Equal(t, "Shell Oil", f.Vendor.Value)
	assert.Equal(t, "-40.10", f.Amount.Value)
	assert.Equal(t, "2024-03-02", f.Date.Value)
	assert.Equal(t, TransactionDebit, f.Value(FieldTransactionType))
	assert.Equal(t, "960.00", f.Value(FieldBalance))
	assert.Equal(t, "Shell Oil", f.Value(FieldDescription))
}
