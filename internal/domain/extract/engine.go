package extract

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-triage/internal/domain/ocr"
	"github.com/FACorreiaa/ledger-triage/pkg/money"
)

// Config holds the extraction inputs loaded from rules.yaml.
type Config struct {
	DateFormats     []string
	CurrencySymbols []string
}

// Engine extracts fields from OCR results. It is safe for concurrent use.
type Engine struct {
	dateFormats     []string
	currencySymbols []string
}

func NewEngine(cfg Config) *Engine {
	return &Engine{
		dateFormats:     append([]string(nil), cfg.DateFormats...),
		currencySymbols: append([]string(nil), cfg.CurrencySymbols...),
	}
}

// DetectKind sniffs the document type from keywords in the text.
func DetectKind(text string) Kind {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "pay to the order", "check", "dollars"):
		return KindCheck
	case containsAny(lower, "statement", "balance", "transaction"):
		return KindStatement
	default:
		return KindReceipt
	}
}

// Extract runs the extractor matching the detected document type.
func (e *Engine) Extract(res ocr.Result) Fields {
	kind := DetectKind(res.Text)

	var f Fields
	switch kind {
	case KindCheck:
		f = e.fromCheck(ExtractCheckFields(res.Text, e.dateFormats))
	case KindStatement:
		f = e.fromStatement(ExtractStatementFields(res.Text, e.dateFormats))
	default:
		f = e.fromReceipt(res.Text)
	}

	f.Kind = kind
	f.OCRConfidence = res.Confidence
	f.LowConfTokens = res.LowConfidenceTokens()
	return f
}

func (e *Engine) fromReceipt(text string) Fields {
	var f Fields

	date, dateConf := ExtractDate(text, e.dateFormats)
	f.Date = Field{Value: date, Confidence: dateConf}

	if amount, conf, ok := ExtractAmount(text, e.currencySymbols); ok {
		f.Amount = Field{Value: money.Format(amount), Confidence: conf}
	}

	vendor, vendorConf := ExtractVendor(text)
	f.Vendor = Field{Value: vendor, Confidence: vendorConf}

	return f
}

func (e *Engine) fromCheck(c CheckFields) Fields {
	f := Fields{
		Date:  Field{Value: c.Date, Confidence: c.DateConfidence},
		Extra: map[string]Field{},
	}
	if c.Payee != "" {
		f.Vendor = Field{Value: c.Payee, Confidence: checkPayeeConf}
		f.Extra[FieldPayee] = f.Vendor
	}
	f.Amount = amountField(c.AmountDigits, checkAmountConf)

	addExtra(f.Extra, FieldAmountWords, c.AmountWords, checkPayeeConf)
	addExtra(f.Extra, FieldCheckNumber, c.CheckNumber, checkPayeeConf)
	addExtra(f.Extra, FieldMemo, c.Memo, checkPayeeConf)
	return f
}

func (e *Engine) fromStatement(s StatementFields) Fields {
	f := Fields{
		Date:  Field{Value: s.Date, Confidence: s.DateConfidence},
		Extra: map[string]Field{},
	}
	if s.Description != "" {
		f.Vendor = Field{Value: s.Description, Confidence: s.DescriptionConfidence}
		f.Extra[FieldDescription] = f.Vendor
	}
	f.Amount = amountField(s.Amount, statementAmountConf)

	if bal := amountField(s.Balance, statementAmountConf); bal.Present() {
		f.Extra[FieldBalance] = bal
	}
	addExtra(f.Extra, FieldTransactionType, s.TransactionType, s.DescriptionConfidence)
	return f
}

func amountField(d decimal.NullDecimal, conf float64) Field {
	if !d.Valid {
		return Field{}
	}
	return Field{Value: money.Format(d.Decimal), Confidence: conf}
}

func addExtra(m map[string]Field, name, value string, conf float64) {
	if value != "" {
		m[name] = Field{Value: value, Confidence: conf}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
