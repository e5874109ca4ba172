// Package extract turns OCR text into typed, confidence-scored field candidates.
package extract

import (
	"sort"

	"github.com/FACorreiaa/ledger-triage/internal/domain/ocr"
)

// Kind is the detected document type.
type Kind string

const (
	KindReceipt   Kind = "receipt"
	KindCheck     Kind = "check"
	KindStatement Kind = "statement"
)

// Logical field names.
const (
	FieldDate            = "date"
	FieldAmount          = "amount"
	FieldVendor          = "vendor"
	FieldPayee           = "payee"
	FieldAmountWords     = "amount_words"
	FieldCheckNumber     = "check_number"
	FieldMemo            = "memo"
	FieldDescription     = "description"
	FieldBalance         = "balance"
	FieldTransactionType = "transaction_type"
)

// Field is one extracted value. An empty Value means nothing was found.
type Field struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

func (f Field) Present() bool {
	return f.Value != ""
}

// Fields is the extraction result for one document. It is not modified after Extract returns.
type Fields struct {
	Kind          Kind
	Date          Field
	Amount        Field
	Vendor        Field
	Extra         map[string]Field
	OCRConfidence float64
	LowConfTokens []ocr.Token
}

// Get looks up a field by logical name, core fields included.
func (f Fields) Get(name string) (Field, bool) {
	switch name {
	case FieldDate:
		return f.Date, f.Date.Present()
	case FieldAmount:
		return f.Amount, f.Amount.Present()
	case FieldVendor:
		return f.Vendor, f.Vendor.Present()
	}
	v, ok := f.Extra[name]
	return v, ok && v.Present()
}

// Value returns the field value or "".
func (f Fields) Value(name string) string {
	v, _ := f.Get(name)
	return v.Value
}

// Values lists every present value ordered by field name, for keyword scoring.
func (f Fields) Values() []string {
	names := []string{FieldAmount, FieldDate, FieldVendor}
	for name := range f.Extra {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		if v, ok := f.Get(name); ok {
			out = append(out, v.Value)
		}
	}
	return out
}
