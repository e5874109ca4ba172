// Package triage fuses confidences and validation violations into review flags and highlights.
package triage

import (
	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/internal/domain/validate"
)

const DefaultThreshold = 0.80

// Flag prefixes.
const (
	FlagLowConf    = "low_conf"
	FlagParseError = "parse_error"
)

type coreField struct {
	name   string
	column string // canonical column when the schema has no alias
}

// coreFields are checked for presence and confidence, in this order.
var coreFields = []coreField{
	{extract.FieldDate, "Date"},
	{extract.FieldAmount, "Amount"},
	{extract.FieldVendor, "Vendor"},
}

// Engine is read-only after construction and safe for concurrent use.
type Engine struct {
	threshold float64
}

// New returns an engine. A threshold outside [0, 1] falls back to DefaultThreshold.
func New(threshold float64) *Engine {
	if threshold < 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Analyze returns a copy of the row with flags and highlights added and placeholders refined.
func (e *Engine) Analyze(row normalize.Row, violations []validate.Violation) normalize.Row {
	var flags, highlights []string
	conf := row.Confidences()

	if conf.OCR < e.threshold {
		flags = append(flags, FlagLowConf)
		// Tokens are not mapped back to fields, so every populated core field is highlighted.
		if len(row.LowConfTokens()) > 0 {
			for _, f := range coreFields {
				if row.Field(f.name).Present() {
					highlights = append(highlights, columnsFor(row, f)...)
				}
			}
		}
	}

	for _, f := range coreFields {
		field := row.Field(f.name)
		switch {
		case !field.Present():
			flags = append(flags, FlagParseError+":"+f.name)
			highlights = append(highlights, columnsFor(row, f)...)
		case field.Confidence < e.threshold:
			flags = append(flags, FlagLowConf+":"+f.name)
			highlights = append(highlights, columnsFor(row, f)...)
		}
	}

	for _, v := range violations {
		flags = append(flags, v.String())
		if v.Kind == validate.KindRuleViolation && v.Field != "" {
			highlights = append(highlights, v.Field)
		}
	}

	return row.WithTriage(flags, highlights).WithPlaceholders()
}

// columnsFor returns the schema columns carrying a core field, or its canonical column name
// when the schema uses none of the aliases.
func columnsFor(row normalize.Row, f coreField) []string {
	if cols := row.ColumnsFor(f.name); len(cols) > 0 {
		return cols
	}
	return []string{f.column}
}
