// Package validate checks normalized rows against per-category structural rules.
package validate

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/pkg/money"
)

// Kind is the violation family.
type Kind string

const (
	KindParseError    Kind = "parse_error"
	KindRuleViolation Kind = "rule_violation"
)

// Rule and parse codes.
const (
	CodeDateMissing          = "date_missing"
	CodeAmountMissing        = "amount_missing"
	CodeAmountNotNumeric     = "amount_not_numeric"
	RuleRequiredFieldMissing = "required_field_missing"
	RuleInvalidDateFormat    = "invalid_date_format"
	RuleNegativeAmount       = "negative_amount"
)

// Violation is one failed check. Field is set only for rules that point at a column.
type Violation struct {
	Kind  Kind
	Code  string
	Field string
}

// String renders the violation as parse_error:<code> or rule_violation:<rule>[:<field>].
func (v Violation) String() string {
	if v.Field == "" {
		return fmt.Sprintf("%s:%s", v.Kind, v.Code)
	}
	return fmt.Sprintf("%s:%s:%s", v.Kind, v.Code, v.Field)
}

// Level gates which checks run.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

var (
	// strictCategories must carry a date and a non-zero amount.
	strictCategories = map[string]bool{"Revenue": true, "COGS": true, "Bank Fees": true}

	// negativeAllowed may carry negative amounts.
	negativeAllowed = map[string]bool{"Bank Fees": true}

	dateAmountRequired = map[string]bool{
		"Revenue": true, "COGS": true, "R&D": true, "Professional Services": true,
		"Office Supplies": true, "Marketing": true, "Insurance": true, "Bank Fees": true,
	}
)

// RequiredFields lists the columns a category must populate.
func RequiredFields(category string) []string {
	switch {
	case dateAmountRequired[category]:
		return []string{"Date", "Amount"}
	case category == "Transportation":
		// Miles times Rate/Mile may stand in for Amount.
		return []string{"Date"}
	default:
		return nil
	}
}

// Validator is stateless apart from its level and safe for concurrent use.
type Validator struct {
	level Level
}

// New returns a validator. An unknown level falls back to medium.
func New(level string) *Validator {
	l := Level(strings.ToLower(level))
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
	default:
		l = LevelMedium
	}
	return &Validator{level: l}
}

func (v *Validator) Level() Level {
	return v.level
}

// Validate evaluates every rule independently and returns all violations found.
// Placeholder cells count as missing.
func (v *Validator) Validate(row normalize.Row) []Violation {
	category := row.Category()
	var out []Violation

	date := valueOf(row, "Date")
	amount := valueOf(row, "Amount")

	if strictCategories[category] {
		if date == "" {
			out = append(out, Violation{Kind: KindParseError, Code: CodeDateMissing})
		}
		if amount == "" || isZero(amount) {
			out = append(out, Violation{Kind: KindParseError, Code: CodeAmountMissing})
		}
	}

	if v.level != LevelLow {
		for _, field := range RequiredFields(category) {
			if valueOf(row, field) == "" {
				out = append(out, Violation{Kind: KindRuleViolation, Code: RuleRequiredFieldMissing, Field: field})
			}
		}
	}

	if date != "" && (!strings.HasPrefix(date, "20") || len(date) < 10) {
		out = append(out, Violation{Kind: KindRuleViolation, Code: RuleInvalidDateFormat})
	}

	if amount != "" {
		d, err := money.Parse(amount)
		switch {
		case err != nil:
			out = append(out, Violation{Kind: KindParseError, Code: CodeAmountNotNumeric})
		case d.IsNegative() && !negativeAllowed[category]:
			out = append(out, Violation{Kind: KindRuleViolation, Code: RuleNegativeAmount})
		}
	}

	return out
}

func valueOf(row normalize.Row, column string) string {
	if !row.HasValue(column) {
		return ""
	}
	return strings.TrimSpace(row.Value(column))
}

func isZero(amount string) bool {
	d, err := money.Parse(amount)
	return err == nil && d.IsZero()
}
