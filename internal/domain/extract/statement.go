package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-triage/pkg/money"
)

const (
	TransactionDebit  = "debit"
	TransactionCredit = "credit"

	datedDescriptionConf   = 0.85
	undatedDescriptionConf = 0.70
	statementAmountConf    = 0.95
)

// StatementFields describe the most prominent transaction on a statement image.
type StatementFields struct {
	Date                  string
	DateConfidence        float64
	Description           string
	DescriptionConfidence float64
	Amount                decimal.NullDecimal
	Balance               decimal.NullDecimal
	TransactionType       string
}

var (
	// date, description, signed amount with cents
	tabularLine = regexp.MustCompile(`(?m)(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})[ \t]+([A-Za-z0-9 \t&.,'\-]+?)[ \t]+([-+]?\$?\d{1,3}(?:,\d{3})*\.\d{2})(?:[ \t]|$)`)
	// vendor name followed by a dollar amount, no date
	vendorAmountLine = regexp.MustCompile(`(?m)^[ \t]*([A-Za-z][A-Za-z0-9 \t&.,'\-]*?)[ \t]+([-+]?\$\d{1,3}(?:,\d{3})*(?:\.\d{2})?)(?:[ \t]|$)`)

	balancePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ENDING\s+BALANCE[:\s]+\$?(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
		regexp.MustCompile(`(?i)BALANCE[:\s]+\$?(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
	}

	stateCode = regexp.MustCompile(`^[A-Z]{2}$`)
)

var summaryLabels = map[string]bool{
	"balance": true, "total": true, "subtotal": true, "amount": true,
	"deposits": true, "withdrawals": true, "credits": true, "debits": true,
	"fees": true, "interest": true, "beginning": true, "ending": true,
	"previous": true, "new": true,
}

var (
	debitKeywords  = []string{"withdrawal", "debit", "payment", "charge"}
	creditKeywords = []string{"deposit", "credit", "payment received"}
)

type statementCandidate struct {
	date    string
	raw     string
	name    string
	literal string
	amount  decimal.Decimal
	dated   bool
}

// ExtractStatementFields pools tabular and vendor-then-amount candidates and keeps the best:
// dated lines outrank undated ones, then larger absolute amounts win. A -50.00 withdrawal beats
// a +10.00 deposit; the sign only decides the transaction type.
func ExtractStatementFields(text string, dateFormats []string) StatementFields {
	var out StatementFields
	out.Date, out.DateConfidence = ExtractDate(text, dateFormats)
	out.Balance = extractBalance(text)

	candidates := collectStatementCandidates(text)
	if len(candidates) == 0 {
		return out
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.dated != b.dated {
			return a.dated
		}
		return a.amount.Abs().GreaterThan(b.amount.Abs())
	})
	best := candidates[0]

	if best.dated {
		out.Date, out.DateConfidence = best.date, fallbackDateConfidence
		out.DescriptionConfidence = datedDescriptionConf
	} else {
		out.DescriptionConfidence = undatedDescriptionConf
	}
	out.Description = titleCase(best.name)

	out.TransactionType = transactionType(best.literal, best.raw)
	amount := best.amount.Abs()
	if out.TransactionType == TransactionDebit {
		amount = amount.Neg()
	}
	out.Amount = decimal.NullDecimal{Decimal: amount, Valid: true}

	return out
}

func collectStatementCandidates(text string) []statementCandidate {
	var out []statementCandidate

	for _, m := range tabularLine.FindAllStringSubmatch(text, -1) {
		date, ok := ParseLenientDate(m[1])
		if c, valid := newStatementCandidate(m[2], m[3]); valid {
			c.date, c.dated = date, ok
			out = append(out, c)
		}
	}

	for _, m := range vendorAmountLine.FindAllStringSubmatch(text, -1) {
		if c, valid := newStatementCandidate(m[1], m[2]); valid {
			out = append(out, c)
		}
	}

	return out
}

func newStatementCandidate(rawName, literal string) (statementCandidate, bool) {
	name := cleanDescription(rawName)
	if !plausibleVendorName(name) {
		return statementCandidate{}, false
	}
	amount, err := money.Parse(literal)
	if err != nil || amount.IsZero() {
		return statementCandidate{}, false
	}
	return statementCandidate{raw: rawName, name: name, literal: strings.TrimSpace(literal), amount: amount}, true
}

func plausibleVendorName(name string) bool {
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return false
	}
	if summaryLabels[strings.ToLower(strings.TrimRight(tokens[0], ":"))] {
		return false
	}
	return !locationLike(tokens) && saneName(name)
}

// locationLike reports names that are only a city and state ("SEATTLE WA") or a bare short code.
func locationLike(tokens []string) bool {
	for _, t := range tokens {
		if t != strings.ToUpper(t) || strings.IndexFunc(t, unicode.IsLetter) < 0 {
			return false
		}
	}
	switch len(tokens) {
	case 1:
		return utf8.RuneCountInString(tokens[0]) <= 3
	case 2:
		return stateCode.MatchString(tokens[1])
	default:
		return false
	}
}

// saneName requires three characters and a letter majority among non-space characters.
func saneName(name string) bool {
	if utf8.RuneCountInString(name) < 3 {
		return false
	}
	var letters, total int
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return total > 0 && letters*2 >= total
}

// transactionType trusts an explicit sign, then the longest matching keyword. Ties go to debit.
func transactionType(literal, description string) string {
	switch {
	case strings.HasPrefix(literal, "-"):
		return TransactionDebit
	case strings.HasPrefix(literal, "+"):
		return TransactionCredit
	}

	desc := strings.ToLower(description)
	debit := longestKeyword(desc, debitKeywords)
	credit := longestKeyword(desc, creditKeywords)
	switch {
	case debit == 0 && credit == 0:
		return ""
	case credit > debit:
		return TransactionCredit
	default:
		return TransactionDebit
	}
}

func longestKeyword(s string, keywords []string) int {
	longest := 0
	for _, kw := range keywords {
		if len(kw) > longest && strings.Contains(s, kw) {
			longest = len(kw)
		}
	}
	return longest
}

func extractBalance(text string) decimal.NullDecimal {
	for _, re := range balancePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := money.Parse(m[1]); err == nil {
				return decimal.NullDecimal{Decimal: v, Valid: true}
			}
		}
	}
	return decimal.NullDecimal{}
}
