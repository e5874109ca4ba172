package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-triage/pkg/money"
)

const amountConfidence = 0.95

var amountPatternCache sync.Map // joined symbols -> []*regexp.Regexp

func amountPatterns(symbols []string) []*regexp.Regexp {
	key := strings.Join(symbols, "\x00")
	if cached, ok := amountPatternCache.Load(key); ok {
		return cached.([]*regexp.Regexp)
	}

	quoted := make([]string, len(symbols))
	for i, s := range symbols {
		quoted[i] = regexp.QuoteMeta(s)
	}
	var optSym string
	if len(quoted) > 0 {
		optSym = `(?:` + strings.Join(quoted, "|") + `)?`
	}

	// Figures are read as one to three digits plus separated groups, so a total written
	// without a thousands separator is misread: "$1234.56" yields 123 from the symbol
	// pattern and 234.56 from the line-end pattern, and a "Total" label no longer matches it.
	var patterns []*regexp.Regexp
	if len(quoted) > 0 {
		// symbol then number
		patterns = append(patterns, regexp.MustCompile(`(?im)(?:`+strings.Join(quoted, "|")+`)\s*(\d{1,3}(?:[,.]\d{3})*(?:\.\d{2})?)`))
	}
	patterns = append(patterns,
		// number closing a line, optionally followed by a symbol
		regexp.MustCompile(`(?im)(\d{1,3}(?:[,.]\d{3})*\.\d{2})\s*`+optSym+`\s*$`),
		// labelled totals
		regexp.MustCompile(`(?im)(?:Total|Amount|Due|Subtotal|Grand Total)[:\s]+\s*`+optSym+`\s*(\d{1,3}(?:[,.]\d{3})*\.\d{2})`),
	)

	amountPatternCache.Store(key, patterns)
	return patterns
}

// ExtractAmount returns the largest positive amount matched by any pattern.
func ExtractAmount(text string, symbols []string) (decimal.Decimal, float64, bool) {
	var (
		best  decimal.Decimal
		found bool
	)
	for _, re := range amountPatterns(symbols) {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, err := money.Parse(m[1])
			if err != nil || !v.IsPositive() {
				continue
			}
			if !found || v.GreaterThan(best) {
				best, found = v, true
			}
		}
	}
	if !found {
		return decimal.Zero, 0, false
	}
	return best, amountConfidence, true
}
