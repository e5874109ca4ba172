package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-triage/pkg/money"
)

const (
	maxCheckAmount  = 1_000_000
	maxMemoLength   = 100
	checkPayeeConf  = 0.85
	checkAmountConf = 0.95
)

// CheckFields are the values read off a check face.
type CheckFields struct {
	Date           string
	DateConfidence float64
	Payee          string
	AmountDigits   decimal.NullDecimal
	AmountWords    string
	CheckNumber    string
	Memo           string
}

var payeePatterns = []*regexp.Regexp{
	// OCR commonly reads TO as 1Q or T0
	regexp.MustCompile(`(?im)PAY\s+(?:TO|1Q|T0)\s+THE\s+ORDER\s+OF[:\s]+([A-Za-z0-9\s&.,\-']+?)(?:\s+CUSTOMER|\s+DETAILS|\s+NON|\s+COPY|\s*\$|$)`),
	regexp.MustCompile(`(?im)PAY\s+(?:TO|1Q|T0)[:\s]+([A-Za-z0-9\s&.,\-']+?)(?:\s+CUSTOMER|\s+DETAILS|\s+COPY|\s*\$|$)`),
	regexp.MustCompile(`(?im)PAYEE[:\s]+([A-Za-z0-9 \t&.,\-']+)`),
}

type amountFamily struct {
	re *regexp.Regexp
	// split marks a pattern capturing dollars and cents separately
	split bool
}

var checkAmountFamilies = []amountFamily{
	{re: regexp.MustCompile(`(?im)\$\s*(\d{1,3}(?:[,.]\d{3})*(?:\.\d{2})?)`)},
	{re: regexp.MustCompile(`(?im)(\d{1,3}(?:[,.]\d{3})*\.\d{2})\s*dollars?`)},
	{re: regexp.MustCompile(`(?im)\$\s*(\d+)\.?(\d{0,2})`), split: true},
	{re: regexp.MustCompile(`(?im)AMOUNT[:\s]+\$?\s*(\d+(?:\.\d{2})?)`)},
	// amount box: a figure with cents alone on its line
	{re: regexp.MustCompile(`(?m)^[^\w\n#]*(\d{1,5}\.\d{2})\s*$`)},
}

var amountWordsPattern = regexp.MustCompile(`(?im)([A-Za-z][A-Za-z\- ]*(?:\s+and\s+\d{1,2}/100)?)\s+dollars?\b`)

var checkNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)CHECK\s*#?\s*(\d+(?:[- ]\d+)*)`),
	regexp.MustCompile(`(?im)CHECK\s+NUMBER[:\s]+(\d+(?:[- ]\d+)*)`),
	regexp.MustCompile(`(?im)#\s*(\d{3,}(?:[- ]\d+)*)`),
	regexp.MustCompile(`(?im)^(\d{2,}[- ]\d{3,})`),
	regexp.MustCompile(`(?im)^(\d{4,})`),
}

var memoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)MEMO[:\s]+(.+)`),
	regexp.MustCompile(`(?im)\bFOR[:\s]+(.+)`),
}

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	trailingEllipsis = regexp.MustCompile(`\s*\.{2,}$`)
)

// ExtractCheckFields reads payee, amount, check number, memo and date from check text.
// The amount in words is captured as written and not reconciled with the digits.
func ExtractCheckFields(text string, dateFormats []string) CheckFields {
	var out CheckFields
	out.Date, out.DateConfidence = ExtractDate(text, dateFormats)
	out.Payee = extractPayee(text)
	out.AmountDigits = extractCheckAmount(text)

	if m := amountWordsPattern.FindStringSubmatch(text); m != nil {
		out.AmountWords = strings.TrimSpace(m[1])
	}

	out.CheckNumber = extractCheckNumber(text)

	for _, re := range memoPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			out.Memo = truncateRunes(strings.TrimSpace(m[1]), maxMemoLength)
			break
		}
	}

	return out
}

func extractPayee(text string) string {
	for _, re := range payeePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		payee := whitespaceRun.ReplaceAllString(strings.TrimSpace(m[1]), " ")
		payee = strings.TrimRight(trailingEllipsis.ReplaceAllString(payee, ""), " ,-")
		if utf8.RuneCountInString(payee) > 3 {
			return payee
		}
	}
	return ""
}

type checkAmountCandidate struct {
	amount   decimal.Decimal
	matchLen int
}

// extractCheckAmount collects candidates from every family and keeps the largest,
// preferring the longer match on equal amounts.
func extractCheckAmount(text string) decimal.NullDecimal {
	var (
		best  checkAmountCandidate
		found bool
	)
	limit := decimal.NewFromInt(maxCheckAmount)

	for _, fam := range checkAmountFamilies {
		for _, m := range fam.re.FindAllStringSubmatch(text, -1) {
			literal := m[1]
			if fam.split {
				cents := m[2]
				for len(cents) < 2 {
					cents += "0"
				}
				literal = m[1] + "." + cents
			}

			v, err := money.Parse(literal)
			if err != nil || !v.IsPositive() || !v.LessThan(limit) {
				continue
			}

			c := checkAmountCandidate{amount: v, matchLen: len(m[0])}
			if !found || c.amount.GreaterThan(best.amount) ||
				(c.amount.Equal(best.amount) && c.matchLen > best.matchLen) {
				best, found = c, true
			}
		}
	}

	return decimal.NullDecimal{Decimal: best.amount, Valid: found}
}

func extractCheckNumber(text string) string {
	for _, re := range checkNumberPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		num := strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "")
		if len(strings.ReplaceAll(num, "-", "")) >= 4 {
			return num
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
