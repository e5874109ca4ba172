package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var bankPrefixes = []string{
	"DEBIT CARD PURCHASE ", "CHECKCARD ", "POS PURCHASE ", "POS ",
	"ACH DEBIT ", "ACH CREDIT ", "ACH ", "PURCHASE ",
}

var (
	trailingRef  = regexp.MustCompile(`\s+[#*]?\d{4,}$`)
	trailingDate = regexp.MustCompile(`\s+\d{1,2}/\d{1,2}/?$`)
)

// cleanDescription strips bank noise from a statement description.
func cleanDescription(raw string) string {
	result := whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")

	upper := strings.ToUpper(result)
	for _, prefix := range bankPrefixes {
		if strings.HasPrefix(upper, prefix) {
			result = result[len(prefix):]
			break
		}
	}

	for {
		next := trailingDate.ReplaceAllString(trailingRef.ReplaceAllString(result, ""), "")
		if next == result {
			break
		}
		result = next
	}

	return strings.TrimSpace(result)
}

// titleCase renders a cleaned description for display. Casers are not shared between goroutines.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}
