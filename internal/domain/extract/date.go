package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	explicitDateConfidence = 0.95
	fallbackDateConfidence = 0.90
	isoLayout              = "2006-01-02"
)

var monthAbbrevs = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var monthAlternation = "(?:" + strings.Join(monthAbbrevs, "|") + ")"

// strftime directive -> regex fragment and Go layout element
var directives = map[byte]struct {
	pattern string
	layout  string
}{
	'm': {`\d{1,2}`, "1"},
	'd': {`\d{1,2}`, "2"},
	'Y': {`\d{4}`, "2006"},
	'y': {`\d{2}`, "06"},
	'b': {monthAlternation, "Jan"},
	'B': {`[A-Za-z]{3,9}`, "January"},
	'H': {`\d{1,2}`, "15"},
	'M': {`\d{2}`, "04"},
	'S': {`\d{2}`, "05"},
}

var (
	fallbackNumeric   = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	fallbackISO       = regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`)
	fallbackMonthName = regexp.MustCompile(`(?i)\b` + monthAlternation + `[a-z]*\s+\d{1,2},?\s+\d{4}\b`)
	dateSeparators    = regexp.MustCompile(`[/-]`)
)

type dateFormat struct {
	re     *regexp.Regexp
	layout string
}

var formatCache sync.Map // string -> dateFormat

// compileDateFormat derives a matching regex and a Go layout from a strftime format.
func compileDateFormat(format string) (dateFormat, error) {
	if cached, ok := formatCache.Load(format); ok {
		return cached.(dateFormat), nil
	}

	var pattern, layout strings.Builder
	pattern.WriteString("(?i)")
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '%' && i+1 < len(format) {
			if d, ok := directives[format[i+1]]; ok {
				pattern.WriteString(d.pattern)
				layout.WriteString(d.layout)
				i++
				continue
			}
		}
		pattern.WriteString(regexp.QuoteMeta(string(c)))
		layout.WriteByte(c)
	}

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return dateFormat{}, fmt.Errorf("date format %q: %w", format, err)
	}
	df := dateFormat{re: re, layout: layout.String()}
	formatCache.Store(format, df)
	return df, nil
}

// ExtractDate finds the first date in text and returns it as YYYY-MM-DD.
// Explicit formats are tried in order before the generic patterns. Returns ("", 0) when nothing parses.
func ExtractDate(text string, formats []string) (string, float64) {
	for _, format := range formats {
		df, err := compileDateFormat(format)
		if err != nil {
			continue
		}
		for _, candidate := range df.re.FindAllString(text, -1) {
			if t, err := time.Parse(df.layout, candidate); err == nil {
				return t.Format(isoLayout), explicitDateConfidence
			}
		}
	}

	for _, re := range []*regexp.Regexp{fallbackNumeric, fallbackISO, fallbackMonthName} {
		for _, candidate := range re.FindAllString(text, -1) {
			if date, ok := ParseLenientDate(candidate); ok {
				return date, fallbackDateConfidence
			}
		}
	}

	return "", 0
}

// ParseLenientDate parses a date-shaped string, month-first when ambiguous, and
// returns it as YYYY-MM-DD.
func ParseLenientDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if isLetter(s[0]) {
		return parseMonthName(s)
	}

	parts := dateSeparators.Split(s, -1)
	if len(parts) != 3 {
		return "", false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", false
		}
		nums[i] = n
	}

	if len(parts[0]) == 4 {
		return buildDate(nums[0], nums[1], nums[2])
	}

	year, ok := expandYear(parts[2], nums[2])
	if !ok {
		return "", false
	}
	if date, ok := buildDate(year, nums[0], nums[1]); ok {
		return date, true
	}
	return buildDate(year, nums[1], nums[0])
}

func parseMonthName(s string) (string, bool) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) != 3 || len(fields[0]) < 3 {
		return "", false
	}

	month := 0
	for i, abbrev := range monthAbbrevs {
		if strings.EqualFold(fields[0][:3], abbrev) {
			month = i + 1
			break
		}
	}
	if month == 0 {
		return "", false
	}

	day, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", false
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return "", false
	}
	return buildDate(year, month, day)
}

// expandYear applies the two-digit pivot used by time.Parse: 69-99 -> 19xx, 00-68 -> 20xx.
func expandYear(raw string, n int) (int, bool) {
	switch len(raw) {
	case 4:
		return n, true
	case 2:
		if n >= 69 {
			return 1900 + n, true
		}
		return 2000 + n, true
	default:
		return 0, false
	}
}

func buildDate(year, month, day int) (string, bool) {
	s := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	if _, err := time.Parse(isoLayout, s); err != nil {
		return "", false
	}
	return s, true
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
