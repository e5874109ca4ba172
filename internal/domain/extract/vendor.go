package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const vendorScanLines = 5

var legalSuffix = regexp.MustCompile(`(?i)\b(?:Inc|LLC|Corp|Ltd|Co|Company|LLP)\b`)

// ExtractVendor guesses the issuing business from the head of the document.
// A legal-entity suffix in the first five lines scores 0.85, otherwise the first
// line longer than ten characters scores 0.70, otherwise the first non-empty line 0.60.
func ExtractVendor(text string) (string, float64) {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if i >= vendorScanLines {
			break
		}
		line = strings.TrimSpace(line)
		n := utf8.RuneCountInString(line)
		if n <= 3 || n >= 100 {
			continue
		}
		if legalSuffix.MatchString(line) {
			return line, 0.85
		}
		if n > 10 {
			return line, 0.70
		}
	}

	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			return line, 0.60
		}
	}
	return "", 0
}
