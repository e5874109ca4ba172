package classify

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// DefaultKeywords is the built-in category keyword table.
var DefaultKeywords = map[string][]string{
	"Office Supplies": {
		"staples", "office depot", "office max", "paper", "pen", "pencil",
		"folder", "binder", "envelope", "staple", "printer", "ink", "toner",
	},
	"Marketing": {
		"google ads", "facebook ads", "meta ads", "advertising", "marketing",
		"social media", "campaign", "promotion", "adwords", "x ads",
	},
	"COGS": {
		"aws", "amazon web services", "azure", "gcp", "cloud", "hosting",
		"server", "infrastructure", "supplier", "inventory", "product",
	},
	"Insurance": {
		"insurance", "blue cross", "health", "liability", "policy",
		"coverage", "premium", "deductible",
	},
	"Professional Services": {
		"consulting", "legal", "accountant", "attorney", "lawyer",
		"professional", "service", "advisor",
	},
	"R&D": {
		"research", "development", "software", "tool", "library", "framework",
		"sdk", "api", "development tool",
	},
	"Transportation": {
		"mileage", "gas", "fuel", "uber", "lyft", "taxi", "parking",
		"toll", "car", "vehicle", "mile",
	},
	"Bank Fees": {
		"bank fee", "transaction fee", "service charge", "overdraft",
		"atm fee", "wire fee", "financial",
	},
	"Revenue": {
		"invoice", "payment received", "revenue", "income", "sale",
		"customer payment",
	},
}

// keywordMatcher counts keyword hits per category in a single pass over the text.
type keywordMatcher struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	owners   [][]string // categories owning each pattern
}

func newKeywordMatcher(table map[string][]string) *keywordMatcher {
	// Categories are visited in sorted order so pattern indexes are stable between runs.
	categories := make([]string, 0, len(table))
	for category := range table {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	patternToIndex := make(map[string]int)
	km := &keywordMatcher{}

	for _, category := range categories {
		for _, kw := range table[category] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if idx, exists := patternToIndex[kw]; exists {
				km.owners[idx] = appendUnique(km.owners[idx], category)
				continue
			}
			patternToIndex[kw] = len(km.patterns)
			km.patterns = append(km.patterns, kw)
			km.owners = append(km.owners, []string{category})
		}
	}

	if len(km.patterns) > 0 {
		bytePatterns := make([][]byte, len(km.patterns))
		for i, p := range km.patterns {
			bytePatterns[i] = []byte(p)
		}
		km.matcher = ahocorasick.NewMatcher(bytePatterns)
	}
	return km
}

// hits returns the number of distinct keywords found per category.
func (km *keywordMatcher) hits(text string) map[string]int {
	if km.matcher == nil || text == "" {
		return nil
	}

	matches := km.matcher.MatchThreadSafe([]byte(strings.ToLower(text)))
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(matches))
	counts := make(map[string]int)
	for _, idx := range matches {
		if idx < 0 || idx >= len(km.owners) || seen[idx] {
			continue
		}
		seen[idx] = true
		for _, category := range km.owners[idx] {
			counts[category]++
		}
	}
	return counts
}

// best picks the category with the most hits; ties go to the alphabetically first name.
func best(counts map[string]int) (string, int) {
	var (
		category string
		top      int
	)
	for c, n := range counts {
		if n > top || (n == top && c < category) {
			category, top = c, n
		}
	}
	return category, top
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
