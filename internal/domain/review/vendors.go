package review

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
)

// similarityThreshold is the fuzzyScore at which two vendor spellings are grouped.
const similarityThreshold = 80

// VendorRecommendation is a vendor worth adding to the vendor map. Variants lists every spelling
// seen, the most frequent first; Vendor is that first spelling.
type VendorRecommendation struct {
	Vendor   string
	Variants []string
	Flagged  int
}

// RecommendVendors counts flagged rows per extracted vendor, folds near-identical spellings
// ("STAPLES #1142", "Staples 1142") into one entry and returns the top limit entries.
func RecommendVendors(rows []normalize.Row, limit int) []VendorRecommendation {
	counts := map[string]int{}
	for _, row := range rows {
		if !row.Flagged() {
			continue
		}
		vendor := strings.TrimSpace(row.Field(extract.FieldVendor).Value)
		if vendor == "" {
			continue
		}
		counts[vendor]++
	}

	spellings := rank(counts, 0)
	assigned := make([]bool, len(spellings))
	var out []VendorRecommendation

	for i, s := range spellings {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		rec := VendorRecommendation{Vendor: s.Name, Variants: []string{s.Name}, Flagged: s.N}

		for j := i + 1; j < len(spellings); j++ {
			if assigned[j] {
				continue
			}
			if fuzzyScore(normalizeVendor(s.Name), normalizeVendor(spellings[j].Name)) >= similarityThreshold {
				assigned[j] = true
				rec.Variants = append(rec.Variants, spellings[j].Name)
				rec.Flagged += spellings[j].N
			}
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Flagged > out[j].Flagged
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func normalizeVendor(s string) string {
	s = strings.ToUpper(s)
	s = strings.NewReplacer("#", " ", ",", " ", ".", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// fuzzyScore rates the similarity of two vendor spellings from 0 to 100, combining containment,
// edit distance and subsequence rank.
func fuzzyScore(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}
	if s1 == "" || s2 == "" {
		return 0
	}

	if strings.Contains(s1, s2) {
		return 75 + (25 * len(s2) / len(s1))
	}
	if strings.Contains(s2, s1) {
		return 75 + (25 * len(s1) / len(s2))
	}

	maxLen := max(len(s1), len(s2))
	distance := fuzzy.LevenshteinDistance(s1, s2)
	score := 100 * (maxLen - distance) / maxLen

	if rank := fuzzy.RankMatch(s2, s1); rank >= 0 && rank < len(s1) {
		score = max(score, 60-(rank*40/len(s1)))
	}
	return score
}
