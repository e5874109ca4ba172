// Package classify assigns a bookkeeping category to extracted document fields.
package classify

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
)

const Unclassified = "Unclassified"

// Source records which step of the cascade produced a category.
type Source string

const (
	SourceOverride     Source = "override"
	SourceVendorMap    Source = "vendor_map"
	SourceKeywords     Source = "keywords"
	SourceUnclassified Source = "unclassified"
)

const (
	overrideConfidence  = 1.0
	vendorMapConfidence = 0.95
	keywordBase         = 0.60
	keywordStep         = 0.10
	keywordCap          = 0.85
)

// VendorRule maps a vendor name to a category. Exactly one of Match or MatchRegex is set.
type VendorRule struct {
	Match      string
	MatchRegex string
	Category   string
	Hints      map[string]string
}

// Config holds the classifier inputs. A nil Keywords table uses DefaultKeywords.
type Config struct {
	Vendors  []VendorRule
	Keywords map[string][]string
}

// Result is the classification of one document.
type Result struct {
	Category   string
	Confidence float64
	Hints      map[string]string
	Source     Source
}

type vendorRule struct {
	literal  string
	re       *regexp.Regexp
	category string
	hints    map[string]string
}

// Classifier runs the override, vendor map, keyword, unclassified cascade.
// All state is built in New and read-only afterwards, so one Classifier can be shared by workers.
type Classifier struct {
	vendors  []vendorRule
	keywords *keywordMatcher
}

func New(cfg Config) (*Classifier, error) {
	rules := make([]vendorRule, 0, len(cfg.Vendors))
	for i, v := range cfg.Vendors {
		r := vendorRule{
			literal:  strings.ToLower(strings.TrimSpace(v.Match)),
			category: v.Category,
			hints:    copyHints(v.Hints),
		}
		if v.MatchRegex != "" {
			re, err := regexp.Compile("(?i)" + v.MatchRegex)
			if err != nil {
				return nil, fmt.Errorf("vendor rule %d: invalid regex %q: %w", i, v.MatchRegex, err)
			}
			r.re = re
		}
		if r.literal == "" && r.re == nil {
			return nil, fmt.Errorf("vendor rule %d: no match pattern", i)
		}
		rules = append(rules, r)
	}

	table := cfg.Keywords
	if table == nil {
		table = DefaultKeywords
	}

	return &Classifier{
		vendors:  rules,
		keywords: newKeywordMatcher(table),
	}, nil
}

// Classify assigns a category. A non-empty override always wins.
func (c *Classifier) Classify(fields extract.Fields, override string) Result {
	if override = strings.TrimSpace(override); override != "" {
		return Result{Category: override, Confidence: overrideConfidence, Hints: map[string]string{}, Source: SourceOverride}
	}

	vendor := fields.Vendor.Value
	if rule, ok := c.matchVendor(vendor); ok {
		return Result{
			Category:   rule.category,
			Confidence: vendorMapConfidence,
			Hints:      copyHints(rule.hints),
			Source:     SourceVendorMap,
		}
	}

	blob := strings.Join(fields.Values(), "\n")
	if category, hits := best(c.keywords.hits(blob)); hits > 0 {
		return Result{
			Category:   category,
			Confidence: keywordConfidence(hits),
			Hints:      map[string]string{},
			Source:     SourceKeywords,
		}
	}

	return Result{Category: Unclassified, Confidence: 0, Hints: map[string]string{}, Source: SourceUnclassified}
}

// matchVendor returns the first rule matching the vendor. Literal rules match when either
// string contains the other, ignoring case.
func (c *Classifier) matchVendor(vendor string) (vendorRule, bool) {
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return vendorRule{}, false
	}
	lower := strings.ToLower(vendor)

	for _, r := range c.vendors {
		if r.literal != "" && (strings.Contains(lower, r.literal) || strings.Contains(r.literal, lower)) {
			return r, true
		}
		if r.re != nil && r.re.MatchString(vendor) {
			return r, true
		}
	}
	return vendorRule{}, false
}

func keywordConfidence(hits int) float64 {
	conf := math.Min(keywordCap, keywordBase+keywordStep*float64(hits))
	return math.Round(conf*100) / 100
}

func copyHints(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
