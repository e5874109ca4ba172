// Package review summarises a run for the people working the review queue: the markdown run
// report, vendor-map recommendations and a search index over staged rows.
package review

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/pkg/money"
	"github.com/FACorreiaa/ledger-triage/pkg/storage"
)

const (
	ReportName    = "report.md"
	reportTitle   = "# Ledger Triage Run Report"
	topReasons    = 5
	topVendors    = 10
	vendorsConfig = "config/vendors.yaml"
)

// Count is a name with an occurrence count.
type Count struct {
	Name string
	N    int
}

// CategoryStats summarises one category of kept rows.
type CategoryStats struct {
	Category string
	Rows     int
	Flagged  int
	Total    string // display amount, e.g. "$1,234.56"
	Fields   []Count
	Reasons  []Count
}

// RunStats carries pipeline counts that never become rows.
type RunStats struct {
	Failed     int
	Duplicates int
	Currency   string
}

// Summary is the content of report.md.
type Summary struct {
	TotalRows  int
	Flagged    int
	Failed     int
	Duplicates int
	Categories []CategoryStats
	Vendors    []VendorRecommendation
}

// FlagRate is the flagged share of kept rows as a percentage.
func (s Summary) FlagRate() float64 {
	if s.TotalRows == 0 {
		return 0
	}
	return float64(s.Flagged) / float64(s.TotalRows) * 100
}

// Summarize builds the report content. categories fixes the section order; categories with no
// rows are left out.
func Summarize(categories []string, rows map[string][]normalize.Row, stats RunStats) Summary {
	currency := stats.Currency
	if currency == "" {
		currency = money.USD
	}

	s := Summary{Failed: stats.Failed, Duplicates: stats.Duplicates}
	var all []normalize.Row

	for _, category := range categories {
		catRows := rows[category]
		if len(catRows) == 0 {
			continue
		}
		all = append(all, catRows...)

		cs := CategoryStats{Category: category, Rows: len(catRows)}
		fields := map[string]int{}
		reasons := map[string]int{}
		var amounts []decimal.Decimal

		for _, row := range catRows {
			if row.Flagged() {
				cs.Flagged++
			}
			for _, flag := range row.Flags() {
				reasons[flag]++
			}
			for _, col := range row.Highlights() {
				fields[col]++
			}
			if d, err := money.Parse(row.Field(extract.FieldAmount).Value); err == nil {
				amounts = append(amounts, d)
			}
		}

		cs.Fields = rank(fields, 0)
		cs.Reasons = rank(reasons, topReasons)
		cs.Total = money.NewFromDecimal(money.Sum(amounts...), currency).Display()

		s.TotalRows += cs.Rows
		s.Flagged += cs.Flagged
		s.Categories = append(s.Categories, cs)
	}

	s.Vendors = RecommendVendors(all, topVendors)
	return s
}

// Markdown renders the summary as report.md.
func (s Summary) Markdown() string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(reportTitle)
	line("")
	line("## Summary")
	line("")
	line("- Total rows processed: %d", s.TotalRows)
	line("- Rows flagged for review: %d", s.Flagged)
	if s.TotalRows > 0 {
		line("- Flag rate: %.1f%%", s.FlagRate())
	} else {
		line("- Flag rate: 0%%")
	}
	line("- Duplicates skipped: %d", s.Duplicates)
	line("- Documents that failed OCR: %d", s.Failed)
	line("")
	line("## Triage Metrics by Category")
	line("")

	for _, cs := range s.Categories {
		line("### %s", cs.Category)
		line("- Total rows: %d", cs.Rows)
		line("- Flagged rows: %d", cs.Flagged)
		line("- Total amount: %s", cs.Total)
		line("")
		if len(cs.Fields) > 0 {
			line("**Flagged fields:**")
			for _, c := range cs.Fields {
				line("- %s: %d cells", c.Name, c.N)
			}
		}
		if len(cs.Reasons) > 0 {
			line("**Top reasons:**")
			for _, c := range cs.Reasons {
				line("- %s: %d", c.Name, c.N)
			}
		}
		line("")
	}

	line("## Vendor Map Recommendations")
	line("")
	line("Consider adding these vendors to `%s` to reduce flags:", vendorsConfig)
	line("")
	if len(s.Vendors) == 0 {
		line("- No vendor recommendations (all mapped or low frequency)")
	}
	for _, v := range s.Vendors {
		if len(v.Variants) > 1 {
			line("- `%s` (%d flagged rows; also seen as %s)", v.Vendor, v.Flagged, quoteAll(v.Variants[1:]))
			continue
		}
		line("- `%s` (%d flagged rows)", v.Vendor, v.Flagged)
	}

	line("")
	line("## Notes")
	line("")
	line("- Review flagged cells in output files")
	line("- Update vendor map to improve classification accuracy")
	line("- Check OCR quality for low-confidence tokens")
	return b.String()
}

// WriteReport renders s into report.md and returns its path.
func WriteReport(ctx context.Context, store storage.Storage, s Summary) (string, error) {
	path, err := store.WriteFile(ctx, ReportName, []byte(s.Markdown()))
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	return path, nil
}

// rank sorts counts descending, ties by name, keeping at most limit entries when limit > 0.
func rank(counts map[string]int, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}
