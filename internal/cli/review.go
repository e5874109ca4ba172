package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/internal/domain/output"
	"github.com/FACorreiaa/ledger-triage/internal/domain/review"
)

type reviewOptions struct {
	query    string
	flag     string
	category string
	limit    int
}

func newReviewCmd(g *globalOptions) *cobra.Command {
	o := &reviewOptions{}
	cmd := &cobra.Command{
		Use:   "review <staged.jsonl>",
		Short: "Search staged rows",
		Long: `Search the rows staged by parse or run.

Without a filter every flagged row is listed.

Examples:
  # Everything that needs review
  ledger review out/staged.jsonl

  # Typo-tolerant search over vendors and values
  ledger review out/staged.jsonl --query "ofice depot"

  # Rows missing a date
  ledger review out/staged.jsonl --flag parse_error:date`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(g, o, args[0])
		},
	}
	cmd.Flags().StringVarP(&o.query, "query", "q", "", "free text search over vendors and values")
	cmd.Flags().StringVar(&o.flag, "flag", "", "only rows carrying this exact flag")
	cmd.Flags().StringVar(&o.category, "category", "", "only rows filed under this category")
	cmd.Flags().IntVar(&o.limit, "limit", 20, "maximum rows to show")
	return cmd
}

func runReview(g *globalOptions, o *reviewOptions, path string) error {
	rows, err := output.ReadStagedFile(path)
	if err != nil {
		return err
	}

	if o.query == "" && o.flag == "" && o.category == "" {
		var flagged []normalize.Row
		for _, row := range rows {
			if row.Flagged() {
				flagged = append(flagged, row)
			}
		}
		if o.limit > 0 && len(flagged) > o.limit {
			flagged = flagged[:o.limit]
		}
		return printRows(g.stdout, flagged)
	}

	idx, err := review.NewIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	if err := idx.Add(rows...); err != nil {
		return err
	}

	var hits []review.Hit
	switch {
	case o.query != "":
		hits, err = idx.Search(o.query, o.limit)
	case o.flag != "":
		hits, err = idx.ByFlag(o.flag, o.limit)
	default:
		hits, err = idx.ByCategory(o.category, o.limit)
	}
	if err != nil {
		return err
	}

	matched := make([]normalize.Row, 0, len(hits))
	for _, hit := range hits {
		if o.flag != "" && !hit.Row.HasFlag(o.flag) {
			continue
		}
		if o.category != "" && hit.Row.Category() != o.category {
			continue
		}
		matched = append(matched, hit.Row)
	}
	return printRows(g.stdout, matched)
}

func printRows(w io.Writer, rows []normalize.Row) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "no matching rows")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tCATEGORY\tDATE\tVENDOR\tAMOUNT\tFLAGS")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Source(),
			row.Category(),
			orDash(row.Field(extract.FieldDate).Value),
			orDash(row.Field(extract.FieldVendor).Value),
			orDash(row.Field(extract.FieldAmount).Value),
			orDash(strings.Join(row.Flags(), ", ")),
		)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
