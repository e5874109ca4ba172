package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
)

// RunResult collects a batch. Outcomes are in the order the documents were given; Rows holds the
// kept rows grouped by category, with Categories listing the groups in first-seen index order.
type RunResult struct {
	Outcomes   []Outcome
	Categories []string
	Rows       map[string][]normalize.Row
	Failed     int
	Duplicates int
}

// TotalRows counts the kept rows.
func (r RunResult) TotalRows() int {
	n := 0
	for _, rows := range r.Rows {
		n += len(rows)
	}
	return n
}

// Flagged reports whether any kept row carries a flag.
func (r RunResult) Flagged() bool {
	for _, rows := range r.Rows {
		for _, row := range rows {
			if row.Flagged() {
				return true
			}
		}
	}
	return false
}

// AllRows returns the kept rows, grouped by category in first-seen order.
func (r RunResult) AllRows() []normalize.Row {
	out := make([]normalize.Row, 0, r.TotalRows())
	for _, category := range r.Categories {
		out = append(out, r.Rows[category]...)
	}
	return out
}

// Run analyzes documents on a bounded worker pool, then deduplicates in ascending index order so
// the lowest-index copy of a duplicate is always the one kept. The error is non-nil only when ctx
// is cancelled.
func (p *Pipeline) Run(ctx context.Context, docs []Document) (RunResult, error) {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]Outcome, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.analyze(gctx, doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RunResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return RunResult{}, err
	}

	return p.arbitrate(outcomes), nil
}

// arbitrate is the single writer of the deduplicator state. It visits outcomes by ascending
// Document.Index, whatever order the slice holds them in.
func (p *Pipeline) arbitrate(outcomes []Outcome) RunResult {
	res := RunResult{
		Outcomes: outcomes,
		Rows:     make(map[string][]normalize.Row),
	}

	order := make([]int, len(outcomes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return outcomes[order[a]].Document.Index < outcomes[order[b]].Document.Index
	})

	for _, i := range order {
		out := &outcomes[i]
		if !out.OK() {
			res.Failed++
			continue
		}

		if p.stages.Dedupe.IsDuplicate(out.Row) {
			out.Duplicate = true
			res.Duplicates++
			p.metrics.DuplicatesTotal.Inc()
			p.logger.Info("skipping duplicate",
				slog.String("source", out.Document.Path),
				slog.String("category", out.Row.Category()),
			)
			continue
		}

		category := out.Row.Category()
		if _, seen := res.Rows[category]; !seen {
			res.Categories = append(res.Categories, category)
		}
		res.Rows[category] = append(res.Rows[category], out.Row)

		p.metrics.RowsTotal.WithLabelValues(category).Inc()
		for _, flag := range out.Row.Flags() {
			p.metrics.FlagsTotal.WithLabelValues(flag).Inc()
		}

		p.logger.Info("processed document",
			slog.String("source", out.Document.Path),
			slog.String("kind", string(out.Fields.Kind)),
			slog.String("category", category),
			slog.Float64("category_confidence", out.Classification.Confidence),
			slog.Int("flags", len(out.Row.Flags())),
		)
	}

	return res
}
