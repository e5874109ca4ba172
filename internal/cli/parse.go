package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/internal/domain/output"
	"github.com/FACorreiaa/ledger-triage/internal/domain/pipeline"
	"github.com/FACorreiaa/ledger-triage/internal/domain/review"
	"github.com/FACorreiaa/ledger-triage/pkg/config"
	"github.com/FACorreiaa/ledger-triage/pkg/money"
	"github.com/FACorreiaa/ledger-triage/pkg/storage"
)

const (
	previewCategories = 3
	previewRows       = 2
)

type parseOptions struct {
	out            string
	engine         string
	target         string
	triage         bool
	strictLevel    string
	dryRun         bool
	highlightColor string
	csvAnnotate    bool
	category       string
	metricsFile    string
	workers        int
}

func (o *parseOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.out, "out", "o", "out", "output directory")
	f.StringVar(&o.engine, "engine", "", "OCR engine (sidecar, tesseract)")
	f.StringVar(&o.target, "target", "", "output target (csv, xlsx, jsonl, postgres)")
	f.StringVar(&o.strictLevel, "strict-level", "", "validation strictness (low, medium, high)")
	f.BoolVar(&o.dryRun, "dry-run", false, "process images and preview rows without writing anything")
	f.StringVar(&o.highlightColor, "highlight-color", "", "fill colour for highlighted xlsx cells")
	f.BoolVar(&o.csvAnnotate, "csv-annotate", false, "prefix highlighted csv cells with the review reason")
	f.StringVar(&o.category, "category", "", "file every document under this category")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write run metrics in the node_exporter textfile format")
	f.IntVar(&o.workers, "workers", 0, "documents processed concurrently (default GOMAXPROCS)")
}

// apply lays the flags that were set over the loaded configuration.
func (o *parseOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("engine") {
		cfg.OCR.Engine = o.engine
	}
	if f.Changed("target") {
		cfg.Output.Target = o.target
	}
	if f.Changed("strict-level") {
		cfg.StrictLevel = o.strictLevel
	}
	if f.Changed("highlight-color") {
		cfg.Output.HighlightColor = o.highlightColor
	}
	if f.Changed("csv-annotate") {
		cfg.Output.CSVAnnotate = o.csvAnnotate
	}
	if f.Changed("workers") {
		cfg.Pipeline.Workers = o.workers
	}
}

func newParseCmd(g *globalOptions) *cobra.Command {
	o := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse <input>",
		Short: "Parse images and stage categorized rows",
		Long: `Parse an image file or a directory of images into categorized rows.

Each image is read through the OCR engine, its fields extracted, classified and
normalized into the category's columns. With --triage, rows that need a human look
are flagged and their cells highlighted.

Examples:
  # Parse a folder into one CSV per category
  ledger parse ./receipts --out ./out

  # Flag uncertain rows and highlight them in a workbook
  ledger parse ./receipts --triage --target xlsx

  # See what would be written
  ledger parse ./receipts --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, g, o, args[0])
		},
	}
	o.bind(cmd)
	cmd.Flags().BoolVar(&o.triage, "triage", false, "flag low-confidence and invalid rows for review")
	return cmd
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &parseOptions{triage: true}
	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Parse images with triage on",
		Long: `Run the whole pipeline end to end with triage enabled.

Examples:
  ledger run ./receipts --out ./out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, g, o, args[0])
		},
	}
	o.bind(cmd)
	return cmd
}

func runParse(cmd *cobra.Command, g *globalOptions, o *parseOptions, input string) error {
	ctx := cmd.Context()

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	o.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	log := g.newLogger(cfg)

	files, err := storage.Discover(ctx, input)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Warn("no images found", slog.String("input", input))
		return staged()
	}
	log.Info("found images", slog.Int("count", len(files)))

	deps, err := InitDependencies(ctx, cfg, RunOptions{
		OutputDir: o.out,
		Triage:    o.triage,
		DryRun:    o.dryRun,
	}, log)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	res, err := deps.Pipeline.Run(ctx, documents(files, o.category))
	if err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}

	if o.metricsFile != "" {
		if err := deps.Metrics.WriteTextfile(o.metricsFile); err != nil {
			return err
		}
	}

	if o.dryRun {
		preview(log, res)
		return nil
	}

	written, err := writeRun(ctx, deps, deps.FileStorage, res)
	if err != nil {
		return err
	}
	if written == 0 {
		log.Warn("no rows to write")
		return staged()
	}

	if res.Flagged() {
		return staged()
	}
	return nil
}

// documents orders discovered files into pipeline documents.
func documents(files []*storage.FileInfo, override string) []pipeline.Document {
	docs := make([]pipeline.Document, len(files))
	for i, f := range files {
		docs[i] = pipeline.Document{Index: i, Path: f.Path, Override: override}
	}
	return docs
}

// writeRun writes every category through the configured writer, then stages all rows,
// the review queue and the run report. It returns the number of rows written.
func writeRun(ctx context.Context, deps *Dependencies, store storage.Storage, res pipeline.RunResult) (int, error) {
	log := deps.Logger

	w, err := deps.NewWriter(store)
	if err != nil {
		return 0, err
	}

	target := deps.Config.Output.Target
	applyHighlights := deps.Options.Triage && target == output.TargetXLSX

	total := 0
	for _, category := range res.Categories {
		rows := res.Rows[category]
		if len(rows) == 0 {
			continue
		}
		if err := w.Write(ctx, output.Batch{
			Category:        category,
			Columns:         rows[0].Columns(),
			Rows:            rows,
			ApplyHighlights: applyHighlights,
		}); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", category, err)
		}
		total += len(rows)
		log.Info("wrote rows",
			slog.String("category", category),
			slog.Int("rows", len(rows)),
			slog.String("target", target),
		)
	}
	if err := output.Flush(ctx, w); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	all := res.AllRows()
	if target != output.TargetJSONL {
		staging := output.NewJSONLWriter(store)
		if err := staging.Write(ctx, output.Batch{Rows: all}); err != nil {
			return 0, err
		}
		if err := staging.Flush(ctx); err != nil {
			return 0, err
		}
	}

	queue, err := output.WriteReviewQueue(ctx, store, all)
	if err != nil {
		return 0, err
	}
	if queue != "" {
		log.Info("review queue written", slog.String("path", queue))
	}

	summary := review.Summarize(res.Categories, res.Rows, review.RunStats{
		Failed:     res.Failed,
		Duplicates: res.Duplicates,
		Currency:   money.USD,
	})
	path, err := review.WriteReport(ctx, store, summary)
	if err != nil {
		return 0, err
	}
	log.Info("report written",
		slog.String("path", path),
		slog.Int("rows", summary.TotalRows),
		slog.Int("flagged", summary.Flagged),
	)

	return total, nil
}

// preview logs what a dry run would have written.
func preview(log *slog.Logger, res pipeline.RunResult) {
	log.Info(fmt.Sprintf("DRY RUN: Would write %d rows across %d categories", res.TotalRows(), len(res.Categories)))

	for i, category := range res.Categories {
		if i == previewCategories {
			break
		}
		rows := res.Rows[category]
		for j, row := range rows {
			if j == previewRows {
				break
			}
			log.Info(fmt.Sprintf("  [%s] %s | %s | %s", category,
				displayValue(row, extract.FieldDate),
				displayValue(row, extract.FieldVendor),
				displayValue(row, extract.FieldAmount),
			))
		}
	}
}

// displayValue shows the first column carrying field, or the raw extracted value when the
// category has no such column.
func displayValue(row normalize.Row, field string) string {
	if cols := row.ColumnsFor(field); len(cols) > 0 {
		return row.Value(cols[0])
	}
	if v := row.Field(field).Value; v != "" {
		return v
	}
	return "-"
}
