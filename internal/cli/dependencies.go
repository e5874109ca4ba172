package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/ledger-triage/internal/domain/classify"
	"github.com/FACorreiaa/ledger-triage/internal/domain/dedupe"
	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/internal/domain/ocr"
	"github.com/FACorreiaa/ledger-triage/internal/domain/output"
	"github.com/FACorreiaa/ledger-triage/internal/domain/pipeline"
	"github.com/FACorreiaa/ledger-triage/internal/domain/triage"
	"github.com/FACorreiaa/ledger-triage/internal/domain/validate"
	"github.com/FACorreiaa/ledger-triage/pkg/config"
	"github.com/FACorreiaa/ledger-triage/pkg/db"
	"github.com/FACorreiaa/ledger-triage/pkg/storage"
)

// RunOptions are the per-invocation switches that do not live in the config files.
type RunOptions struct {
	OutputDir string
	Triage    bool
	DryRun    bool
}

// Dependencies holds everything a run needs
type Dependencies struct {
	Config  *config.Config
	Options RunOptions
	DB      *db.DB
	Logger  *slog.Logger

	// Engines
	OCR        ocr.Backend
	Extractor  *extract.Engine
	Classifier *classify.Classifier
	Builder    *normalize.Builder
	Validator  *validate.Validator
	Triage     *triage.Engine
	Dedupe     *dedupe.Deduplicator

	Metrics     *pipeline.Metrics
	Pipeline    *pipeline.Pipeline
	FileStorage storage.Storage
}

// InitDependencies initializes all run dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, opts RunOptions, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Options: opts,
		Logger:  logger,
	}

	if err := deps.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	if err := deps.initDatabase(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initEngines(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init engines: %w", err)
	}

	if err := deps.initPipeline(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init pipeline: %w", err)
	}

	logger.Debug("all dependencies initialized successfully")

	return deps, nil
}

func (d *Dependencies) initStorage() error {
	store, err := storage.New(&storage.Config{OutputDir: d.Options.OutputDir})
	if err != nil {
		return err
	}
	d.FileStorage = store
	return nil
}

// initDatabase connects and migrates only when rows are going to postgres.
func (d *Dependencies) initDatabase(ctx context.Context) error {
	if d.Config.Output.Target != output.TargetPostgres || d.Options.DryRun {
		return nil
	}

	database, err := db.New(ctx, db.Config{
		DSN:             d.Config.Database.DSN,
		MaxConns:        d.Config.Database.MaxConns,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
		DialTimeout:     10 * time.Second,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (d *Dependencies) initEngines() error {
	backend, err := ocr.NewBackend(d.Config.OCR.Engine, ocr.Options{Language: d.Config.OCR.Language})
	if err != nil {
		return err
	}
	d.OCR = backend

	d.Extractor = extract.NewEngine(extract.Config{
		DateFormats:     d.Config.DateFormats,
		CurrencySymbols: d.Config.CurrencySymbols,
	})

	rules := make([]classify.VendorRule, 0, len(d.Config.VendorMap))
	for _, entry := range d.Config.VendorMap {
		rules = append(rules, classify.VendorRule{
			Match:      entry.Match,
			MatchRegex: entry.MatchRegex,
			Category:   entry.Category,
			Hints:      entry.Hints,
		})
	}
	d.Classifier, err = classify.New(classify.Config{Vendors: rules})
	if err != nil {
		return err
	}

	d.Builder = normalize.NewBuilder(d.Config.CategorySchemas)
	d.Validator = validate.New(d.Config.StrictLevel)
	d.Triage = triage.New(d.Config.Triage.OCRConfThreshold)
	d.Dedupe = dedupe.New()

	d.Logger.Debug("engines initialized",
		slog.String("ocr_engine", d.Config.OCR.Engine),
		slog.Int("vendor_rules", len(rules)),
		slog.Int("categories", len(d.Config.CategorySchemas)),
		slog.String("strict_level", d.Config.StrictLevel),
	)
	return nil
}

func (d *Dependencies) initPipeline() error {
	d.Metrics = pipeline.NewMetrics()

	p, err := pipeline.New(pipeline.Config{
		Triage:        d.Options.Triage,
		Workers:       d.Config.Pipeline.Workers,
		RatePerSecond: d.Config.OCR.RatePerSecond,
	}, pipeline.Stages{
		OCR:        d.OCR,
		Extractor:  d.Extractor,
		Classifier: d.Classifier,
		Builder:    d.Builder,
		Validator:  d.Validator,
		Triage:     d.Triage,
		Dedupe:     d.Dedupe,
	}, d.Metrics, d.Logger)
	if err != nil {
		return err
	}
	d.Pipeline = p
	return nil
}

// NewWriter builds the configured output writer over store.
func (d *Dependencies) NewWriter(store storage.Storage) (output.Writer, error) {
	var database output.DB
	if d.DB != nil {
		database = d.DB.Pool
	}
	return output.New(output.Config{
		Target:         d.Config.Output.Target,
		HighlightColor: d.Config.Output.HighlightColor,
		CSVAnnotate:    d.Config.Output.CSVAnnotate,
	}, store, database)
}

// Cleanup releases the database pool.
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
		d.DB = nil
	}
}
