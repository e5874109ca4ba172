// Package pipeline runs documents through OCR, extraction, classification, normalization,
// validation, triage and deduplication.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/ledger-triage/internal/domain/classify"
	"github.com/FACorreiaa/ledger-triage/internal/domain/dedupe"
	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/internal/domain/ocr"
	"github.com/FACorreiaa/ledger-triage/internal/domain/triage"
	"github.com/FACorreiaa/ledger-triage/internal/domain/validate"
)

const tracerName = "github.com/FACorreiaa/ledger-triage/internal/domain/pipeline"

// CategorySuffix names the per-image file holding an explicit category.
const CategorySuffix = ".category"

// Document is one source image. Index orders documents within a run.
type Document struct {
	Index    int
	Path     string
	Override string // explicit category for the whole run; a .category file wins over it
}

// Outcome is what happened to one document.
type Outcome struct {
	Document       Document
	Fields         extract.Fields
	Classification classify.Result
	Violations     []validate.Violation
	Row            normalize.Row
	Duplicate      bool
	Err            error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Config controls pipeline behaviour.
type Config struct {
	Triage        bool
	Workers       int
	RatePerSecond float64
}

// Stages bundles the engines a pipeline runs. All are read-only during a run except Dedupe.
type Stages struct {
	OCR        ocr.Backend
	Extractor  *extract.Engine
	Classifier *classify.Classifier
	Builder    *normalize.Builder
	Validator  *validate.Validator
	Triage     *triage.Engine
	Dedupe     *dedupe.Deduplicator
}

// Pipeline wires the stages together.
type Pipeline struct {
	cfg     Config
	stages  Stages
	limiter *rate.Limiter
	metrics *Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

func New(cfg Config, stages Stages, metrics *Metrics, logger *slog.Logger) (*Pipeline, error) {
	if stages.OCR == nil || stages.Extractor == nil || stages.Classifier == nil ||
		stages.Builder == nil || stages.Validator == nil {
		return nil, errors.New("pipeline: ocr, extractor, classifier, builder and validator are required")
	}
	if stages.Triage == nil {
		stages.Triage = triage.New(triage.DefaultThreshold)
	}
	if stages.Dedupe == nil {
		stages.Dedupe = dedupe.New()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &Pipeline{
		cfg:     cfg,
		stages:  stages,
		limiter: limiter,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}, nil
}

func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Process runs every stage for one document, deduplication included.
func (p *Pipeline) Process(ctx context.Context, doc Document) Outcome {
	out := p.analyze(ctx, doc)
	if out.OK() {
		out.Duplicate = p.stages.Dedupe.IsDuplicate(out.Row)
	}
	return out
}

// analyze runs OCR through triage. It touches no shared mutable state.
func (p *Pipeline) analyze(ctx context.Context, doc Document) Outcome {
	ctx, span := p.tracer.Start(ctx, "pipeline.document",
		trace.WithAttributes(
			attribute.String("source", doc.Path),
			attribute.Int("index", doc.Index),
		),
	)
	defer span.End()

	out := Outcome{Document: doc}

	res, err := p.recognize(ctx, doc)
	if err != nil {
		p.metrics.OCRFailures.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "ocr failed")
		p.logger.Warn("ocr failed, skipping document",
			slog.String("source", doc.Path),
			slog.Any("error", err),
		)
		out.Err = err
		return out
	}

	p.stage(ctx, "extract", func() {
		out.Fields = p.stages.Extractor.Extract(*res)
	})
	p.metrics.DocumentsTotal.WithLabelValues(string(out.Fields.Kind)).Inc()

	override := categoryOverride(doc)
	p.stage(ctx, "classify", func() {
		out.Classification = p.stages.Classifier.Classify(out.Fields, override)
	})

	p.stage(ctx, "normalize", func() {
		out.Row = p.stages.Builder.Build(out.Fields, doc.Path, out.Classification.Category, out.Classification.Hints)
	})

	p.stage(ctx, "validate", func() {
		out.Violations = p.stages.Validator.Validate(out.Row)
	})

	if p.cfg.Triage {
		p.stage(ctx, "triage", func() {
			out.Row = p.stages.Triage.Analyze(out.Row, out.Violations)
		})
	}

	span.SetAttributes(
		attribute.String("kind", string(out.Fields.Kind)),
		attribute.String("category", out.Row.Category()),
		attribute.Int("flags", len(out.Row.Flags())),
	)
	return out
}

func (p *Pipeline) recognize(ctx context.Context, doc Document) (*ocr.Result, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("ocr throttle: %w", err)
		}
	}

	var (
		res *ocr.Result
		err error
	)
	p.stage(ctx, "ocr", func() {
		res, err = p.stages.OCR.Extract(ctx, ocr.Image{Path: doc.Path})
	})
	if err != nil {
		return nil, fmt.Errorf("ocr %s: %w", doc.Path, err)
	}
	if res == nil {
		return nil, fmt.Errorf("ocr %s: backend returned no result", doc.Path)
	}
	return res, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func()) {
	_, span := p.tracer.Start(ctx, "pipeline."+name)
	start := time.Now()
	fn()
	p.metrics.observeStage(name, time.Since(start))
	span.End()
}

// categoryOverride prefers a non-empty <image>.category file over the run-wide override.
func categoryOverride(doc Document) string {
	data, err := os.ReadFile(doc.Path + CategorySuffix)
	if err != nil {
		return doc.Override
	}
	if category := strings.TrimSpace(string(data)); category != "" {
		return category
	}
	return doc.Override
}
