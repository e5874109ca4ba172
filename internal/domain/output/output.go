// Package output writes staged rows to their destinations: per-category CSV files, an annotated
// workbook, a JSONL staging file or a postgres table.
package output

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/pkg/storage"
)

const (
	TargetCSV      = "csv"
	TargetXLSX     = "xlsx"
	TargetJSONL    = "jsonl"
	TargetPostgres = "postgres"
)

const (
	TriageColumn    = "_triage"
	WorkbookName    = "ledger.xlsx"
	StagedName      = "staged.jsonl"
	ReviewQueueName = "review_queue.csv"
)

var (
	ErrUnknownTarget = errors.New("unknown output target")
	ErrNoDatabase    = errors.New("postgres target needs a database")
)

// Batch is every kept row of one category.
type Batch struct {
	Category        string
	Columns         []string
	Rows            []normalize.Row
	ApplyHighlights bool
}

// Writer persists one batch.
type Writer interface {
	Write(ctx context.Context, b Batch) error
}

// Flusher is implemented by writers that hold batches until the run ends.
type Flusher interface {
	Flush(ctx context.Context) error
}

type Config struct {
	Target         string
	HighlightColor string
	CSVAnnotate    bool
}

// New selects the writer for cfg.Target. db is only used by the postgres target.
func New(cfg Config, store storage.Storage, db DB) (Writer, error) {
	switch cfg.Target {
	case TargetCSV, "":
		return NewCSVWriter(store, cfg.CSVAnnotate), nil
	case TargetXLSX:
		return NewXLSXWriter(store, cfg.HighlightColor), nil
	case TargetJSONL:
		return NewJSONLWriter(store), nil
	case TargetPostgres:
		if db == nil {
			return nil, ErrNoDatabase
		}
		return NewPostgresWriter(db), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, cfg.Target)
	}
}

// Flush completes w if it buffers output.
func Flush(ctx context.Context, w Writer) error {
	if f, ok := w.(Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}

// TriageNote renders a row's flags and highlights as "flag; flag; highlight:Col".
func TriageNote(row normalize.Row) string {
	parts := append([]string(nil), row.Flags()...)
	for _, col := range row.Highlights() {
		parts = append(parts, "highlight:"+col)
	}
	return strings.Join(parts, "; ")
}

// FileName is the per-category file name, spaces replaced by underscores.
func FileName(category, ext string) string {
	return storage.SanitizeFilename(strings.ReplaceAll(category, " ", "_") + ext)
}

func anyFlagged(rows []normalize.Row) bool {
	for _, row := range rows {
		if row.Flagged() {
			return true
		}
	}
	return false
}
