package output

import (
	"context"
	"encoding/csv"
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/pkg/storage"
)

// CSVWriter writes one file per category. A _triage column is appended when any row is flagged.
type CSVWriter struct {
	store    storage.Storage
	annotate bool
}

func NewCSVWriter(store storage.Storage, annotate bool) *CSVWriter {
	return &CSVWriter{store: store, annotate: annotate}
}

func (w *CSVWriter) Write(ctx context.Context, b Batch) error {
	if len(b.Rows) == 0 {
		return nil
	}

	f, path, err := w.store.Create(ctx, FileName(b.Category, ".csv"))
	if err != nil {
		return fmt.Errorf("csv %s: %w", b.Category, err)
	}
	defer f.Close()

	header := append([]string(nil), b.Columns...)
	withTriage := anyFlagged(b.Rows)
	if withTriage {
		header = append(header, TriageColumn)
	}

	cw := gocsv.NewSafeCSVWriter(csv.NewWriter(f))
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}

	for _, row := range b.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		record := make([]string, 0, len(header))
		for _, col := range b.Columns {
			record = append(record, w.cell(row, col))
		}
		if withTriage {
			record = append(record, TriageNote(row))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", path, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}

func (w *CSVWriter) cell(row normalize.Row, col string) string {
	value := row.Value(col)
	if !w.annotate || !row.Highlighted(col) || !row.Flagged() {
		return value
	}
	return fmt.Sprintf("<<REVIEW: %s>> %s", row.Flags()[0], value)
}
