package output

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DB is the part of a pgx pool the postgres writer needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const insertRowQuery = `
	INSERT INTO ledger_rows (
		id, source, category, kind, cells, flags, highlights, ocr_confidence, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING
`

// PostgresWriter inserts each batch into ledger_rows inside one transaction.
type PostgresWriter struct {
	db DB
}

func NewPostgresWriter(db DB) *PostgresWriter {
	return &PostgresWriter{db: db}
}

func (w *PostgresWriter) Write(ctx context.Context, b Batch) error {
	if len(b.Rows) == 0 {
		return nil
	}

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range b.Rows {
		cells := make(map[string]string, len(b.Columns))
		for _, col := range b.Columns {
			cells[col] = row.Value(col)
		}
		data, err := json.Marshal(cells)
		if err != nil {
			return fmt.Errorf("failed to encode cells: %w", err)
		}

		if _, err := tx.Exec(ctx, insertRowQuery,
			row.ID(),
			row.Source(),
			row.Category(),
			string(row.Kind()),
			data,
			orEmpty(row.Flags()),
			orEmpty(row.Highlights()),
			row.Confidences().OCR,
			row.CreatedAt(),
		); err != nil {
			return fmt.Errorf("failed to insert row %s: %w", row.ID(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s rows: %w", b.Category, err)
	}
	return nil
}

// orEmpty keeps text[] columns non-null.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
