package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/pkg/storage"
)

const maxStagedLine = 1024 * 1024

// JSONLWriter stages every row, one JSON object per line, in staged.jsonl.
type JSONLWriter struct {
	store storage.Storage
	buf   bytes.Buffer
	rows  int
}

func NewJSONLWriter(store storage.Storage) *JSONLWriter {
	return &JSONLWriter{store: store}
}

func (w *JSONLWriter) Write(ctx context.Context, b Batch) error {
	enc := json.NewEncoder(&w.buf)
	for _, row := range b.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row %s: %w", row.ID(), err)
		}
		w.rows++
	}
	return nil
}

func (w *JSONLWriter) Flush(ctx context.Context) error {
	if w.rows == 0 {
		return nil
	}
	if _, err := w.store.WriteFile(ctx, StagedName, w.buf.Bytes()); err != nil {
		return fmt.Errorf("jsonl: %w", err)
	}
	w.buf.Reset()
	w.rows = 0
	return nil
}

// ReadStaged decodes rows written by JSONLWriter. Blank lines are skipped.
func ReadStaged(r io.Reader) ([]normalize.Row, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxStagedLine)

	var rows []normalize.Row
	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		var row normalize.Row
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("staged line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read staged rows: %w", err)
	}
	return rows, nil
}

// ReadStagedFile opens path and decodes it with ReadStaged.
func ReadStagedFile(path string) ([]normalize.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	defer f.Close()
	return ReadStaged(f)
}
