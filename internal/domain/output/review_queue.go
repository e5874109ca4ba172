package output

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/pkg/storage"
)

// ReviewItem is one line of review_queue.csv.
type ReviewItem struct {
	ID            string  `csv:"id"`
	Source        string  `csv:"source"`
	Category      string  `csv:"category"`
	Vendor        string  `csv:"vendor"`
	Date          string  `csv:"date"`
	Amount        string  `csv:"amount"`
	Flags         string  `csv:"flags"`
	Highlights    string  `csv:"highlights"`
	OCRConfidence float64 `csv:"ocr_confidence"`
}

// ReviewQueue lists the flagged rows in input order.
func ReviewQueue(rows []normalize.Row) []ReviewItem {
	var items []ReviewItem
	for _, row := range rows {
		if !row.Flagged() {
			continue
		}
		items = append(items, ReviewItem{
			ID:            row.ID().String(),
			Source:        row.Source(),
			Category:      row.Category(),
			Vendor:        row.Field(extract.FieldVendor).Value,
			Date:          row.Field(extract.FieldDate).Value,
			Amount:        row.Field(extract.FieldAmount).Value,
			Flags:         strings.Join(row.Flags(), "; "),
			Highlights:    strings.Join(row.Highlights(), "; "),
			OCRConfidence: row.Confidences().OCR,
		})
	}
	return items
}

// WriteReviewQueue writes review_queue.csv when any row is flagged and returns its path.
func WriteReviewQueue(ctx context.Context, store storage.Storage, rows []normalize.Row) (string, error) {
	items := ReviewQueue(rows)
	if len(items) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := gocsv.Marshal(items, &buf); err != nil {
		return "", fmt.Errorf("failed to encode review queue: %w", err)
	}
	path, err := store.WriteFile(ctx, ReviewQueueName, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("review queue: %w", err)
	}
	return path, nil
}
