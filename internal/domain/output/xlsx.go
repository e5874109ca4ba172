package output

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
	"github.com/FACorreiaa/ledger-triage/pkg/storage"
)

const (
	defaultHighlightColor = "#FFF59D"
	commentAuthor         = "ledger"
	maxSheetName          = 31
)

// XLSXWriter collects one sheet per category into a single workbook, saved on Flush.
type XLSXWriter struct {
	store  storage.Storage
	color  string
	file   *excelize.File
	sheets int
}

func NewXLSXWriter(store storage.Storage, highlightColor string) *XLSXWriter {
	if highlightColor == "" {
		highlightColor = defaultHighlightColor
	}
	return &XLSXWriter{store: store, color: highlightColor}
}

func (w *XLSXWriter) Write(ctx context.Context, b Batch) error {
	if len(b.Rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.file == nil {
		w.file = excelize.NewFile()
	}
	f := w.file

	sheet := sheetName(b.Category)
	if w.sheets == 0 {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("xlsx sheet %s: %w", sheet, err)
		}
	} else if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx sheet %s: %w", sheet, err)
	}
	w.sheets++

	for i, h := range b.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}

	highlight, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{w.color}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("xlsx highlight style: %w", err)
	}

	for r, row := range b.Rows {
		for c, col := range b.Columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, row.Value(col)); err != nil {
				return fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
			if !b.ApplyHighlights || !row.Highlighted(col) {
				continue
			}
			if err := f.SetCellStyle(sheet, cell, cell, highlight); err != nil {
				return fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
			if !row.Flagged() {
				continue
			}
			if err := f.AddComment(sheet, excelize.Comment{
				Cell:   cell,
				Author: commentAuthor,
				Text:   reviewComment(row),
			}); err != nil {
				return fmt.Errorf("xlsx comment %s: %w", cell, err)
			}
		}
	}

	if len(b.Columns) > 0 {
		last, _ := excelize.ColumnNumberToName(len(b.Columns))
		_ = f.SetColWidth(sheet, "A", last, 22)
	}
	return nil
}

// Flush saves the workbook. Nothing is written when no batch had rows.
func (w *XLSXWriter) Flush(ctx context.Context) error {
	if w.file == nil {
		return nil
	}
	defer func() {
		_ = w.file.Close()
		w.file = nil
		w.sheets = 0
	}()

	out, path, err := w.store.Create(ctx, WorkbookName)
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	defer out.Close()

	if err := w.file.Write(out); err != nil {
		return fmt.Errorf("xlsx write %s: %w", path, err)
	}
	return out.Close()
}

func reviewComment(row normalize.Row) string {
	text := fmt.Sprintf("Reason: %s\nConfidence: %.2f", strings.Join(row.Flags(), ", "), row.Confidences().OCR)
	if len(row.LowConfTokens()) > 0 {
		text += "\nLow confidence tokens detected"
	}
	return text
}

// sheetName trims a category to the characters and length a worksheet name allows.
func sheetName(category string) string {
	name := strings.NewReplacer(
		"[", "(", "]", ")", ":", "-", "*", "-", "?", "", "/", "-", "\\", "-",
	).Replace(category)
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	if name == "" {
		name = normalize.Unclassified
	}
	return name
}
