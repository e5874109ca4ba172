package normalize

import (
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/ocr"
)

// Unclassified is the category used when a category has no schema.
const Unclassified = "Unclassified"

var fallbackColumns = []string{"Date", "Vendor", "Description", "Amount"}

// Builder creates rows from extracted fields. It holds only read-only configuration.
type Builder struct {
	schemas map[string][]string
	now     func() time.Time
	newID   func() uuid.UUID
}

type BuilderOption func(*Builder)

// WithClock sets the creation timestamp source.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithIDs sets the row identifier source.
func WithIDs(newID func() uuid.UUID) BuilderOption {
	return func(b *Builder) { b.newID = newID }
}

func NewBuilder(schemas map[string][]string, opts ...BuilderOption) *Builder {
	copied := make(map[string][]string, len(schemas))
	for category, cols := range schemas {
		copied[category] = append([]string(nil), cols...)
	}

	b := &Builder{
		schemas: copied,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Schema resolves a category to its columns. Categories without a schema resolve to Unclassified.
func (b *Builder) Schema(category string) (string, []string) {
	if cols, ok := b.schemas[category]; ok && len(cols) > 0 {
		return category, append([]string(nil), cols...)
	}
	if cols, ok := b.schemas[Unclassified]; ok && len(cols) > 0 {
		return Unclassified, append([]string(nil), cols...)
	}
	return Unclassified, append([]string(nil), fallbackColumns...)
}

// Build projects fields and hints onto the category schema. Columns with no value get a placeholder.
func (b *Builder) Build(fields extract.Fields, source, category string, hints map[string]string) Row {
	category, columns := b.Schema(category)

	r := Row{
		id:        b.newID(),
		source:    source,
		category:  category,
		kind:      fields.Kind,
		createdAt: b.now(),
		columns:   columns,
		cells:     make(map[string]Cell, len(columns)),
		core: map[string]extract.Field{
			extract.FieldDate:   fields.Date,
			extract.FieldAmount: fields.Amount,
			extract.FieldVendor: fields.Vendor,
		},
		conf: Confidences{
			OCR:    fields.OCRConfidence,
			Date:   fields.Date.Confidence,
			Amount: fields.Amount.Confidence,
			Vendor: fields.Vendor.Confidence,
		},
		lowConfTokens: append([]ocr.Token(nil), fields.LowConfTokens...),
	}

	for _, col := range columns {
		if v := columnValue(fields, hints, category, col); v != "" {
			r.cells[col] = Cell{Value: v}
			continue
		}
		r.cells[col] = Cell{Placeholder: true}
	}

	return r.WithPlaceholders()
}

func columnValue(fields extract.Fields, hints map[string]string, category, column string) string {
	m, ok := columnFields[column]
	if !ok || !m.ownedBy(category) {
		return ""
	}

	switch m.field {
	case extract.FieldDate:
		return fields.Date.Value
	case extract.FieldAmount:
		return fields.Amount.Value
	case extract.FieldVendor:
		return fields.Vendor.Value
	case extract.FieldDescription:
		if v := fields.Value(extract.FieldDescription); v != "" {
			return v
		}
		if v := fields.Value(extract.FieldMemo); v != "" {
			return v
		}
		return kindLabel(fields.Kind)
	}

	if v := fields.Value(m.field); v != "" {
		return v
	}
	return hints[m.field]
}
