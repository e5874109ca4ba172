// Package normalize projects extracted fields onto a category's fixed column schema.
package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/ocr"
)

// Cell is one schema column. Placeholder cells carry an explanation instead of a value.
type Cell struct {
	Value       string `json:"value"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Confidences are the four scores carried from extraction.
type Confidences struct {
	OCR    float64 `json:"ocr"`
	Date   float64 `json:"date"`
	Amount float64 `json:"amount"`
	Vendor float64 `json:"vendor"`
}

// Row is one normalized output record. A Row is never modified in place: every stage that adds
// information returns a new Row through one of the With methods.
type Row struct {
	id            uuid.UUID
	source        string
	category      string
	kind          extract.Kind
	createdAt     time.Time
	columns       []string
	cells         map[string]Cell
	core          map[string]extract.Field
	conf          Confidences
	lowConfTokens []ocr.Token
	flags         []string
	highlights    []string
}

func (r Row) ID() uuid.UUID        { return r.id }
func (r Row) Source() string       { return r.source }
func (r Row) Category() string     { return r.category }
func (r Row) Kind() extract.Kind   { return r.kind }
func (r Row) CreatedAt() time.Time { return r.createdAt }

func (r Row) Confidences() Confidences { return r.conf }

// Columns returns the schema columns in output order.
func (r Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Cell returns the cell for a schema column.
func (r Row) Cell(column string) (Cell, bool) {
	c, ok := r.cells[column]
	return c, ok
}

// Value returns the display text of a column: the value, or the placeholder explanation.
func (r Row) Value(column string) string {
	return r.cells[column].Value
}

// Values returns the display text of every column in schema order.
func (r Row) Values() []string {
	out := make([]string, len(r.columns))
	for i, col := range r.columns {
		out[i] = r.cells[col].Value
	}
	return out
}

// Field returns the extracted date, amount or vendor. Placeholders never appear here.
func (r Row) Field(name string) extract.Field {
	return r.core[name]
}

// HasValue reports whether a column holds a real value rather than a placeholder.
func (r Row) HasValue(column string) bool {
	c, ok := r.cells[column]
	return ok && !c.Placeholder && c.Value != ""
}

func (r Row) LowConfTokens() []ocr.Token {
	return append([]ocr.Token(nil), r.lowConfTokens...)
}

func (r Row) Flags() []string {
	return append([]string(nil), r.flags...)
}

func (r Row) Highlights() []string {
	return append([]string(nil), r.highlights...)
}

func (r Row) Flagged() bool {
	return len(r.flags) > 0
}

func (r Row) HasFlag(flag string) bool {
	return contains(r.flags, flag)
}

func (r Row) Highlighted(column string) bool {
	return contains(r.highlights, column)
}

// ColumnsFor lists the schema columns that carry a logical field, in schema order.
func (r Row) ColumnsFor(field string) []string {
	var out []string
	for _, col := range r.columns {
		if m, ok := columnFields[col]; ok && m.field == field && m.ownedBy(r.category) {
			out = append(out, col)
		}
	}
	return out
}

// WithTriage returns a copy with flags and highlights added. Existing entries are kept and
// duplicates are dropped, so annotations only ever grow.
func (r Row) WithTriage(flags, highlights []string) Row {
	out := r.clone()
	for _, f := range flags {
		if f != "" && !contains(out.flags, f) {
			out.flags = append(out.flags, f)
		}
	}
	for _, h := range highlights {
		if h != "" && !contains(out.highlights, h) {
			out.highlights = append(out.highlights, h)
		}
	}
	return out
}

// WithPlaceholders returns a copy whose placeholder cells are re-explained using the current flags.
func (r Row) WithPlaceholders() Row {
	out := r.clone()
	for col, cell := range out.cells {
		if !cell.Placeholder {
			continue
		}
		cell.Value = explain(out, col)
		out.cells[col] = cell
	}
	return out
}

func (r Row) clone() Row {
	out := r
	out.columns = append([]string(nil), r.columns...)
	out.cells = make(map[string]Cell, len(r.cells))
	for k, v := range r.cells {
		out.cells[k] = v
	}
	out.core = make(map[string]extract.Field, len(r.core))
	for k, v := range r.core {
		out.core[k] = v
	}
	out.lowConfTokens = append([]ocr.Token(nil), r.lowConfTokens...)
	out.flags = append([]string(nil), r.flags...)
	out.highlights = append([]string(nil), r.highlights...)
	return out
}

type rowJSON struct {
	ID            uuid.UUID                `json:"id"`
	Source        string                   `json:"source"`
	Category      string                   `json:"category"`
	Kind          extract.Kind             `json:"kind"`
	CreatedAt     time.Time                `json:"created_at"`
	Columns       []string                 `json:"columns"`
	Cells         map[string]Cell          `json:"cells"`
	Fields        map[string]extract.Field `json:"fields"`
	Confidence    Confidences              `json:"confidence"`
	LowConfTokens []ocr.Token              `json:"low_conf_tokens"`
	Flags         []string                 `json:"flags"`
	Highlights    []string                 `json:"highlights"`
}

func (r Row) MarshalJSON() ([]byte, error) {
	flags := r.flags
	if flags == nil {
		flags = []string{}
	}
	highlights := r.highlights
	if highlights == nil {
		highlights = []string{}
	}
	tokens := r.lowConfTokens
	if tokens == nil {
		tokens = []ocr.Token{}
	}
	return json.Marshal(rowJSON{
		ID:            r.id,
		Source:        r.source,
		Category:      r.category,
		Kind:          r.kind,
		CreatedAt:     r.createdAt,
		Columns:       r.columns,
		Cells:         r.cells,
		Fields:        r.core,
		Confidence:    r.conf,
		LowConfTokens: tokens,
		Flags:         flags,
		Highlights:    highlights,
	})
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var raw rowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	if raw.Category == "" {
		return fmt.Errorf("decode row %s: missing category", raw.ID)
	}
	*r = Row{
		id:            raw.ID,
		source:        raw.Source,
		category:      raw.Category,
		kind:          raw.Kind,
		createdAt:     raw.CreatedAt,
		columns:       raw.Columns,
		cells:         raw.Cells,
		core:          raw.Fields,
		conf:          raw.Confidence,
		lowConfTokens: raw.LowConfTokens,
		flags:         raw.Flags,
		highlights:    raw.Highlights,
	}
	if r.cells == nil {
		r.cells = map[string]Cell{}
	}
	if r.core == nil {
		r.core = map[string]extract.Field{}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
