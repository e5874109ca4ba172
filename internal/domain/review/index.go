package review

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
	"github.com/FACorreiaa/ledger-triage/internal/domain/normalize"
)

const defaultLimit = 20

// indexDocument is the searchable projection of a staged row.
type indexDocument struct {
	Source     string   `json:"source"`
	Category   string   `json:"category"`
	Vendor     string   `json:"vendor"`
	Text       string   `json:"text"`
	Flags      []string `json:"flags"`
	Highlights []string `json:"highlights"`
}

// Hit is one search result.
type Hit struct {
	Row   normalize.Row
	Score float64
}

// Index is an in-memory full-text index over staged rows.
type Index struct {
	index bleve.Index
	rows  map[string]normalize.Row
	mu    sync.RWMutex
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Index{index: idx, rows: map[string]normalize.Row{}}, nil
}

// buildIndexMapping analyses free text with the simple analyzer and keeps category and flag
// codes as exact keywords.
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("source", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("flags", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("highlights", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("vendor", textFieldMapping)
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	indexMapping.DefaultField = "text"
	return indexMapping
}

// Add indexes rows in one batch. Re-adding a row replaces it.
func (i *Index) Add(rows ...normalize.Row) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.index.NewBatch()
	for _, row := range rows {
		id := row.ID().String()
		doc := indexDocument{
			Source:     row.Source(),
			Category:   row.Category(),
			Vendor:     row.Field(extract.FieldVendor).Value,
			Flags:      row.Flags(),
			Highlights: row.Highlights(),
		}
		for _, col := range row.Columns() {
			if row.HasValue(col) {
				doc.Text += row.Value(col) + " "
			}
		}
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("failed to index row %s: %w", id, err)
		}
		i.rows[id] = row
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// Search runs a typo-tolerant match over row values and vendors.
func (i *Index) Search(text string, limit int) ([]Hit, error) {
	vendor := bleve.NewMatchQuery(text)
	vendor.SetField("vendor")
	vendor.SetFuzziness(1)
	values := bleve.NewMatchQuery(text)
	values.SetField("text")
	values.SetFuzziness(1)
	return i.search(bleve.NewDisjunctionQuery(vendor, values), limit)
}

// ByFlag finds rows carrying the exact flag code, e.g. "parse_error:date".
func (i *Index) ByFlag(flag string, limit int) ([]Hit, error) {
	q := bleve.NewTermQuery(flag)
	q.SetField("flags")
	return i.search(q, limit)
}

// ByCategory finds rows assigned to category.
func (i *Index) ByCategory(category string, limit int) ([]Hit, error) {
	q := bleve.NewTermQuery(category)
	q.SetField("category")
	return i.search(q, limit)
}

// Len returns the number of indexed rows.
func (i *Index) Len() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}

func (i *Index) search(q query.Query, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = defaultLimit
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.SortBy([]string{"-_score", "_id"})

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		row, ok := i.rows[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Row: row, Score: h.Score})
	}
	return hits, nil
}
