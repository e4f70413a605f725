package embedstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// lexicalIndex is an in-memory bleve index over record text, used when the
// vector pass finds nothing. Document IDs are zero-padded log positions so
// sorting by _id follows insertion order.
type lexicalIndex struct {
	index bleve.Index
}

func newLexicalIndex(records []Record) (*lexicalIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	l := &lexicalIndex{index: index}
	if len(records) == 0 {
		return l, nil
	}

	batch := index.NewBatch()
	for pos, r := range records {
		if err := batch.Index(docID(pos), lexicalDoc(r)); err != nil {
			index.Close()
			return nil, fmt.Errorf("index record %d: %w", pos, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("apply bleve batch: %w", err)
	}
	return l, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "text"

	docMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Store = false
	textField.Index = true
	docMapping.AddFieldMappingsAt("text", textField)

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Store = false
	sourceField.Index = true
	sourceField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("source", sourceField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func lexicalDoc(r Record) map[string]interface{} {
	return map[string]interface{}{
		"text":   r.Text,
		"source": r.Source,
	}
}

func docID(pos int) string {
	return fmt.Sprintf("%010d", pos)
}

func (l *lexicalIndex) add(pos int, r Record) error {
	return l.index.Index(docID(pos), lexicalDoc(r))
}

// search runs a term-overlap match over text, restricted to source when it
// is non-empty, and returns log positions with their bleve scores.
func (l *lexicalIndex) search(text string, limit int, source string) ([]hit, error) {
	if strings.TrimSpace(text) == "" || limit <= 0 {
		return nil, nil
	}

	textQuery := bleve.NewMatchQuery(text)
	textQuery.SetField("text")

	var q blevequery.Query = textQuery
	if source != "" {
		sourceQuery := bleve.NewTermQuery(source)
		sourceQuery.SetField("source")
		q = bleve.NewConjunctionQuery(textQuery, sourceQuery)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := l.index.Search(req)
	if err != nil {
		return nil, err
	}

	hits := make([]hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		pos, err := strconv.Atoi(h.ID)
		if err != nil {
			continue
		}
		hits = append(hits, hit{pos: pos, score: float32(h.Score)})
	}
	return hits, nil
}

func (l *lexicalIndex) close() error {
	return l.index.Close()
}
