// Package search provides full-text search over records using Bleve.
package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/recordstore"
	"github.com/hmans/speako/internal/schema"
)

const (
	typeField = "type"
	refsField = "refs"
)

// Index wraps a Bleve in-memory index for searching records.
type Index struct {
	index  bleve.Index
	schema *schema.Schema
}

// Hit is a record found by a search.
type Hit struct {
	TypeName string
	ID       int64
	Score    float64
}

// NewIndex creates a new in-memory Bleve index for the types of sch.
func NewIndex(sch *schema.Schema) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{index: idx, schema: sch}, nil
}

// Build creates an index holding every record in store.
func Build(store *recordstore.Store, sch *schema.Schema) (*Index, error) {
	idx, err := NewIndex(sch)
	if err != nil {
		return nil, err
	}
	for _, typename := range store.Types() {
		recs, err := store.All(typename)
		if err != nil {
			idx.Close()
			return nil, err
		}
		if err := idx.IndexRecords(typename, recs); err != nil {
			idx.Close()
			return nil, err
		}
	}
	return idx, nil
}

// buildIndexMapping creates the Bleve index mapping for record documents.
// Record fields are mapped dynamically; the type name and reference targets
// are keywords for exact matching.
func buildIndexMapping() mapping.IndexMapping {
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	keywordFieldMapping.IncludeInAll = false

	recordMapping := bleve.NewDocumentMapping()
	recordMapping.AddFieldMappingsAt(typeField, keywordFieldMapping)
	recordMapping.AddFieldMappingsAt(refsField, keywordFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = recordMapping
	indexMapping.DefaultAnalyzer = "standard"
	indexMapping.StoreDynamic = false
	indexMapping.ScoringModel = "bm25"

	return indexMapping
}

// Close closes the index.
func (idx *Index) Close() error {
	return idx.index.Close()
}

// DocID returns the document id of a record.
func DocID(typename string, id int64) string {
	return typename + ":" + strconv.FormatInt(id, 10)
}

// ParseDocID splits a document id into type name and record id.
func ParseDocID(docID string) (string, int64, error) {
	typename, raw, ok := strings.Cut(docID, ":")
	if !ok {
		return "", 0, fmt.Errorf("invalid document id %q", docID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid document id %q: %w", docID, err)
	}
	return typename, id, nil
}

// document builds the indexed form of rec. Scalar fields are indexed as
// text, related records by their scalar fields under the field name, and
// reference targets as keywords.
func (idx *Index) document(typename string, rec record.Record) map[string]any {
	doc := map[string]any{typeField: typename}
	var refs []string

	t, _ := idx.schema.Type(typename)
	for _, k := range rec.Keys() {
		if k == record.IDField {
			continue
		}
		v := rec[k]
		rel, ok := record.AsRecord(v)
		if !ok {
			if text := scalarText(v); text != "" {
				doc[k] = text
			}
			continue
		}

		nested := make(map[string]any)
		for _, rk := range rel.Keys() {
			if rk == record.IDField {
				continue
			}
			if text := scalarText(rel[rk]); text != "" {
				nested[rk] = text
			}
		}
		doc[k] = nested

		if t == nil {
			continue
		}
		if f, ok := t.Field(k); ok && f.Related {
			if id, ok := rel.ID(); ok {
				refs = append(refs, DocID(f.TypeName, id))
			}
		}
	}
	if len(refs) > 0 {
		doc[refsField] = refs
	}
	return doc
}

func scalarText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// IndexRecord adds or updates a record in the search index.
func (idx *Index) IndexRecord(typename string, rec record.Record) error {
	id, ok := rec.ID()
	if !ok {
		return fmt.Errorf("%s record has no id", typename)
	}
	return idx.index.Index(DocID(typename, id), idx.document(typename, rec))
}

// DeleteRecord removes a record from the search index.
func (idx *Index) DeleteRecord(typename string, id int64) error {
	return idx.index.Delete(DocID(typename, id))
}

// IndexRecords indexes multiple records in a batch for efficiency.
func (idx *Index) IndexRecords(typename string, recs []record.Record) error {
	batch := idx.index.NewBatch()
	for _, rec := range recs {
		id, ok := rec.ID()
		if !ok {
			continue
		}
		if err := batch.Index(DocID(typename, id), idx.document(typename, rec)); err != nil {
			return err
		}
	}
	return idx.index.Batch(batch)
}

// DefaultSearchLimit is the default maximum number of search results.
const DefaultSearchLimit = 1000

// Search executes a query string search and returns the matching records,
// best match first. A non-empty typename restricts results to that type.
// The limit parameter controls the maximum number of results (0 uses
// DefaultSearchLimit).
func (idx *Index) Search(queryStr, typename string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	// Query string syntax supports terms, phrases, wildcards and
	// field-specific terms such as "label.name:harvest".
	var q query.Query = bleve.NewQueryStringQuery(queryStr)
	if typename != "" {
		q = bleve.NewConjunctionQuery(typeQuery(typename), q)
	}

	return idx.run(q, limit)
}

// FindReferences returns the records whose related fields reference the
// record typename/id.
func (idx *Index) FindReferences(typename string, id int64) ([]Hit, error) {
	q := bleve.NewTermQuery(DocID(typename, id))
	q.SetField(refsField)
	return idx.run(q, DefaultSearchLimit)
}

func typeQuery(typename string) query.Query {
	q := bleve.NewTermQuery(typename)
	q.SetField(typeField)
	return q
}

func (idx *Index) run(q query.Query, limit int) ([]Hit, error) {
	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.Size = limit

	result, err := idx.index.Search(searchRequest)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		typename, id, err := ParseDocID(h.ID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{TypeName: typename, ID: id, Score: h.Score})
	}
	return hits, nil
}
