// Package dataset loads seed records from YAML and links related records by
// their identifiers.
package dataset

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/recordstore"
	"github.com/hmans/speako/internal/schema"
)

var (
	ErrUnknownType       = errors.New("unknown type")
	ErrUnknownField      = errors.New("unknown field")
	ErrMissingID         = errors.New("record has no id")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrDanglingReference = errors.New("reference to missing record")
)

//go:embed sample/*
var sampleFS embed.FS

const (
	sampleSchemaFile  = "sample/albums.graphql"
	sampleDatasetFile = "sample/albums.yaml"
)

// SampleSchema returns the type declarations of the built-in album sample.
func SampleSchema() string {
	data, err := sampleFS.ReadFile(sampleSchemaFile)
	if err != nil {
		// The sample is embedded at build time.
		panic(err)
	}
	return string(data)
}

// SampleDataset returns the YAML records of the built-in album sample.
func SampleDataset() []byte {
	data, err := sampleFS.ReadFile(sampleDatasetFile)
	if err != nil {
		panic(err)
	}
	return data
}

// file is the YAML layout of a dataset.
type file struct {
	Collections []struct {
		Type    string           `yaml:"type"`
		Records []map[string]any `yaml:"records"`
	} `yaml:"collections"`
}

// Collections holds loaded records per type, in schema declaration order.
type Collections struct {
	order   []string
	records map[string][]record.Record
}

// Types returns the type names in schema declaration order.
func (c *Collections) Types() []string {
	return c.order
}

// Records returns the records loaded for typename.
func (c *Collections) Records(typename string) []record.Record {
	return c.records[typename]
}

// Apply registers every type with the store and replaces its records.
func (c *Collections) Apply(store *recordstore.Store) {
	for _, typename := range c.order {
		store.Register(typename)
	}
	store.Reset(c.records)
}

// Load reads a YAML dataset and links related fields to the records they
// reference. Every type in sch gets a collection, empty if the dataset has
// no records for it.
func Load(r io.Reader, sch *schema.Schema) (*Collections, error) {
	var f file
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}

	c := &Collections{records: make(map[string][]record.Record)}
	for _, t := range sch.Types() {
		c.order = append(c.order, t.Name)
		c.records[t.Name] = []record.Record{}
	}

	for _, coll := range f.Collections {
		t, ok := sch.Type(coll.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, coll.Type)
		}
		seen := make(map[int64]bool, len(coll.Records))
		for i, raw := range coll.Records {
			rec, err := decodeRecord(t, raw)
			if err != nil {
				return nil, fmt.Errorf("%s record %d: %w", t.Name, i+1, err)
			}
			id, _ := rec.ID()
			if seen[id] {
				return nil, fmt.Errorf("%s record %d: %w: %d", t.Name, i+1, ErrDuplicateID, id)
			}
			seen[id] = true
			c.records[t.Name] = append(c.records[t.Name], rec)
		}
	}

	// Link references once every collection is loaded, so declaration order
	// in the file does not matter.
	for _, t := range sch.Types() {
		for _, rec := range c.records[t.Name] {
			if err := linkRecord(t, rec, c.lookup); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// LoadFile reads a YAML dataset from path.
func LoadFile(path string, sch *schema.Schema) (*Collections, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f, sch)
}

// LoadSample loads the built-in album records.
func LoadSample(sch *schema.Schema) (*Collections, error) {
	return Load(bytes.NewReader(SampleDataset()), sch)
}

func (c *Collections) lookup(typename string, id int64) (record.Record, bool) {
	for _, r := range c.records[typename] {
		if rid, ok := r.ID(); ok && rid == id {
			return r, true
		}
	}
	return nil, false
}

// decodeRecord normalizes a raw YAML record and checks its fields against t.
func decodeRecord(t *schema.Type, raw map[string]any) (record.Record, error) {
	rec := make(record.Record, len(raw))
	for k, v := range raw {
		if _, ok := t.Field(k); !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.Name, k)
		}
		if ts, ok := v.(time.Time); ok {
			v = formatTime(ts)
		}
		n, err := record.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		rec[k] = n
	}
	if _, ok := rec.ID(); !ok {
		return nil, ErrMissingID
	}
	return rec, nil
}

// formatTime renders YAML timestamps back into the text they were written as.
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

type lookupFunc func(typename string, id int64) (record.Record, bool)

// linkRecord replaces reference ids in the related fields of rec with the
// records they name.
func linkRecord(t *schema.Type, rec record.Record, lookup lookupFunc) error {
	for _, f := range t.RelatedFields() {
		v, ok := rec[f.Name]
		if !ok || v == nil {
			continue
		}
		if _, isRecord := record.AsRecord(v); isRecord {
			continue
		}
		id, ok := v.(int64)
		if !ok {
			return fmt.Errorf("%s.%s: reference must be an integer id, got %v", t.Name, f.Name, v)
		}
		target, ok := lookup(f.TypeName, id)
		if !ok {
			return fmt.Errorf("%s.%s: %w: %s %d", t.Name, f.Name, ErrDanglingReference, f.TypeName, id)
		}
		rec[f.Name] = target
	}
	return nil
}

// Link resolves reference ids in the related fields of rec against the
// records currently held by store.
func Link(store *recordstore.Store, t *schema.Type, rec record.Record) error {
	return linkRecord(t, rec, func(typename string, id int64) (record.Record, bool) {
		found, err := store.Filter(typename, func(r record.Record) bool {
			rid, ok := r.ID()
			return ok && rid == id
		})
		if err != nil || len(found) == 0 {
			return nil, false
		}
		return found[0], true
	})
}
