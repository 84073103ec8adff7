package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/resolver"
	"github.com/hmans/speako/internal/schema"
)

var errUnknownField = errors.New("unknown field")

// parseAssignments converts field=value arguments into a record, coercing
// each value to the declared type of its field. Related fields take the id
// of the referenced record.
func parseAssignments(t *schema.Type, args []string) (record.Record, error) {
	rec := make(record.Record, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q (expected field=value)", arg)
		}
		f, ok := t.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", errUnknownField, t.Name, name)
		}
		v, err := f.Coerce(raw)
		if err != nil {
			return nil, err
		}
		rec[name] = v
	}
	return rec, nil
}

// decodeFields decodes a JSON object into a record with normalized values.
func decodeFields(encoded string) (record.Record, error) {
	dec := json.NewDecoder(strings.NewReader(encoded))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid fields JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid fields JSON: trailing data")
	}
	if m == nil {
		return nil, fmt.Errorf("invalid fields JSON: expected an object")
	}

	rec := record.Record(m)
	if err := record.NormalizeRecord(rec); err != nil {
		return nil, fmt.Errorf("invalid fields JSON: %w", err)
	}
	return rec, nil
}

// checkFields rejects fields t does not declare.
func checkFields(t *schema.Type, rec record.Record) error {
	for _, name := range rec.Keys() {
		if _, ok := t.Field(name); !ok {
			return fmt.Errorf("%w: %s.%s", errUnknownField, t.Name, name)
		}
	}
	return nil
}

// referencesAsExamples turns related field ids into single-field examples,
// so delete matches the related record's id.
func referencesAsExamples(t *schema.Type, rec record.Record) {
	for _, f := range t.RelatedFields() {
		if id, ok := rec[f.Name].(int64); ok {
			rec[f.Name] = record.Record{record.IDField: id}
		}
	}
}

// fieldsFromInput builds a record from --fields JSON or field=value args.
func fieldsFromInput(t *schema.Type, fieldsJSON string, args []string) (record.Record, error) {
	if fieldsJSON != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("use either --fields or field=value arguments, not both")
		}
		rec, err := decodeFields(fieldsJSON)
		if err != nil {
			return nil, err
		}
		return rec, checkFields(t, rec)
	}
	return parseAssignments(t, args)
}

// lookupType returns the declared type named typename.
func lookupType(typename string) (*schema.Type, error) {
	t, ok := core.Schema().Type(typename)
	if !ok {
		return nil, fmt.Errorf("%w (known: %s)", &resolver.UnknownTypeError{TypeName: typename}, strings.Join(core.Types(), ", "))
	}
	return t, nil
}
