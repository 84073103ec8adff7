// Package predicate compiles field constraint maps into matchers over records.
//
// A predicate is an ordered list of constraints. A constraint either compares
// a field to a scalar value, or descends exactly one level into a related
// record and compares one of its fields. The reserved predicate {"all": true}
// selects every record.
package predicate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hmans/speako/internal/record"
)

var (
	ErrMalformedPredicate         = errors.New("malformed predicate")
	ErrUnsupportedNestedPredicate = errors.New("unsupported nested predicate")
)

// AllKey is the field name of the match-all sentinel.
const AllKey = "all"

// Constraint is a single field condition.
// When Inner is set, Field names a related record and Inner the field on it.
type Constraint struct {
	Field string
	Inner string
	Value any
}

// Nested reports whether the constraint reaches into a related record.
func (c Constraint) Nested() bool {
	return c.Inner != ""
}

func (c Constraint) String() string {
	if c.Nested() {
		return fmt.Sprintf("%s.%s=%v", c.Field, c.Inner, c.Value)
	}
	return fmt.Sprintf("%s=%v", c.Field, c.Value)
}

// Predicate is an ordered conjunction of constraints, or the match-all sentinel.
type Predicate struct {
	all         bool
	constraints []Constraint
}

// All returns the match-all sentinel.
func All() Predicate {
	return Predicate{all: true}
}

// New builds a predicate from constraints. It does not validate them.
func New(constraints ...Constraint) Predicate {
	return Predicate{constraints: constraints}
}

// IsAll reports whether p is the match-all sentinel.
func (p Predicate) IsAll() bool {
	return p.all
}

// Constraints returns the predicate's constraints in order.
func (p Predicate) Constraints() []Constraint {
	return p.constraints
}

// Match reports whether rec satisfies every constraint.
func (p Predicate) Match(rec record.Record) bool {
	if p.all {
		return true
	}
	for _, m := range Compile(p) {
		if !m(rec) {
			return false
		}
	}
	return true
}

func (p Predicate) String() string {
	if p.all {
		return `{"all":true}`
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range p.constraints {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(c.String())
	}
	buf.WriteByte('}')
	return buf.String()
}

// Decode parses a JSON-encoded predicate, keeping the order of its keys. A
// repeated key keeps its first position and its last value.
func Decode(encoded string) (Predicate, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(encoded)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Predicate{}, fmt.Errorf("%w: %v", ErrMalformedPredicate, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Predicate{}, fmt.Errorf("%w: expected a JSON object", ErrMalformedPredicate)
	}

	var constraints []Constraint
	position := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Predicate{}, fmt.Errorf("%w: %v", ErrMalformedPredicate, err)
		}
		field := keyTok.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return Predicate{}, fmt.Errorf("%w: field %q: %v", ErrMalformedPredicate, field, err)
		}

		c, err := constraintFor(field, raw)
		if err != nil {
			return Predicate{}, err
		}
		if i, seen := position[field]; seen {
			constraints[i] = c
			continue
		}
		position[field] = len(constraints)
		constraints = append(constraints, c)
	}

	if _, err := dec.Token(); err != nil {
		return Predicate{}, fmt.Errorf("%w: %v", ErrMalformedPredicate, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Predicate{}, fmt.Errorf("%w: trailing data after object", ErrMalformedPredicate)
	}

	if isSentinel(constraints) {
		return All(), nil
	}
	return Predicate{constraints: constraints}, nil
}

// FromFields builds a predicate from a structured example record, as used by
// delete. Keys are taken in sorted order.
func FromFields(fields record.Record) (Predicate, error) {
	constraints := make([]Constraint, 0, len(fields))
	for _, field := range fields.Keys() {
		c, err := constraintFor(field, fields[field])
		if err != nil {
			return Predicate{}, err
		}
		constraints = append(constraints, c)
	}
	return Predicate{constraints: constraints}, nil
}

// constraintFor builds the constraint for one predicate entry.
func constraintFor(field string, raw any) (Constraint, error) {
	if nested, ok := record.AsRecord(raw); ok {
		if len(nested) != 1 {
			return Constraint{}, fmt.Errorf("%w: field %q must name exactly one inner field, got %d",
				ErrUnsupportedNestedPredicate, field, len(nested))
		}
		var inner string
		var innerValue any
		for k, v := range nested {
			inner, innerValue = k, v
		}
		if inner == "" {
			return Constraint{}, fmt.Errorf("%w: field %q names an empty inner field",
				ErrUnsupportedNestedPredicate, field)
		}
		if _, deeper := record.AsRecord(innerValue); deeper {
			return Constraint{}, fmt.Errorf("%w: field %q nests deeper than one level",
				ErrUnsupportedNestedPredicate, field)
		}
		value, err := scalar(field+"."+inner, innerValue)
		if err != nil {
			return Constraint{}, err
		}
		return Constraint{Field: field, Inner: inner, Value: value}, nil
	}

	value, err := scalar(field, raw)
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{Field: field, Value: value}, nil
}

func scalar(path string, raw any) (any, error) {
	value, err := record.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", ErrMalformedPredicate, path, err)
	}
	if !record.IsScalar(value) {
		return nil, fmt.Errorf("%w: field %q must be a scalar", ErrMalformedPredicate, path)
	}
	return value, nil
}

func isSentinel(constraints []Constraint) bool {
	if len(constraints) != 1 {
		return false
	}
	c := constraints[0]
	return c.Field == AllKey && !c.Nested() && c.Value == true
}
