// Package record defines the typed record values held by the store and the
// scalar equality used to match them.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// IDField is the name of the identifier every record type declares.
const IDField = "id"

// Record maps a field name to a scalar value or to a related Record.
type Record map[string]any

// ID returns the record's identifier, if it has an integral one.
func (r Record) ID() (int64, bool) {
	v, ok := r[IDField]
	if !ok {
		return 0, false
	}
	switch id := v.(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	case float64:
		if id == math.Trunc(id) {
			return int64(id), true
		}
	}
	return 0, false
}

// SetID stores id on the record, replacing any existing value.
func (r Record) SetID(id int64) {
	r[IDField] = id
}

// Get returns the value of field and whether it is present.
func (r Record) Get(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// Related returns the record referenced by field.
// It returns false when the field is absent or holds a scalar.
func (r Record) Related(field string) (Record, bool) {
	v, ok := r[field]
	if !ok {
		return nil, false
	}
	rel, ok := AsRecord(v)
	return rel, ok
}

// Keys returns the record's field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsRecord reports whether v is a record-shaped value.
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]any:
		return Record(m), true
	}
	return nil, false
}

// Normalize converts a decoded value into the canonical representation used
// for comparisons: integral numbers become int64, other numbers float64, and
// nested maps become Records. Lists are rejected since no field holds one.
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int64:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return normalizeUnsigned(uint64(val))
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return normalizeUnsigned(val)
	case float32:
		return normalizeFloat(float64(val)), nil
	case float64:
		return normalizeFloat(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return normalizeFloat(f), nil
	case Record:
		return normalizeMap(val)
	case map[string]any:
		return normalizeMap(val)
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

// NormalizeRecord normalizes every field of r in place.
func NormalizeRecord(r Record) error {
	for k, v := range r {
		n, err := Normalize(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		r[k] = n
	}
	return nil
}

func normalizeMap(m map[string]any) (Record, error) {
	r := Record(m)
	if err := NormalizeRecord(r); err != nil {
		return nil, err
	}
	return r, nil
}

func normalizeUnsigned(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return float64(u), nil
	}
	return int64(u), nil
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63 {
		return int64(f)
	}
	return f
}

// IsScalar reports whether v is a comparable scalar value.
func IsScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, int, int64, float64:
		return true
	}
	return false
}

// Equal compares two scalar values. Numbers compare numerically, strings by
// content, and values of different kinds never compare equal.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, ok := number(a); ok {
		bf, ok := number(b)
		if !ok {
			return false
		}
		ai, aInt := a.(int64)
		bi, bInt := b.(int64)
		if aInt && bInt {
			return ai == bi
		}
		return af == bf
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
