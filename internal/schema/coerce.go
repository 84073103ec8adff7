package schema

import (
	"fmt"

	"github.com/99designs/gqlgen/graphql"

	"github.com/hmans/speako/internal/record"
)

// Coerce converts a raw command-line value into the value stored for the
// field. Identifiers and related-record references are integers; other
// fields follow their declared scalar type. Enums and custom scalars are
// kept as strings.
func (f *Field) Coerce(raw string) (any, error) {
	if f.List {
		return nil, fmt.Errorf("field %q: list fields cannot be set", f.Name)
	}

	if f.Name == record.IDField || f.Related {
		id, err := graphql.UnmarshalInt(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		return int64(id), nil
	}

	var (
		v   any
		err error
	)
	switch f.TypeName {
	case "Int":
		var i int
		i, err = graphql.UnmarshalInt(raw)
		v = int64(i)
	case "Float":
		var fl float64
		fl, err = graphql.UnmarshalFloat(raw)
		v = fl
	case "Boolean":
		v, err = graphql.UnmarshalBoolean(raw)
	case "ID":
		v, err = graphql.UnmarshalID(raw)
	default:
		v, err = graphql.UnmarshalString(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.Name, err)
	}
	return record.Normalize(v)
}
