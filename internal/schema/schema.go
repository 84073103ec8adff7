// Package schema reads GraphQL type declarations and classifies each field as
// a scalar or a link to another record type. It also derives the query and
// mutation operations the resolver serves for those types.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/hmans/speako/internal/record"
)

var (
	ErrNoTypes      = errors.New("schema declares no object types")
	ErrMissingID    = errors.New("type has no integer id field")
	ErrReservedType = errors.New("reserved type name")
)

// reservedTypes are generated by Operations and may not be declared.
var reservedTypes = map[string]bool{
	"Query":        true,
	"Mutation":     true,
	"Subscription": true,
}

var builtinScalars = map[string]bool{
	"Int":     true,
	"Float":   true,
	"String":  true,
	"Boolean": true,
	"ID":      true,
}

// Field describes one field of a record type.
type Field struct {
	Name     string
	TypeName string // innermost named type
	List     bool
	NonNull  bool

	// Related is set when TypeName is another record type.
	Related bool
	// Scalar is set for built-in and declared scalars and enums.
	Scalar bool
}

// Type is a record type and its fields in declaration order.
type Type struct {
	Name   string
	Fields []*Field

	byName map[string]*Field
}

// Field returns the named field.
func (t *Type) Field(name string) (*Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// ScalarFields returns the single-valued scalar fields.
func (t *Type) ScalarFields() []*Field {
	var result []*Field
	for _, f := range t.Fields {
		if f.Scalar && !f.List {
			result = append(result, f)
		}
	}
	return result
}

// RelatedFields returns the single-valued fields linking to another type.
func (t *Type) RelatedFields() []*Field {
	var result []*Field
	for _, f := range t.Fields {
		if f.Related && !f.List {
			result = append(result, f)
		}
	}
	return result
}

// Schema holds the record types of a parsed type declaration document.
type Schema struct {
	source string
	types  []*Type
	byName map[string]*Type
	full   *ast.Schema // declarations plus generated operations
}

// Parse reads GraphQL type declarations. name identifies the source in error
// messages.
func Parse(name, sdl string) (*Schema, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, err
	}

	s := &Schema{
		source: sdl,
		byName: make(map[string]*Type),
	}

	// Declared scalars and enums count as scalar field types.
	scalars := make(map[string]bool)
	for _, def := range doc.Definitions {
		if def.Kind == ast.Scalar || def.Kind == ast.Enum {
			scalars[def.Name] = true
		}
	}

	for _, def := range doc.Definitions {
		if def.Kind != ast.Object {
			continue
		}
		if reservedTypes[def.Name] {
			return nil, fmt.Errorf("%w: %s", ErrReservedType, def.Name)
		}
		t := &Type{Name: def.Name, byName: make(map[string]*Field)}
		s.types = append(s.types, t)
		s.byName[t.Name] = t
	}
	if len(s.types) == 0 {
		return nil, ErrNoTypes
	}

	for _, def := range doc.Definitions {
		t, ok := s.byName[def.Name]
		if !ok || def.Kind != ast.Object {
			continue
		}
		for _, fd := range def.Fields {
			named := fd.Type.Name()
			f := &Field{
				Name:     fd.Name,
				TypeName: named,
				List:     fd.Type.Elem != nil,
				NonNull:  fd.Type.NonNull,
				Related:  s.byName[named] != nil,
				Scalar:   builtinScalars[named] || scalars[named],
			}
			t.Fields = append(t.Fields, f)
			t.byName[f.Name] = f
		}
		if id, ok := t.byName[record.IDField]; !ok || id.List || (id.TypeName != "ID" && id.TypeName != "Int") {
			return nil, fmt.Errorf("%w: %s", ErrMissingID, t.Name)
		}
	}

	full, err := gqlparser.LoadSchema(
		&ast.Source{Name: name, Input: sdl},
		&ast.Source{Name: "operations.graphql", Input: s.Operations()},
	)
	if err != nil {
		return nil, err
	}
	s.full = full

	return s, nil
}

// Source returns the type declarations the schema was parsed from.
func (s *Schema) Source() string {
	return s.source
}

// Types returns the record types in declaration order.
func (s *Schema) Types() []*Type {
	return s.types
}

// Type returns the named record type.
func (s *Schema) Type(name string) (*Type, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// AST returns the validated schema including the generated operations.
func (s *Schema) AST() *ast.Schema {
	return s.full
}

// Format writes the complete schema, including generated operations.
func (s *Schema) Format(w io.Writer) {
	f := formatter.NewFormatter(w, formatter.WithIndent("  "))
	f.FormatSchema(s.full)
}

// String returns the formatted schema.
func (s *Schema) String() string {
	var buf bytes.Buffer
	s.Format(&buf)
	return buf.String()
}
