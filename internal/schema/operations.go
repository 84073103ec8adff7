package schema

import (
	"fmt"
	"strings"
)

// MatchInputName returns the name of the input type used to constrain a
// related record of type typename in a query.
func MatchInputName(typename string) string {
	return typename + "Match"
}

// ListQueryName returns the name of the query field returning every record.
func ListQueryName(typename string) string {
	return typename + "s"
}

// CreateMutationName returns the name of the create mutation for typename.
func CreateMutationName(typename string) string {
	return "create" + typename
}

// DeleteMutationName returns the name of the delete mutation for typename.
func DeleteMutationName(typename string) string {
	return "delete" + typename
}

// Operations returns the GraphQL SDL of the query and mutation fields derived
// from the record types:
//
//	type Query {
//	  Album(id: ID, name: String, label: LabelMatch): [Album]
//	  Albums: [Album]
//	}
//	type Mutation {
//	  createAlbum(name: String, label: ID): Album
//	  deleteAlbum(id: ID, name: String, label: ID): Album
//	}
//	input LabelMatch { id: ID name: String }
//
// Related records are constrained through a single inner field in queries
// and referenced by id in mutations.
func (s *Schema) Operations() string {
	var b strings.Builder

	b.WriteString("type Query {\n")
	for _, t := range s.types {
		fmt.Fprintf(&b, "  %s%s: [%s]\n", t.Name, argumentList(t, queryArgument), t.Name)
		fmt.Fprintf(&b, "  %s: [%s]\n", ListQueryName(t.Name), t.Name)
	}
	b.WriteString("}\n\n")

	b.WriteString("type Mutation {\n")
	for _, t := range s.types {
		fmt.Fprintf(&b, "  %s%s: %s\n", CreateMutationName(t.Name), argumentList(t, createArgument), t.Name)
		fmt.Fprintf(&b, "  %s%s: %s\n", DeleteMutationName(t.Name), argumentList(t, deleteArgument), t.Name)
	}
	b.WriteString("}\n")

	for _, t := range s.matchTargets() {
		fmt.Fprintf(&b, "\ninput %s {\n", MatchInputName(t.Name))
		for _, f := range t.ScalarFields() {
			fmt.Fprintf(&b, "  %s: %s\n", f.Name, f.TypeName)
		}
		b.WriteString("}\n")
	}

	return b.String()
}

// argumentFunc returns the argument type for f, or "" to omit it.
type argumentFunc func(f *Field) string

func queryArgument(f *Field) string {
	switch {
	case f.List:
		return ""
	case f.Related:
		return MatchInputName(f.TypeName)
	case f.Scalar:
		return f.TypeName
	}
	return ""
}

func createArgument(f *Field) string {
	if f.Name == "id" {
		return ""
	}
	return deleteArgument(f)
}

func deleteArgument(f *Field) string {
	switch {
	case f.List:
		return ""
	case f.Related:
		return "ID"
	case f.Scalar:
		return f.TypeName
	}
	return ""
}

func argumentList(t *Type, argType argumentFunc) string {
	var args []string
	for _, f := range t.Fields {
		if typ := argType(f); typ != "" {
			args = append(args, f.Name+": "+typ)
		}
	}
	if len(args) == 0 {
		return ""
	}
	return "(" + strings.Join(args, ", ") + ")"
}

// matchTargets returns the types referenced by a single-valued related
// field, in declaration order.
func (s *Schema) matchTargets() []*Type {
	referenced := make(map[string]bool)
	for _, t := range s.types {
		for _, f := range t.RelatedFields() {
			referenced[f.TypeName] = true
		}
	}

	var result []*Type
	for _, t := range s.types {
		if referenced[t.Name] {
			result = append(result, t)
		}
	}
	return result
}
