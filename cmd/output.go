package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/pretty"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"golang.org/x/term"

	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/resolver"
	"github.com/hmans/speako/internal/schema"
	"github.com/hmans/speako/internal/ui"
)

// relatedDepth is how many levels of related records are expanded in JSON
// output. Deeper references are reduced to their id.
const relatedDepth = 1

// isTerminal reports whether stream is an interactive terminal.
func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printJSON writes v as indented JSON, colored when w is a terminal.
func printJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	out := pretty.Pretty(data)
	if isTerminal(w) {
		out = pretty.Color(out, nil)
	}
	_, err = w.Write(out)
	return err
}

// printCompactJSON writes v as a single line of JSON.
func printCompactJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(pretty.Ugly(data)))
	return err
}

// exportRecord converts rec for JSON output, expanding related records up to
// depth levels.
func exportRecord(rec record.Record, depth int) map[string]any {
	if rec == nil {
		return nil
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		rel, ok := record.AsRecord(v)
		if !ok {
			out[k] = v
			continue
		}
		if depth <= 0 {
			if id, ok := rel.ID(); ok {
				out[k] = map[string]any{record.IDField: id}
			} else {
				out[k] = nil
			}
			continue
		}
		out[k] = exportRecord(rel, depth-1)
	}
	return out
}

func exportRecords(recs []record.Record) []map[string]any {
	out := make([]map[string]any, len(recs))
	for i, r := range recs {
		out[i] = exportRecord(r, relatedDepth)
	}
	return out
}

// printRecords writes recs as a table, or as JSON with asJSON.
func printRecords(w io.Writer, t *schema.Type, recs []record.Record, asJSON bool) error {
	if asJSON {
		return printJSON(w, exportRecords(recs))
	}
	fmt.Fprint(w, ui.RenderTable(t, recs))
	fmt.Fprintln(w, ui.RenderCount(len(recs)))
	return nil
}

// operationError wraps err as the failed resolution of field. With asJSON
// the error list is also written to w.
func operationError(w io.Writer, asJSON bool, field string, err error) error {
	gerr := resolver.FieldError(field, err)
	if asJSON {
		_ = printJSON(w, map[string]any{"errors": gqlerror.List{gerr}})
	}
	return gerr
}
