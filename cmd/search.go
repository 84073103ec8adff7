package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/resolver"
	"github.com/hmans/speako/internal/search"
	"github.com/hmans/speako/internal/ui"
)

var (
	searchType  string
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search across records",
	Long: `Searches the text of every record, including the fields of related records,
and lists the matches best first.

Examples:
  speako search floyd
  speako search '"dark side"'
  speako search label.name:harvest --type Album`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd.OutOrStdout(), strings.Join(args, " "), searchType, searchLimit, searchJSON)
	},
}

var (
	liveIndex   *search.Live
	indexedCore *resolver.Resolver
)

// searchIndex returns the index following the current store, building it on
// first use. Later mutations are applied to it rather than rebuilding.
func searchIndex() (*search.Live, error) {
	if liveIndex != nil && indexedCore == core {
		return liveIndex, nil
	}
	if liveIndex != nil {
		liveIndex.Close()
		liveIndex = nil
	}
	idx, err := search.Follow(core.Store(), core.Schema())
	if err != nil {
		return nil, fmt.Errorf("building search index: %w", err)
	}
	liveIndex, indexedCore = idx, core
	return idx, nil
}

// searchResult is the JSON form of a search hit.
type searchResult struct {
	Type   string         `json:"type"`
	Score  float64        `json:"score"`
	Record map[string]any `json:"record"`
}

// searchRecords runs a search and returns the hits with their records.
func searchRecords(queryStr, typename string, limit int) ([]searchResult, []record.Record, error) {
	if typename != "" {
		if _, err := lookupType(typename); err != nil {
			return nil, nil, err
		}
	}

	idx, err := searchIndex()
	if err != nil {
		return nil, nil, err
	}

	hits, err := idx.Search(queryStr, typename, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("search: %w", err)
	}

	results := make([]searchResult, 0, len(hits))
	recs := make([]record.Record, 0, len(hits))
	for _, h := range hits {
		rec, ok := findRecord(h.TypeName, h.ID)
		if !ok {
			continue
		}
		results = append(results, searchResult{
			Type:   h.TypeName,
			Score:  h.Score,
			Record: exportRecord(rec, relatedDepth),
		})
		recs = append(recs, rec)
	}
	return results, recs, nil
}

func runSearch(w io.Writer, queryStr, typename string, limit int, asJSON bool) error {
	results, recs, err := searchRecords(queryStr, typename, limit)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(w, results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, ui.Muted.Render("No matches"))
		return nil
	}

	// One table per type, in order of the best hit of each type.
	byType := make(map[string][]record.Record)
	var order []string
	for i, res := range results {
		if _, seen := byType[res.Type]; !seen {
			order = append(order, res.Type)
		}
		byType[res.Type] = append(byType[res.Type], recs[i])
	}
	for i, typename := range order {
		if i > 0 {
			fmt.Fprintln(w)
		}
		t, _ := core.Schema().Type(typename)
		fmt.Fprintln(w, ui.Header.Render(typename))
		fmt.Fprint(w, ui.RenderTable(t, byType[typename]))
	}
	fmt.Fprintln(w, ui.RenderCount(len(results)))
	return nil
}

// findRecord returns the record typename/id from the store.
func findRecord(typename string, id int64) (record.Record, bool) {
	found, err := core.Store().Filter(typename, func(r record.Record) bool {
		rid, ok := r.ID()
		return ok && rid == id
	})
	if err != nil || len(found) == 0 {
		return nil, false
	}
	return found[0], true
}

// referencingRecords returns the documents that still reference
// typename/id, as "Type #id" labels.
func referencingRecords(typename string, id int64) ([]string, error) {
	idx, err := searchIndex()
	if err != nil {
		return nil, err
	}

	hits, err := idx.FindReferences(typename, id)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(hits))
	for i, h := range hits {
		labels[i] = fmt.Sprintf("%s #%d", h.TypeName, h.ID)
	}
	return labels, nil
}

func init() {
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "Only search records of this type")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum number of results (default 1000)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(searchCmd)
}
