package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hmans/speako/internal/record"
)

const matchAll = `{"all": true}`

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:     "query <Type> [predicate]",
	Aliases: []string{"q"},
	Short:   "List the records of a type that match a predicate",
	Long: `Lists the records of a type whose fields equal the values in a JSON predicate,
in store order. A field of a related record is matched with a nested object
naming one inner field. Without a predicate, every record is listed.

Examples:
  # Every album
  speako query Album

  # Albums by one artist
  speako query Album '{"artist": "Pink Floyd"}'

  # Albums on a label, matched by the label's name
  speako query Album '{"label": {"name": "Harvest Records"}}'

  # Read the predicate from stdin
  echo '{"id": 2}' | speako query Album`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoded := matchAll
		if len(args) == 2 {
			encoded = args[1]
		} else {
			stdinPredicate, err := readFromStdin(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if stdinPredicate != "" {
				encoded = stdinPredicate
			}
		}

		return runQuery(cmd.Context(), cmd.OutOrStdout(), args[0], encoded, queryJSON)
	},
}

// runQuery resolves a query and prints its result.
func runQuery(ctx context.Context, w io.Writer, typename, encoded string, asJSON bool) error {
	recs, err := queryRecords(ctx, typename, encoded)
	if err != nil {
		return operationError(w, asJSON, typename, err)
	}

	t, err := lookupType(typename)
	if err != nil {
		return err
	}
	return printRecords(w, t, recs, asJSON)
}

func queryRecords(ctx context.Context, typename, encoded string) ([]record.Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	recs, err := core.Query(ctx, typename, encoded)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", typename, err)
	}
	return recs, nil
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(queryCmd)
}
