package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/hmans/speako/internal/predicate"
	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/schema"
	"github.com/hmans/speako/internal/ui"
)

var (
	deleteFields string
	deleteForce  bool
	deleteJSON   bool
)

var deleteCmd = &cobra.Command{
	Use:     "delete <Type> [field=value...]",
	Aliases: []string{"rm"},
	Short:   "Delete the records matching an example",
	Long: `Deletes every record of a type whose fields equal the given example and
prints the first one removed. A related field given as an id, either as
field=value or as a number in --fields, matches the related record's id.

Examples:
  speako delete Album id=2
  speako delete Album --fields '{"label": 2}'
  speako delete Album --fields '{"label": {"name": "Apple Records"}}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := lookupType(args[0])
		if err != nil {
			return err
		}
		fields, err := fieldsFromInput(t, deleteFields, args[1:])
		if err != nil {
			return err
		}
		referencesAsExamples(t, fields)

		// JSON implies force (no prompts for machines)
		if !deleteForce && !deleteJSON && isTerminal(cmd.InOrStdin()) {
			ok, err := confirmDelete(cmd, t, fields)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
		}

		return runDelete(cmd.Context(), cmd.OutOrStdout(), t, fields, deleteJSON)
	},
}

// confirmDelete asks before deleting more than one record.
func confirmDelete(cmd *cobra.Command, t *schema.Type, fields record.Record) (bool, error) {
	p, err := predicate.FromFields(fields)
	if err != nil {
		return false, operationError(cmd.OutOrStdout(), false, schema.DeleteMutationName(t.Name), err)
	}
	matches, err := core.QueryPredicate(cmd.Context(), t.Name, p)
	if err != nil {
		return false, operationError(cmd.OutOrStdout(), false, schema.DeleteMutationName(t.Name), err)
	}
	if len(matches) <= 1 {
		return true, nil
	}

	var confirm bool
	err = huh.NewConfirm().
		Title(fmt.Sprintf("Delete %d %s records?", len(matches), t.Name)).
		Affirmative("Yes").
		Negative("No").
		Value(&confirm).
		Run()
	if err != nil {
		return false, err
	}
	return confirm, nil
}

// runDelete deletes the matching records and prints the first one removed.
func runDelete(ctx context.Context, w io.Writer, t *schema.Type, fields record.Record, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	field := schema.DeleteMutationName(t.Name)

	rec, err := deleteRecord(ctx, t, fields)
	if err != nil {
		return operationError(w, asJSON, field, err)
	}

	if asJSON {
		return printJSON(w, exportRecord(rec, relatedDepth))
	}

	if rec == nil {
		fmt.Fprintln(w, ui.Muted.Render("No matching "+t.Name))
		return nil
	}

	id, _ := rec.ID()
	fmt.Fprintln(w, ui.Danger.Render("Deleted ")+t.Name+" "+ui.ID.Render(fmt.Sprintf("#%d", id)))
	fmt.Fprint(w, ui.RenderTable(t, []record.Record{rec}))

	// Records linked to the deleted one keep their reference.
	refs, err := referencingRecords(t.Name, id)
	if err != nil {
		logger.Warn("finding references", "type", t.Name, "id", id, "error", err)
		return nil
	}
	if len(refs) > 0 {
		fmt.Fprintln(w, ui.Warning.Render(fmt.Sprintf("Warning: %d record(s) still reference %s #%d: %s",
			len(refs), t.Name, id, strings.Join(refs, ", "))))
	}
	return nil
}

// deleteRecord deletes the records of t matching fields. A related field
// given as a bare id matches the related record with that id.
func deleteRecord(ctx context.Context, t *schema.Type, fields record.Record) (record.Record, error) {
	referencesAsExamples(t, fields)
	return core.Delete(ctx, t.Name, fields)
}

func init() {
	deleteCmd.Flags().StringVar(&deleteFields, "fields", "", "Example fields as a JSON object")
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation when several records match")
	deleteCmd.Flags().BoolVar(&deleteJSON, "json", false, "Output as JSON (implies --force)")
	rootCmd.AddCommand(deleteCmd)
}
