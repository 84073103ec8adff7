package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/hmans/speako/internal/dataset"
	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/schema"
	"github.com/hmans/speako/internal/ui"
)

var (
	createFields      string
	createInteractive bool
	createJSON        bool
)

var createCmd = &cobra.Command{
	Use:     "create <Type> [field=value...]",
	Aliases: []string{"c", "new"},
	Short:   "Create a record",
	Long: `Creates a record of a type and assigns it the next id. Values are converted to
the declared field type; a related field takes the id of an existing record.

The store lives in process memory, so the record exists for the duration of
the command. Use 'speako shell' to run several operations against one store.

Examples:
  speako create Album name="Wish You Were Here" artist="Pink Floyd" label=2
  speako create Album --fields '{"name": "Animals", "label": 2}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := lookupType(args[0])
		if err != nil {
			return err
		}
		var fields record.Record
		if createInteractive {
			fields, err = promptFields(t)
		} else {
			fields, err = fieldsFromInput(t, createFields, args[1:])
		}
		if err != nil {
			return err
		}
		return runCreate(cmd.Context(), cmd.OutOrStdout(), t, fields, createJSON)
	},
}

// promptFields asks for a value for every settable field of t. Empty
// answers leave the field unset.
func promptFields(t *schema.Type) (record.Record, error) {
	var (
		names  []string
		values []*string
		inputs []huh.Field
	)
	for _, f := range t.Fields {
		if f.Name == record.IDField || f.List {
			continue
		}
		f := f
		value := new(string)
		title := f.Name
		if f.Related {
			title += " (" + f.TypeName + " id)"
		}
		inputs = append(inputs, huh.NewInput().
			Title(title).
			Value(value).
			Validate(func(s string) error {
				if s == "" {
					return nil
				}
				_, err := f.Coerce(s)
				return err
			}))
		names = append(names, f.Name)
		values = append(values, value)
	}

	if err := huh.NewForm(huh.NewGroup(inputs...)).Run(); err != nil {
		return nil, err
	}

	var assignments []string
	for i, name := range names {
		if *values[i] != "" {
			assignments = append(assignments, name+"="+*values[i])
		}
	}
	return parseAssignments(t, assignments)
}

// runCreate links references, creates the record and prints it.
func runCreate(ctx context.Context, w io.Writer, t *schema.Type, fields record.Record, asJSON bool) error {
	field := schema.CreateMutationName(t.Name)

	rec, err := createRecord(ctx, t, fields)
	if err != nil {
		return operationError(w, asJSON, field, err)
	}

	if asJSON {
		return printJSON(w, exportRecord(rec, relatedDepth))
	}

	id, _ := rec.ID()
	fmt.Fprintln(w, ui.Success.Render("Created ")+t.Name+" "+ui.ID.Render(fmt.Sprintf("#%d", id)))
	fmt.Fprint(w, ui.RenderTable(t, []record.Record{rec}))
	return nil
}

func createRecord(ctx context.Context, t *schema.Type, fields record.Record) (record.Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := fields[record.IDField]; ok {
		return nil, fmt.Errorf("%s: id is assigned on create", t.Name)
	}
	if err := dataset.Link(core.Store(), t, fields); err != nil {
		return nil, err
	}
	return core.Create(ctx, t.Name, fields)
}

func init() {
	createCmd.Flags().StringVar(&createFields, "fields", "", "Field values as a JSON object")
	createCmd.Flags().BoolVarP(&createInteractive, "interactive", "i", false, "Prompt for field values")
	createCmd.MarkFlagsMutuallyExclusive("fields", "interactive")
	createCmd.Flags().BoolVar(&createJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(createCmd)
}
