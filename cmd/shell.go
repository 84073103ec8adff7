package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hmans/speako/internal/dataset"
	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/recordstore"
	"github.com/hmans/speako/internal/resolver"
	"github.com/hmans/speako/internal/schema"
	"github.com/hmans/speako/internal/ui"
)

var shellWatch bool

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run operations from stdin against one store",
	Long: `Reads one operation per line from stdin and writes one JSON response per
line, shaped like a GraphQL response with "data" or "errors":

  query <Type> [predicate]
  create <Type> <fields>
  delete <Type> <fields>
  search <query>
  types

Predicates and fields are JSON objects. Blank lines and lines starting with
# are ignored. With --watch, the store is reseeded whenever the dataset file
changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if shellWatch {
			if err := watchDataset(ctx, cmd.ErrOrStderr()); err != nil {
				return err
			}
		}

		return runShell(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// watchDataset reseeds the store when the dataset file changes and reports
// reloads on errOut.
func watchDataset(ctx context.Context, errOut io.Writer) error {
	if cfg.Data.Dataset == "" {
		return fmt.Errorf("--watch needs a dataset file (set --data or data.dataset)")
	}

	events, unsubscribe := core.Store().Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-events:
				if !ok {
					return
				}
				for _, ev := range batch {
					if ev.Type == recordstore.EventReloaded {
						n, _ := core.Store().Len(ev.TypeName)
						fmt.Fprintln(errOut, ui.Muted.Render(fmt.Sprintf("reloaded %s (%d)", ev.TypeName, n)))
					}
				}
			}
		}
	}()

	return dataset.Watch(ctx, cfg.Data.Dataset, func() {
		if err := reloadDataset(); err != nil {
			logger.Error("reloading dataset", "path", cfg.Data.Dataset, "error", err)
		}
	}, func(err error) {
		logger.Warn("watching dataset", "path", cfg.Data.Dataset, "error", err)
	})
}

// reloadDataset reads the dataset again and replaces every collection.
// A dataset that fails to load leaves the store unchanged.
func reloadDataset() error {
	collections, err := loadCollections(cfg, core.Schema())
	if err != nil {
		return err
	}
	collections.Apply(core.Store())
	return nil
}

// runShell executes operations line by line until in is exhausted or ctx is
// cancelled.
func runShell(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := printCompactJSON(out, execLine(ctx, line)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// execLine runs one shell operation and returns its response.
func execLine(ctx context.Context, line string) map[string]any {
	op, rest, _ := strings.Cut(line, " ")
	typename, payload, _ := strings.Cut(strings.TrimSpace(rest), " ")
	payload = strings.TrimSpace(payload)

	switch op {
	case "search":
		results, _, err := searchRecords(strings.TrimSpace(rest), "", 0)
		if err != nil {
			return errorResponse("search", err)
		}
		return dataResponse("search", results)

	case "types":
		infos, err := collectTypes()
		if err != nil {
			return errorResponse("types", err)
		}
		return dataResponse("types", infos)

	case "query":
		if payload == "" {
			payload = matchAll
		}
		recs, err := queryRecords(ctx, typename, payload)
		if err != nil {
			return errorResponse(typename, err)
		}
		return dataResponse(typename, exportRecords(recs))

	case "create", "delete":
		t, err := lookupType(typename)
		if err != nil {
			return errorResponse(typename, err)
		}
		fields := record.Record{}
		if payload != "" {
			if fields, err = decodeFields(payload); err != nil {
				return errorResponse(typename, err)
			}
			if err := checkFields(t, fields); err != nil {
				return errorResponse(typename, err)
			}
		}

		if op == "create" {
			field := schema.CreateMutationName(t.Name)
			rec, err := createRecord(ctx, t, fields)
			if err != nil {
				return errorResponse(field, err)
			}
			return dataResponse(field, exportRecord(rec, relatedDepth))
		}

		field := schema.DeleteMutationName(t.Name)
		rec, err := deleteRecord(ctx, t, fields)
		if err != nil {
			return errorResponse(field, err)
		}
		return dataResponse(field, exportRecord(rec, relatedDepth))

	default:
		return errorResponse(op, fmt.Errorf("unknown operation %q (expected query, create, delete, search or types)", op))
	}
}

func dataResponse(field string, v any) map[string]any {
	return map[string]any{"data": map[string]any{field: v}}
}

func errorResponse(field string, err error) map[string]any {
	return map[string]any{"errors": gqlerror.List{resolver.FieldError(field, err)}}
}

func init() {
	shellCmd.Flags().BoolVarP(&shellWatch, "watch", "w", false, "Reseed the store when the dataset file changes")
	rootCmd.AddCommand(shellCmd)
}
