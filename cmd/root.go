// Package cmd implements the speako command line.
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hmans/speako/internal/config"
	"github.com/hmans/speako/internal/dataset"
	"github.com/hmans/speako/internal/logging"
	"github.com/hmans/speako/internal/recordstore"
	"github.com/hmans/speako/internal/resolver"
	"github.com/hmans/speako/internal/schema"
)

var (
	cfg    *config.Config
	core   *resolver.Resolver
	logger *logging.Logger

	configPath   string
	schemaPath   string
	dataPath     string
	idPolicyFlag string
	debugFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "speako",
	Short: "Query and mutate typed in-memory records with field predicates",
	Long: `speako serves typed records from an in-memory store. Types are declared as
GraphQL type definitions; records are seeded from a YAML dataset. Records are
selected with JSON predicates that constrain field values, including a field
of a related record.

Without --schema and --data, the built-in album sample is loaded.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for init command
		if cmd.Name() == "init" {
			return nil
		}

		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		logger, err = logging.Configure(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}

		core, err = buildResolver(cfg, logger)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./"+config.ConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Path to GraphQL type definitions")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "Path to YAML dataset")
	rootCmd.PersistentFlags().StringVar(&idPolicyFlag, "id-policy", "", "Identifier assignment (length, monotonic)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log every resolver call")
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	var (
		c   *config.Config
		err error
	)
	if configPath != "" {
		c, err = config.LoadFile(configPath)
	} else {
		c, err = config.Load(".")
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if schemaPath != "" {
		c.Data.Schema = schemaPath
	}
	if dataPath != "" {
		c.Data.Dataset = dataPath
	}
	if idPolicyFlag != "" {
		c.Store.IDPolicy = idPolicyFlag
	}
	if debugFlag {
		c.Log.Level = "debug"
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// loadSchema reads the configured type definitions, or the album sample.
func loadSchema(c *config.Config) (*schema.Schema, error) {
	if c.Data.Schema == "" {
		return schema.Parse("albums.graphql", dataset.SampleSchema())
	}
	data, err := os.ReadFile(c.Data.Schema)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return schema.Parse(c.Data.Schema, string(data))
}

// loadCollections reads the configured dataset. The album sample is used
// only together with the sample schema; a custom schema without a dataset
// starts empty.
func loadCollections(c *config.Config, sch *schema.Schema) (*dataset.Collections, error) {
	switch {
	case c.Data.Dataset != "":
		return dataset.LoadFile(c.Data.Dataset, sch)
	case c.Data.Schema == "":
		return dataset.LoadSample(sch)
	default:
		return dataset.Load(bytes.NewReader(nil), sch)
	}
}

// buildResolver loads schema and dataset and wires store and resolver.
func buildResolver(c *config.Config, log *logging.Logger) (*resolver.Resolver, error) {
	sch, err := loadSchema(c)
	if err != nil {
		return nil, err
	}

	collections, err := loadCollections(c, sch)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}

	policy, err := c.IDPolicy()
	if err != nil {
		return nil, err
	}
	store := recordstore.New(recordstore.WithIDPolicy(policy))
	collections.Apply(store)

	r, err := resolver.New(store, sch,
		resolver.WithLogger(log),
		resolver.WithDeletable(c.Resolver.Deletable...),
	)
	if err != nil {
		return nil, err
	}

	log.Debug("loaded",
		"types", strings.Join(r.Types(), ","),
		"id_policy", policy.String(),
	)
	return r, nil
}

// readFromStdin reads input from stdin if data is piped in.
func readFromStdin(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("checking stdin: %w", err)
		}
		// If stdin is a terminal (no pipe), return empty
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return "", nil
		}
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
