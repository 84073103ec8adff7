package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hmans/speako/internal/config"
	"github.com/hmans/speako/internal/dataset"
	"github.com/hmans/speako/internal/ui"
)

var (
	initSample bool
	initForce  bool
)

const (
	sampleSchemaName  = "albums.graphql"
	sampleDatasetName = "albums.yaml"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a default config file",
	Long: `Creates ` + config.ConfigFile + ` in the given directory (default: current directory).

Use --sample to also write the album sample's type definitions and dataset
and point the config at them, as a starting point for your own data.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := initProject(dir); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success.Render("Created ")+ui.Muted.Render(filepath.Join(dir, config.ConfigFile)))
		return nil
	},
}

// initProject writes the config file, and the sample files with
// --sample, into dir.
func initProject(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, config.ConfigFile)
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	c := config.Default()
	if initSample {
		files := map[string][]byte{
			sampleSchemaName:  []byte(dataset.SampleSchema()),
			sampleDatasetName: dataset.SampleDataset(),
		}
		for name, data := range files {
			if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
		}
		c.Data.Schema = sampleSchemaName
		c.Data.Dataset = sampleDatasetName
	}

	if err := c.Save(dir); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	return nil
}

func init() {
	initCmd.Flags().BoolVar(&initSample, "sample", false, "Also write the album sample files")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
