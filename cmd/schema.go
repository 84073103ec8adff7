package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var schemaSource bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema served for the loaded types",
	Long: `Prints the GraphQL schema derived from the type definitions: the types
themselves, a query field and a list field per type, create and delete
mutations, and the match inputs used for related-record predicates.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if schemaSource {
			fmt.Fprint(cmd.OutOrStdout(), core.Schema().Source())
			return nil
		}
		core.Schema().Format(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaSource, "source", false, "Print the type definitions as loaded")
	rootCmd.AddCommand(schemaCmd)
}
