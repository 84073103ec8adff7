package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hmans/speako/internal/tui"
)

var browseWatch bool

var browseCmd = &cobra.Command{
	Use:   "browse [Type]",
	Short: "Browse records interactively",
	Long: `Opens an interactive browser over the loaded records. Tab switches between
types, enter shows a record with the records that reference it. With --watch,
the view follows changes to the dataset file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var typename string
		if len(args) == 1 {
			t, err := lookupType(args[0])
			if err != nil {
				return err
			}
			typename = t.Name
		}
		if !isTerminal(cmd.OutOrStdout()) {
			return fmt.Errorf("browse needs a terminal; use 'speako query' instead")
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if browseWatch {
			// Reload notices would draw over the browser.
			if err := watchDataset(ctx, io.Discard); err != nil {
				return err
			}
		}

		idx, err := searchIndex()
		if err != nil {
			return err
		}
		return tui.Run(ctx, core, idx, typename)
	},
}

func init() {
	browseCmd.Flags().BoolVarP(&browseWatch, "watch", "w", false, "Reload when the dataset file changes")
	rootCmd.AddCommand(browseCmd)
}
