package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hmans/speako/internal/ui"
)

var typesJSON bool

// typeInfo is the JSON form of a served type.
type typeInfo struct {
	Name      string   `json:"name"`
	Records   int      `json:"records"`
	Deletable bool     `json:"deletable"`
	Fields    []string `json:"fields"`
	Related   []string `json:"related,omitempty"`
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the served types and their record counts",
	Long: `Lists every served type with its record count and fields. Types left out of
[resolver] deletable in speako.toml are marked read-only.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTypes(cmd.OutOrStdout(), typesJSON)
	},
}

func collectTypes() ([]typeInfo, error) {
	var infos []typeInfo
	for _, name := range core.Types() {
		t, _ := core.Schema().Type(name)
		n, err := core.Store().Len(name)
		if err != nil {
			return nil, err
		}
		info := typeInfo{Name: name, Records: n, Deletable: cfg.IsDeletable(name)}
		for _, f := range t.Fields {
			info.Fields = append(info.Fields, f.Name)
		}
		for _, f := range t.RelatedFields() {
			info.Related = append(info.Related, f.Name+":"+f.TypeName)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func runTypes(w io.Writer, asJSON bool) error {
	infos, err := collectTypes()
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, infos)
	}

	nameStyle := lipgloss.NewStyle().Width(16)
	countStyle := lipgloss.NewStyle().Width(12)
	flagStyle := lipgloss.NewStyle().Width(11)
	for _, info := range infos {
		flag := ""
		if !info.Deletable {
			flag = ui.Warning.Render("read-only")
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
			nameStyle.Render(ui.ID.Render(info.Name)),
			countStyle.Render(ui.RenderCount(info.Records)),
			flagStyle.Render(flag),
			ui.Muted.Render(strings.Join(info.Fields, " ")),
		))
	}
	return nil
}

func init() {
	typesCmd.Flags().BoolVar(&typesJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(typesCmd)
}
