package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(profilesCmd)
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Lists the built-in and configured profiles.",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Profile", "Description", "Columns", "Target", "Max Pages", "URL"})
		for _, p := range reg.List() {
			t.AppendRow(table.Row{p.Name, truncateCell(p.Description), len(p.Columns), p.TargetCount, p.MaxPages, p.URL})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
