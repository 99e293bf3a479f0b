/*
Copyright © 2026 Loam <oss@loamhq.dev>
*/
package cmd

import (
	"github.com/loamhq/ctxtidy/internal/verbs"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the registered mutation actions",
	Long: `Actions lists every registered verb with its target, risk tier, and a
short description. The id column is what --select accepts.`,
	Run: func(cmd *cobra.Command, _ []string) {
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"ID", "Target", "Verb", "Risk", "Description"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)

		for _, v := range verbs.Default().All() {
			table.Append([]string{
				verbs.ActionID(v),
				v.TargetName(),
				v.Name(),
				string(v.Risk()),
				v.Describe(),
			})
		}
		table.Render()
	},
}
