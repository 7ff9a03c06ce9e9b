// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubestrap/kubestrap/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which modules are installed",
	Long: `Status lists every module in declaration order with its recorded install
state, read from the marker directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return wrapExit(err)
		}
		out := cmd.OutOrStdout()

		names := a.reg.Names()
		plain := make([]string, len(names))
		width := 0
		for i, n := range names {
			plain[i] = string(n)
			if len(plain[i]) > width {
				width = len(plain[i])
			}
		}
		snapshot := a.store.Snapshot(plain)

		fmt.Fprintf(out, "%s (state dir: %s)\n\n",
			tui.TitleStyle.Render("Module status"), a.store.Dir())
		installed := 0
		for _, n := range names {
			mod, _ := a.reg.Get(n)
			mark := tui.SubtitleStyle.Render("-")
			label := "not installed"
			if snapshot[string(n)] {
				mark = tui.SuccessStyle.Render("✓")
				label = "installed"
				installed++
			}
			fmt.Fprintf(out, "  %s %-*s  %-13s %s\n",
				mark, width, string(n), label, tui.SubtitleStyle.Render(mod.Description))
		}
		fmt.Fprintf(out, "\n%d of %d modules installed\n", installed, len(names))
		return nil
	},
}
