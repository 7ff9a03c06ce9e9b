// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kubestrap/kubestrap/internal/tui"
)

var (
	// depsOrder prints the full derived install order instead of one
	// module's edges.
	depsOrder bool

	depsCmd = &cobra.Command{
		Use:   "deps [module]",
		Short: "Inspect module dependency edges and the derived install order",
		Long: `Deps shows a module's prerequisites, its direct dependents, and the full
set of modules that would stop working if it were removed. With --order it
prints the install order derived from the dependency graph instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return wrapExit(err)
			}
			out := cmd.OutOrStdout()
			graph := a.runner.Graph()

			if depsOrder || len(args) == 0 {
				order, err := graph.InstallOrder()
				if err != nil {
					return wrapExit(err)
				}
				fmt.Fprintln(out, tui.TitleStyle.Render("Install order"))
				for i, n := range order {
					fmt.Fprintf(out, "  %2d. %s\n", i+1, tui.ModuleStyle.Render(n))
				}
				return nil
			}

			name, err := a.reg.ParseName(args[0])
			if err != nil {
				return wrapExit(err)
			}
			n := string(name)

			fmt.Fprintln(out, tui.TitleStyle.Render(n))
			fmt.Fprintf(out, "  requires:             %s\n", joinOrNone(graph.DependenciesOf(n)))
			fmt.Fprintf(out, "  direct dependents:    %s\n", joinOrNone(graph.DependentsOf(n)))
			fmt.Fprintf(out, "  transitive dependents: %s\n", joinOrNone(graph.TransitiveDependentsOf(n)))

			safe, affected := graph.UninstallSafety(n, func(m string) bool {
				return a.store.IsInstalled(m)
			})
			if safe {
				fmt.Fprintf(out, "  uninstall: %s\n", tui.SuccessStyle.Render("safe, no installed module depends on it"))
			} else {
				fmt.Fprintf(out, "  uninstall: %s %s\n",
					tui.WarningStyle.Render("would break"), strings.Join(affected, ", "))
			}
			return nil
		},
	}
)

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return tui.SubtitleStyle.Render("(none)")
	}
	return strings.Join(names, ", ")
}

func init() {
	depsCmd.Flags().BoolVar(&depsOrder, "order", false, "print the derived install order")
}
