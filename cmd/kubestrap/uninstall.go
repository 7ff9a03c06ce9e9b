// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubestrap/kubestrap/internal/tui"
)

var (
	// uninstallForce removes the module even when installed modules depend
	// on it, leaving them in place.
	uninstallForce bool
	// uninstallCascade removes the module's installed dependents first, in
	// reverse dependency order.
	uninstallCascade bool

	uninstallCmd = &cobra.Command{
		Use:   "uninstall <module>",
		Short: "Uninstall a provisioning module",
		Long: `Uninstall runs a module's removal script and clears its completion marker.
When other installed modules depend on it, the command asks for confirmation;
--cascade removes the dependents first and --force removes only the named
module regardless.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return wrapExit(err)
			}
			name, err := a.reg.ParseName(args[0])
			if err != nil {
				return wrapExit(err)
			}

			if err := a.runner.Uninstall(cmd.Context(), name, uninstallForce, uninstallCascade); err != nil {
				return wrapExit(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s uninstalled\n",
				tui.SuccessStyle.Render("✓"), tui.ModuleStyle.Render(string(name)))
			return nil
		},
	}
)

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallForce, "force", false, "uninstall even if installed modules depend on it")
	uninstallCmd.Flags().BoolVar(&uninstallCascade, "cascade", false, "also uninstall installed dependents, dependents first")
	uninstallCmd.MarkFlagsMutuallyExclusive("force", "cascade")
}
