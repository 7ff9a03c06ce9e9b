// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kubestrap/kubestrap/internal/sequencer"
	"github.com/kubestrap/kubestrap/internal/tui"
)

var (
	// installAll runs every module in derived dependency order.
	installAll bool
	// installRedo reruns modules already recorded as installed.
	installRedo bool

	installCmd = &cobra.Command{
		Use:   "install [module]",
		Short: "Install a provisioning module (or the whole platform with --all)",
		Long: `Install runs a module's provisioning script and records completion in the
state directory. Prerequisite modules must already be installed; use --all to
install the entire platform in dependency order instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return wrapExit(err)
			}

			if installAll {
				if len(args) > 0 {
					return wrapExit(fmt.Errorf("--all takes no module argument"))
				}
				seq := sequencer.New(a.runner, a.reg, a.rt.Prompt, a.logger, os.Stdout, a.interactive)
				_, err := seq.RunAll(cmd.Context(), installRedo)
				return wrapExit(err)
			}

			if len(args) == 0 {
				return wrapExit(fmt.Errorf("specify a module to install, or --all"))
			}
			name, err := a.reg.ParseName(args[0])
			if err != nil {
				return wrapExit(err)
			}

			if !installRedo && a.store.IsInstalled(string(name)) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s is already installed (use --redo to rerun)\n",
					tui.WarningStyle.Render("!"), tui.ModuleStyle.Render(string(name)))
				return nil
			}

			if err := a.runner.Install(cmd.Context(), name); err != nil {
				return wrapExit(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s installed\n",
				tui.SuccessStyle.Render("✓"), tui.ModuleStyle.Render(string(name)))
			return nil
		},
	}
)

func init() {
	installCmd.Flags().BoolVar(&installAll, "all", false, "install every module in dependency order")
	installCmd.Flags().BoolVar(&installRedo, "redo", false, "rerun modules already recorded as installed")
}
