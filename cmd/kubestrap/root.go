// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for kubestrap.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/kubestrap/kubestrap/internal/tui"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging.
	verbose bool
	// cfgFile allows specifying a custom config file.
	cfgFile string
	// dryRun renders every script instead of executing it.
	dryRun bool
	// assumeYes answers every confirmation prompt affirmatively.
	assumeYes bool

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "kubestrap",
		Short: "Provision a Kubernetes platform on an Ubuntu server",
		Long: tui.TitleStyle.Render("kubestrap") + tui.SubtitleStyle.Render(" - Kubernetes platform provisioning") + `

kubestrap stands up a single-node Kubernetes platform by driving apt,
kubeadm, kubectl, helm, ufw, and wg through ordered provisioning modules.
Each module records completion in a marker directory, and the dependency
graph between modules derives the full install order and guards uninstalls.

` + tui.SubtitleStyle.Render("Examples:") + `
  kubestrap status                  Show which modules are installed
  kubestrap install --all           Install the whole platform in order
  kubestrap install kubernetes      Install one module
  kubestrap install calico --dry-run  Preview without executing
  kubestrap uninstall prometheus --cascade  Remove a module and its dependents
  kubestrap deps kubernetes         Inspect a module's dependency edges`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/kubestrap/config.cue)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "render scripts instead of executing them")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "assume yes on all prompts")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(depsCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
