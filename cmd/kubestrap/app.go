// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/kubestrap/kubestrap/internal/config"
	"github.com/kubestrap/kubestrap/internal/kube"
	"github.com/kubestrap/kubestrap/internal/modules"
	"github.com/kubestrap/kubestrap/internal/registry"
	"github.com/kubestrap/kubestrap/internal/runner"
	"github.com/kubestrap/kubestrap/internal/script"
	"github.com/kubestrap/kubestrap/internal/state"
	"github.com/kubestrap/kubestrap/internal/tui"
)

// app is the assembled dependency set every command runs against. Nothing in
// the internal packages reads process-wide state; the wiring happens here,
// once per invocation.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	store  *state.Store
	reg    *registry.Registry
	rt     *registry.Runtime
	runner *runner.Runner
	// interactive gates confirmation prompts. Dry-run never prompts: a
	// preview should complete without operator input.
	interactive bool
}

// newApp builds the application: config, logger, state store, module
// registry, and runner. It fails fast on an invalid module table so a broken
// dependency declaration surfaces before any command logic runs.
func newApp() (*app, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		if cfgFile != "" {
			return nil, err
		}
		// A broken default-location config file should not brick status or
		// dry-run; fall back to defaults loudly.
		log.Warn("ignoring invalid config file", "err", err)
		defaults := config.DefaultConfig()
		cfg = &defaults
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "kubestrap"})
	if verbose || cfg.UI.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	var store *state.Store
	if cfg.StateDir != "" {
		store = state.New(cfg.StateDir, logger)
	} else {
		store = state.Open(logger)
	}
	logger.Debug("state store", "dir", store.Dir())

	reg, err := modules.New()
	if err != nil {
		return nil, fmt.Errorf("building module registry: %w", err)
	}
	if _, err := reg.Graph().InstallOrder(); err != nil {
		return nil, fmt.Errorf("invalid module dependency graph: %w", err)
	}

	nonInteractive := assumeYes || cfg.UI.NonInteractive
	var prompt tui.Prompter
	if nonInteractive {
		prompt = tui.AutoPrompter{Answer: true}
	} else {
		prompt = tui.TerminalPrompter{}
	}

	rt := &registry.Runtime{
		Config:  cfg,
		Engine:  script.NewEngine(os.Stdin, os.Stdout, os.Stderr, logger, dryRun),
		Prompt:  prompt,
		Logger:  logger,
		Cluster: clusterFactory(cfg.Kubeconfig),
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		reg:         reg,
		rt:          rt,
		runner:      runner.New(reg, store, rt, logger),
		interactive: !nonInteractive && !dryRun,
	}, nil
}

// clusterFactory returns a lazy, memoized cluster connection. The kubeconfig
// only exists once the kubernetes module has run, so connecting eagerly in
// newApp would break every earlier module.
func clusterFactory(kubeconfig string) func() (registry.ClusterWaiter, error) {
	var (
		once   sync.Once
		client *kube.Client
		err    error
	)
	return func() (registry.ClusterWaiter, error) {
		once.Do(func() {
			client, err = kube.Connect(kubeconfig)
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
