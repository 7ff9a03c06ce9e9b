// SPDX-License-Identifier: MPL-2.0

// Package runner dispatches module installs and uninstalls: handler lookup,
// the advisory dependency check, uninstall safety, and the bookkeeping in the
// state store.
package runner

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/kubestrap/kubestrap/internal/depgraph"
	"github.com/kubestrap/kubestrap/internal/registry"
	"github.com/kubestrap/kubestrap/internal/state"
)

type (
	// DependencyError reports prerequisites that are not installed.
	DependencyError struct {
		Module  registry.Name
		Missing []registry.Name
	}

	// Runner executes modules against the shared runtime and records their
	// completion.
	Runner struct {
		reg    *registry.Registry
		graph  *depgraph.Graph
		store  *state.Store
		rt     *registry.Runtime
		logger *log.Logger
	}
)

func (e *DependencyError) Error() string {
	names := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		names[i] = string(m)
	}
	return fmt.Sprintf("module %q requires modules that are not installed: %s",
		e.Module, strings.Join(names, ", "))
}

// New builds a Runner. The graph is derived from the registry once.
func New(reg *registry.Registry, store *state.Store, rt *registry.Runtime, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		reg:    reg,
		graph:  reg.Graph(),
		store:  store,
		rt:     rt,
		logger: logger,
	}
}

// Graph exposes the derived dependency graph for display commands.
func (r *Runner) Graph() *depgraph.Graph {
	return r.graph
}

// Store exposes the state store for display commands.
func (r *Runner) Store() *state.Store {
	return r.store
}

// CheckDependencies verifies that every prerequisite of name is installed.
// In dry-run mode missing prerequisites are downgraded to a warning and the
// check passes, so an operator can preview any module without prior steps.
func (r *Runner) CheckDependencies(name registry.Name) error {
	m, ok := r.reg.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", registry.ErrUnknownModule, name)
	}
	var missing []registry.Name
	for _, req := range m.Requires {
		if !r.store.IsInstalled(string(req)) {
			missing = append(missing, req)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if r.rt.DryRun() {
		r.logger.Warn("prerequisites not installed, continuing in dry-run",
			"module", name, "missing", missing)
		return nil
	}
	return &DependencyError{Module: name, Missing: missing}
}

// Install runs a module's handler and, on non-dry-run success, records the
// marker. A failed marker write is a warning, not a failure: the
// infrastructure is installed either way, only the bookkeeping is lost.
func (r *Runner) Install(ctx context.Context, name registry.Name) error {
	m, ok := r.reg.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", registry.ErrUnknownModule, name)
	}
	if err := r.CheckDependencies(name); err != nil {
		return err
	}

	r.logger.Info("installing module", "module", name, "dry_run", r.rt.DryRun())
	if err := m.Handler(ctx, r.rt); err != nil {
		return fmt.Errorf("module %q: %w", name, err)
	}

	if !r.rt.DryRun() {
		if outcome := r.store.MarkInstalled(string(name)); !outcome.Recorded {
			r.logger.Warn("module installed but not recorded", "module", name, "reason", outcome.Reason)
		}
	}
	return nil
}

// Uninstall removes a module. When installed dependents exist (anywhere in
// the transitive closure), the operator must either confirm, pass force, or
// pass cascade to have the dependents removed first in reverse install
// order.
func (r *Runner) Uninstall(ctx context.Context, name registry.Name, force, cascade bool) error {
	if _, ok := r.reg.Get(name); !ok {
		return fmt.Errorf("%w: %q", registry.ErrUnknownModule, name)
	}

	safe, affected := r.graph.UninstallSafety(string(name), r.store.IsInstalled)
	if !safe {
		switch {
		case cascade:
			for _, dep := range cascadeOrder(r.graph, affected) {
				if err := r.uninstallOne(ctx, registry.Name(dep)); err != nil {
					return err
				}
			}
		case force:
			r.logger.Warn("uninstalling despite installed dependents", "module", name, "affected", affected)
		default:
			ok, err := r.rt.Prompt.Confirm(
				fmt.Sprintf("Uninstall %s anyway?", name),
				fmt.Sprintf("Installed modules depend on it: %s. They will stop working.",
					strings.Join(affected, ", ")),
				false,
			)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("uninstall %s: %w", name, registry.ErrAborted)
			}
		}
	}

	return r.uninstallOne(ctx, name)
}

func (r *Runner) uninstallOne(ctx context.Context, name registry.Name) error {
	m, _ := r.reg.Get(name)
	r.logger.Info("uninstalling module", "module", name, "dry_run", r.rt.DryRun())
	if err := m.Uninstall(ctx, r.rt); err != nil {
		return fmt.Errorf("module %q: %w", name, err)
	}
	if !r.rt.DryRun() {
		if err := r.store.MarkUninstalled(string(name)); err != nil {
			r.logger.Warn("module uninstalled but marker not removed", "module", name, "err", err)
		}
	}
	return nil
}

// cascadeOrder sorts the affected dependents most-dependent-first so each
// module is removed before anything it requires.
func cascadeOrder(graph *depgraph.Graph, affected []string) []string {
	order, err := graph.InstallOrder()
	if err != nil {
		// The registry graph was already validated at startup; an error here
		// means affected came from somewhere else. Fall back to given order.
		return affected
	}
	out := make([]string, 0, len(affected))
	for _, name := range order {
		if slices.Contains(affected, name) {
			out = append(out, name)
		}
	}
	slices.Reverse(out)
	return out
}
