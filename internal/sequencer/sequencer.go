// SPDX-License-Identifier: MPL-2.0

// Package sequencer drives the full-platform install: every module from the
// derived install order, one after another, with an operator decision point
// after each failure.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/kubestrap/kubestrap/internal/registry"
	"github.com/kubestrap/kubestrap/internal/runner"
	"github.com/kubestrap/kubestrap/internal/tui"
)

type (
	// Summary partitions the sequence outcome. A module appears in exactly
	// one list; modules after an early stop appear in none.
	Summary struct {
		Succeeded []registry.Name
		Failed    []registry.Name
		Skipped   []registry.Name
	}

	// Sequencer runs the whole registry in dependency order. There are no
	// retries and no rollback: whatever a failed step already applied to the
	// host stays applied.
	Sequencer struct {
		runner *runner.Runner
		reg    *registry.Registry
		prompt tui.Prompter
		logger *log.Logger
		out    io.Writer
		// interactive gates the per-failure "continue?" prompt; dry-run and
		// non-interactive runs continue past failures by default.
		interactive bool
	}
)

// New builds a Sequencer.
func New(r *runner.Runner, reg *registry.Registry, prompt tui.Prompter, logger *log.Logger, out io.Writer, interactive bool) *Sequencer {
	if logger == nil {
		logger = log.Default()
	}
	return &Sequencer{runner: r, reg: reg, prompt: prompt, logger: logger, out: out, interactive: interactive}
}

// RunAll installs every module in derived dependency order. Modules already
// recorded as installed are skipped unless redo is set. Operator cancellation
// aborts the remaining sequence immediately; any other failure asks the
// operator whether to continue (interactive mode only). The summary is
// always returned, alongside the error that stopped the run early, if any.
func (s *Sequencer) RunAll(ctx context.Context, redo bool) (*Summary, error) {
	order, err := s.runner.Graph().InstallOrder()
	if err != nil {
		return nil, fmt.Errorf("cannot derive install order: %w", err)
	}

	summary := &Summary{}
	defer s.render(summary)

	for i, stepName := range order {
		name := registry.Name(stepName)

		if ctx.Err() != nil {
			return summary, fmt.Errorf("install sequence: %w", registry.ErrAborted)
		}
		if !redo && s.runner.Store().IsInstalled(stepName) {
			summary.Skipped = append(summary.Skipped, name)
			continue
		}

		fmt.Fprintf(s.out, "%s %s (%d/%d)\n",
			tui.TitleStyle.Render("==>"), tui.ModuleStyle.Render(stepName), i+1, len(order))

		err := s.runner.Install(ctx, name)
		if err == nil {
			summary.Succeeded = append(summary.Succeeded, name)
			continue
		}

		// Operator cancellation stops everything, no further prompts.
		if errors.Is(err, registry.ErrAborted) || errors.Is(err, context.Canceled) {
			summary.Failed = append(summary.Failed, name)
			return summary, err
		}

		summary.Failed = append(summary.Failed, name)
		s.logger.Error("module failed", "module", name, "err", err)

		if s.interactive {
			cont, promptErr := s.prompt.Confirm(
				fmt.Sprintf("%s failed. Continue with the remaining modules?", name),
				err.Error(), false)
			if promptErr != nil {
				return summary, promptErr
			}
			if !cont {
				return summary, fmt.Errorf("stopped after %s: %w", name, err)
			}
		}
	}

	if len(summary.Failed) > 0 {
		return summary, fmt.Errorf("%d module(s) failed", len(summary.Failed))
	}
	return summary, nil
}

// render prints the partitioned summary.
func (s *Sequencer) render(summary *Summary) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, tui.TitleStyle.Render("Install summary"))
	for _, name := range summary.Succeeded {
		fmt.Fprintf(s.out, "  %s %s\n", tui.SuccessStyle.Render("✓"), name)
	}
	for _, name := range summary.Skipped {
		fmt.Fprintf(s.out, "  %s %s (already installed)\n", tui.SubtitleStyle.Render("-"), name)
	}
	for _, name := range summary.Failed {
		fmt.Fprintf(s.out, "  %s %s\n", tui.ErrorStyle.Render("✗"), name)
	}
}
