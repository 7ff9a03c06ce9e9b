// SPDX-License-Identifier: MPL-2.0

// Package script executes the shell snippets provisioning modules are made
// of. Scripts run through the mvdan/sh interpreter with the process
// environment plus injected KUBESTRAP_* variables; external tools (apt,
// kubectl, helm, kubeadm, wg) are exec'd by the interpreter as usual. In
// dry-run mode the script is rendered instead of executed.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/kubestrap/kubestrap/internal/tui"
)

type (
	// Script is one executable shell snippet belonging to a module.
	Script struct {
		// Name labels the snippet in logs and dry-run output.
		Name string
		// Body is the shell source.
		Body string
		// Env holds extra variables exported to the script, on top of the
		// process environment.
		Env map[string]string
	}

	// ExitStatusError reports a script that ran to completion with a non-zero
	// exit status.
	ExitStatusError struct {
		Script string
		Code   int
	}

	// Engine runs Scripts. Construct it once and inject it into handlers.
	Engine struct {
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
		logger *log.Logger
		dryRun bool
	}
)

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("script %q exited with status %d", e.Script, e.Code)
}

// NewEngine builds an Engine writing to the given streams. dryRun switches
// every Run into render-only mode.
func NewEngine(stdin io.Reader, stdout, stderr io.Writer, logger *log.Logger, dryRun bool) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{stdin: stdin, stdout: stdout, stderr: stderr, logger: logger, dryRun: dryRun}
}

// DryRun reports whether the engine renders scripts instead of executing them.
func (e *Engine) DryRun() bool {
	return e.dryRun
}

// Run executes (or, in dry-run mode, renders) the script. The returned error
// is an *ExitStatusError for non-zero exits, a context error when cancelled,
// or a parse error for invalid shell source.
func (e *Engine) Run(ctx context.Context, s Script) error {
	if e.dryRun {
		e.render(s)
		return nil
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(s.Body), s.Name)
	if err != nil {
		return fmt.Errorf("script %q syntax error: %w", s.Name, err)
	}

	e.logger.Debug("running script", "name", s.Name)

	runner, err := interp.New(
		interp.Env(expand.ListEnviron(environWith(s.Env)...)),
		interp.StdIO(e.stdin, e.stdout, e.stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &ExitStatusError{Script: s.Name, Code: int(exitStatus)}
		}
		return fmt.Errorf("script %q failed: %w", s.Name, err)
	}
	return nil
}

// Capture executes the script and returns its trimmed stdout, for snippets
// whose output feeds later steps (tokens, versions, generated keys). Dry-run
// renders the script and returns empty output.
func (e *Engine) Capture(ctx context.Context, s Script) (string, error) {
	if e.dryRun {
		e.render(s)
		return "", nil
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(s.Body), s.Name)
	if err != nil {
		return "", fmt.Errorf("script %q syntax error: %w", s.Name, err)
	}

	var stdout bytes.Buffer
	runner, err := interp.New(
		interp.Env(expand.ListEnviron(environWith(s.Env)...)),
		interp.StdIO(nil, &stdout, e.stderr),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return "", &ExitStatusError{Script: s.Name, Code: int(exitStatus)}
		}
		return "", fmt.Errorf("script %q failed: %w", s.Name, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// render prints what would run: name, injected environment, script body.
func (e *Engine) render(s Script) {
	fmt.Fprintf(e.stdout, "%s %s\n", tui.WarningStyle.Render("[dry-run]"), tui.ModuleStyle.Render(s.Name))
	if len(s.Env) > 0 {
		keys := make([]string, 0, len(s.Env))
		for k := range s.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(e.stdout, "  %s=%s\n", k, s.Env[k])
		}
	}
	for line := range strings.SplitSeq(strings.TrimSpace(s.Body), "\n") {
		fmt.Fprintf(e.stdout, "    %s\n", line)
	}
}

// environWith appends the script's extra variables to the process environment.
func environWith(extra map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
