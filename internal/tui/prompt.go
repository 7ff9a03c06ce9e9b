// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

type (
	// Prompter asks the operator yes/no questions. Handlers and the sequencer
	// depend on this interface so non-interactive runs and tests can swap the
	// terminal out.
	Prompter interface {
		// Confirm asks a yes/no question and returns the answer. description
		// may be empty.
		Confirm(title, description string, defaultYes bool) (bool, error)
	}

	// TerminalPrompter renders confirmation prompts with huh.
	TerminalPrompter struct{}

	// AutoPrompter answers every prompt without rendering anything, used for
	// --yes and non-interactive runs.
	AutoPrompter struct {
		// Answer is returned for every Confirm call.
		Answer bool
	}

	// ScriptedPrompter replays canned answers in order; tests use it to drive
	// the "continue?" flow deterministically.
	ScriptedPrompter struct {
		Answers []bool
		next    int
	}
)

// Confirm implements Prompter using a huh confirm field on the real terminal.
func (TerminalPrompter) Confirm(title, description string, defaultYes bool) (bool, error) {
	answer := defaultYes
	confirm := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&answer)
	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return answer, nil
}

// Confirm implements Prompter.
func (p AutoPrompter) Confirm(string, string, bool) (bool, error) {
	return p.Answer, nil
}

// Confirm implements Prompter. Running out of scripted answers is an error so
// a test that prompts more than expected fails loudly.
func (p *ScriptedPrompter) Confirm(title, _ string, _ bool) (bool, error) {
	if p.next >= len(p.Answers) {
		return false, fmt.Errorf("unexpected prompt: %q", title)
	}
	answer := p.Answers[p.next]
	p.next++
	return answer, nil
}
