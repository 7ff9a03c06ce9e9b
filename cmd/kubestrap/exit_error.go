// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kubestrap/kubestrap/internal/registry"
	"github.com/kubestrap/kubestrap/internal/runner"
)

// Exit codes. The CLI distinguishes operator cancellation and lookup
// failures from generic errors so scripts wrapping kubestrap can react.
const (
	ExitGenericFailure = 1
	ExitModuleNotFound = 2
	ExitDependency     = 3
	ExitCancelled      = 130
)

// ExitError signals a specific exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// wrapExit classifies err into an ExitError. nil passes through.
func wrapExit(err error) error {
	if err == nil {
		return nil
	}
	var depErr *runner.DependencyError
	switch {
	case errors.Is(err, registry.ErrAborted), errors.Is(err, context.Canceled):
		return &ExitError{Code: ExitCancelled, Err: err}
	case errors.Is(err, registry.ErrUnknownModule):
		return &ExitError{Code: ExitModuleNotFound, Err: err}
	case errors.As(err, &depErr):
		return &ExitError{Code: ExitDependency, Err: err}
	default:
		return &ExitError{Code: ExitGenericFailure, Err: err}
	}
}
