// SPDX-License-Identifier: MPL-2.0

// Package preflight verifies that the external tools a module shells out to
// exist on PATH and satisfy a version constraint before any system state is
// touched.
package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

type (
	// Requirement names an external binary and the version range a module
	// needs from it. Constraint is a semver range like ">= 1.29.0"; an empty
	// Constraint only checks presence.
	Requirement struct {
		// Binary is the executable looked up on PATH.
		Binary string
		// Args make the binary print its version (e.g. "version", "--client").
		Args []string
		// Constraint is a Masterminds semver range expression.
		Constraint string
	}

	// ToolNotFoundError reports a binary missing from PATH.
	ToolNotFoundError struct {
		Binary string
	}

	// VersionError reports a binary whose version does not satisfy the
	// requirement.
	VersionError struct {
		Binary     string
		Version    string
		Constraint string
	}
)

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("required tool %q not found on PATH", e.Binary)
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s version %s does not satisfy %q", e.Binary, e.Version, e.Constraint)
}

// semverPattern extracts the first version-looking token from tool output,
// tolerating "v" prefixes and surrounding text (kubeadm prints "v1.31.2",
// helm prints `version.BuildInfo{Version:"v3.15.1", ...}`).
var semverPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)

// Check verifies one requirement. It distinguishes "not installed"
// (ToolNotFoundError) from "wrong version" (VersionError) so callers can
// print actionable messages.
func Check(ctx context.Context, req Requirement) error {
	path, err := exec.LookPath(req.Binary)
	if err != nil {
		return &ToolNotFoundError{Binary: req.Binary}
	}
	if req.Constraint == "" {
		return nil
	}

	out, err := exec.CommandContext(ctx, path, req.Args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("query %s version: %w", req.Binary, err)
	}

	m := semverPattern.FindSubmatch(out)
	if m == nil {
		return fmt.Errorf("could not parse %s version from %q", req.Binary, string(out))
	}
	version, err := semver.NewVersion(string(m[1]))
	if err != nil {
		return fmt.Errorf("could not parse %s version %q: %w", req.Binary, string(m[1]), err)
	}

	constraint, err := semver.NewConstraint(req.Constraint)
	if err != nil {
		return fmt.Errorf("invalid constraint %q for %s: %w", req.Constraint, req.Binary, err)
	}
	if !constraint.Check(version) {
		return &VersionError{Binary: req.Binary, Version: version.String(), Constraint: req.Constraint}
	}
	return nil
}

// CheckAll runs every requirement and returns the first failure.
func CheckAll(ctx context.Context, reqs []Requirement) error {
	for _, req := range reqs {
		if err := Check(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
