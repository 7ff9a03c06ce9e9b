// SPDX-License-Identifier: MPL-2.0

// Package state persists which modules have completed as marker files, one
// `<module>.done` per module under a resolved state directory. Existence of
// the marker is the only signal; file content is ignored by readers.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// EnvStateDir overrides the state directory resolution when set.
const EnvStateDir = "KUBESTRAP_STATE_DIR"

// markerSuffix is appended to the module name to form the marker file name.
const markerSuffix = ".done"

type (
	// Store records installation facts as marker files. Construct it once with
	// New or Open and pass it by reference; the resolved directory is fixed
	// for the lifetime of the value.
	Store struct {
		dir    string
		logger *log.Logger
	}

	// Outcome reports whether a marker write actually happened. Losing a
	// marker only affects dependency bookkeeping and the status display, not
	// the infrastructure the module installed, so write failures degrade to
	// Skipped instead of failing the operation. Callers that care (and tests)
	// can still assert on it.
	Outcome struct {
		// Recorded is true when the marker file exists after the call.
		Recorded bool
		// Reason explains why the write was skipped; empty when Recorded.
		Reason string
	}
)

// ResolveDir picks the state directory: the KUBESTRAP_STATE_DIR environment
// override, else /var/lib/kubestrap, else $XDG_STATE_HOME/kubestrap
// (defaulting to ~/.local/state/kubestrap), else a kubestrap directory under
// the system temp dir. The first candidate that can be created and written
// wins. The env override wins even when not writable, so a misconfigured
// override surfaces as skipped writes instead of silently landing elsewhere.
func ResolveDir() string {
	if dir := os.Getenv(EnvStateDir); dir != "" {
		return dir
	}

	candidates := []string{"/var/lib/kubestrap"}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "kubestrap"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".local", "state", "kubestrap"))
	}
	candidates = append(candidates, filepath.Join(os.TempDir(), "kubestrap"))

	for _, dir := range candidates {
		if dirWritable(dir) {
			return dir
		}
	}
	// Last resort: return the temp candidate and let writes degrade.
	return candidates[len(candidates)-1]
}

// dirWritable reports whether dir exists (or can be created) and accepts a
// file write, probed with a create-and-remove round trip.
func dirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return true
}

// Open constructs a Store rooted at the resolved default directory.
func Open(logger *log.Logger) *Store {
	return New(ResolveDir(), logger)
}

// New constructs a Store rooted at dir. A nil logger falls back to the
// package default logger.
func New(dir string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the resolved state directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) markerPath(module string) string {
	return filepath.Join(s.dir, module+markerSuffix)
}

// MarkInstalled records that module completed. Idempotent: re-marking an
// installed module rewrites the marker and is still Recorded. Any filesystem
// failure is degraded to a Skipped outcome with a warning.
func (s *Store) MarkInstalled(module string) Outcome {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Warn("state directory unavailable, installation not recorded",
			"module", module, "dir", s.dir, "err", err)
		return Outcome{Reason: fmt.Sprintf("create state dir: %v", err)}
	}
	if err := os.WriteFile(s.markerPath(module), []byte("ok\n"), 0o644); err != nil {
		s.logger.Warn("could not write marker, installation not recorded",
			"module", module, "dir", s.dir, "err", err)
		return Outcome{Reason: fmt.Sprintf("write marker: %v", err)}
	}
	return Outcome{Recorded: true}
}

// MarkUninstalled removes the marker for module. Removing a marker that does
// not exist is a no-op.
func (s *Store) MarkUninstalled(module string) error {
	err := os.Remove(s.markerPath(module))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove marker for %s: %w", module, err)
	}
	return nil
}

// IsInstalled reports whether module has a marker. The store does not
// validate module names against the registry.
func (s *Store) IsInstalled(module string) bool {
	_, err := os.Stat(s.markerPath(module))
	return err == nil
}

// Snapshot checks every given module and returns name -> installed, used to
// render the status table.
func (s *Store) Snapshot(modules []string) map[string]bool {
	out := make(map[string]bool, len(modules))
	for _, m := range modules {
		out[m] = s.IsInstalled(m)
	}
	return out
}
