// SPDX-License-Identifier: MPL-2.0

package state

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestMarkAndCheck(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir(), nil)

	if s.IsInstalled("kubernetes") {
		t.Error("fresh store should report nothing installed")
	}
	if out := s.MarkInstalled("kubernetes"); !out.Recorded {
		t.Fatalf("expected Recorded, got %+v", out)
	}
	if !s.IsInstalled("kubernetes") {
		t.Error("expected kubernetes installed after marking")
	}
	if err := s.MarkUninstalled("kubernetes"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsInstalled("kubernetes") {
		t.Error("expected kubernetes uninstalled after unmarking")
	}
}

func TestMark_UnregisteredName(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir(), nil)

	// The store is name-agnostic: it records whatever it is told.
	if out := s.MarkInstalled("not-a-real-module"); !out.Recorded {
		t.Fatalf("expected Recorded, got %+v", out)
	}
	if !s.IsInstalled("not-a-real-module") {
		t.Error("expected marker for unregistered name")
	}
}

func TestMark_Idempotent(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir(), nil)

	for range 2 {
		if out := s.MarkInstalled("calico"); !out.Recorded {
			t.Fatalf("expected Recorded, got %+v", out)
		}
	}
	if !s.IsInstalled("calico") {
		t.Error("expected calico installed")
	}

	// Unmarking a never-installed module is a no-op, not an error.
	if err := s.MarkUninstalled("never-installed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMarkInstalled_ReadOnlyDir(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	t.Parallel()

	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	s := New(filepath.Join(dir, "state"), nil)
	out := s.MarkInstalled("kubernetes")
	if out.Recorded {
		t.Error("expected Skipped outcome on read-only directory")
	}
	if out.Reason == "" {
		t.Error("expected a reason on skipped write")
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir(), nil)
	s.MarkInstalled("essentials")
	s.MarkInstalled("network")

	snap := s.Snapshot([]string{"essentials", "network", "firewall"})
	want := map[string]bool{"essentials": true, "network": true, "firewall": false}
	for k, v := range want {
		if snap[k] != v {
			t.Errorf("snapshot[%s] = %v, want %v", k, snap[k], v)
		}
	}
}

func TestResolveDir_EnvOverride(t *testing.T) {
	t.Setenv(EnvStateDir, "/custom/state/dir")
	if dir := ResolveDir(); dir != "/custom/state/dir" {
		t.Errorf("expected env override to win, got %s", dir)
	}
}

func TestResolveDir_XDGFallback(t *testing.T) {
	t.Setenv(EnvStateDir, "")
	xdg := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdg)

	dir := ResolveDir()
	// /var/lib/kubestrap wins only when the test can write there (root).
	if dir == "/var/lib/kubestrap" {
		t.Skip("running with write access to /var/lib")
	}
	if dir != filepath.Join(xdg, "kubestrap") {
		t.Errorf("expected XDG state fallback, got %s", dir)
	}
}

func TestMarkerContent(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir(), nil)
	s.MarkInstalled("vault")

	// Readers only check existence, but the marker carries "ok" for humans
	// poking at the directory.
	data, err := os.ReadFile(filepath.Join(s.Dir(), "vault.done"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ok\n" {
		t.Errorf("unexpected marker content %q", data)
	}
}
