// SPDX-License-Identifier: MPL-2.0

package script

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestRun_ExitStatus(t *testing.T) {
	t.Parallel()
	var out, errOut bytes.Buffer
	e := NewEngine(nil, &out, &errOut, nil, false)

	err := e.Run(context.Background(), Script{Name: "fail", Body: "exit 3"})
	var exitErr *ExitStatusError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitStatusError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("expected exit code 3, got %d", exitErr.Code)
	}
}

func TestRun_SyntaxError(t *testing.T) {
	t.Parallel()
	e := NewEngine(nil, &bytes.Buffer{}, &bytes.Buffer{}, nil, false)

	if err := e.Run(context.Background(), Script{Name: "bad", Body: "if then fi"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRun_EnvInjection(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	e := NewEngine(nil, &out, &bytes.Buffer{}, nil, false)

	err := e.Run(context.Background(), Script{
		Name: "env",
		Body: `printf '%s' "$KUBESTRAP_POD_CIDR"`,
		Env:  map[string]string{"KUBESTRAP_POD_CIDR": "192.168.0.0/16"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "192.168.0.0/16" {
		t.Errorf("expected injected env in output, got %q", out.String())
	}
}

func TestCapture_TrimsOutput(t *testing.T) {
	t.Parallel()
	e := NewEngine(nil, &bytes.Buffer{}, &bytes.Buffer{}, nil, false)

	got, err := e.Capture(context.Background(), Script{Name: "cap", Body: "echo '  hello  '"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected trimmed output, got %q", got)
	}
}

func TestRun_DryRunRendersWithoutExecuting(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	e := NewEngine(nil, &out, &bytes.Buffer{}, nil, true)

	marker := t.TempDir() + "/side-effect"
	err := e.Run(context.Background(), Script{
		Name: "touch",
		Body: "touch " + marker,
		Env:  map[string]string{"KUBESTRAP_X": "1"},
	})
	if err != nil {
		t.Fatalf("dry-run must not fail: %v", err)
	}
	if !strings.Contains(out.String(), "touch "+marker) {
		t.Errorf("expected script body in dry-run output, got %q", out.String())
	}
	if !strings.Contains(out.String(), "KUBESTRAP_X=1") {
		t.Errorf("expected env in dry-run output, got %q", out.String())
	}
	// Dry-run never reaches the filesystem.
	if fileExists(marker) {
		t.Error("dry-run executed the script")
	}
}

func TestRun_Cancellation(t *testing.T) {
	t.Parallel()
	e := NewEngine(nil, &bytes.Buffer{}, &bytes.Buffer{}, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx, Script{Name: "sleepy", Body: "sleep 10"}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
