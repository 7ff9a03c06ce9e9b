// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/kubestrap/kubestrap/internal/config"
	"github.com/kubestrap/kubestrap/internal/registry"
	"github.com/kubestrap/kubestrap/internal/script"
	"github.com/kubestrap/kubestrap/internal/state"
	"github.com/kubestrap/kubestrap/internal/tui"
)

// harness wires a Runner around a scripted registry whose handlers record
// their invocations instead of shelling out.
type harness struct {
	runner    *Runner
	store     *state.Store
	installed []string
	removed   []string
	failOn    map[registry.Name]error
}

func newHarness(t *testing.T, dryRun bool, prompt tui.Prompter) *harness {
	t.Helper()
	h := &harness{failOn: make(map[registry.Name]error)}

	reg := registry.New()
	add := func(name registry.Name, requires ...registry.Name) {
		err := reg.Register(registry.Module{
			Name:     name,
			Requires: requires,
			Handler: func(_ context.Context, _ *registry.Runtime) error {
				if err := h.failOn[name]; err != nil {
					return err
				}
				h.installed = append(h.installed, string(name))
				return nil
			},
			Uninstall: func(_ context.Context, _ *registry.Runtime) error {
				h.removed = append(h.removed, string(name))
				return nil
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	add(registry.Essentials)
	add(registry.Network)
	add(registry.Firewall, registry.Network)
	add(registry.Kubernetes, registry.Essentials, registry.Network, registry.Firewall)
	add(registry.Calico, registry.Kubernetes)
	add(registry.Prometheus, registry.Kubernetes)
	add(registry.Grafana, registry.Kubernetes, registry.Prometheus)

	cfg := config.DefaultConfig()
	rt := &registry.Runtime{
		Config: &cfg,
		Engine: script.NewEngine(nil, &bytes.Buffer{}, &bytes.Buffer{}, nil, dryRun),
		Prompt: prompt,
		Logger: log.New(io.Discard),
	}
	h.store = state.New(t.TempDir(), log.New(io.Discard))
	h.runner = New(reg, h.store, rt, log.New(io.Discard))
	return h
}

func TestCheckDependencies_DryRunAlwaysPasses(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true, tui.AutoPrompter{Answer: true})

	// Empty state store, yet the dry-run check is satisfied.
	if err := h.runner.CheckDependencies(registry.Kubernetes); err != nil {
		t.Fatalf("dry-run dependency check must pass, got %v", err)
	}
}

func TestCheckDependencies_ReportsMissing(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false, tui.AutoPrompter{Answer: true})
	h.store.MarkInstalled("essentials")
	h.store.MarkInstalled("network")

	err := h.runner.CheckDependencies(registry.Kubernetes)
	var depErr *DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected DependencyError, got %v", err)
	}
	if !slices.Equal(depErr.Missing, []registry.Name{registry.Firewall}) {
		t.Errorf("expected firewall as sole missing prerequisite, got %v", depErr.Missing)
	}
}

func TestInstall_MarksOnSuccess(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false, tui.AutoPrompter{Answer: true})

	if err := h.runner.Install(context.Background(), registry.Essentials); err != nil {
		t.Fatal(err)
	}
	if !h.store.IsInstalled("essentials") {
		t.Error("expected marker after successful install")
	}
}

func TestInstall_DryRunDoesNotMark(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true, tui.AutoPrompter{Answer: true})

	if err := h.runner.Install(context.Background(), registry.Essentials); err != nil {
		t.Fatal(err)
	}
	if h.store.IsInstalled("essentials") {
		t.Error("dry-run must not record markers")
	}
}

func TestInstall_HandlerFailureDoesNotMark(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false, tui.AutoPrompter{Answer: true})
	h.failOn[registry.Essentials] = errors.New("apt exploded")

	if err := h.runner.Install(context.Background(), registry.Essentials); err == nil {
		t.Fatal("expected handler error to propagate")
	}
	if h.store.IsInstalled("essentials") {
		t.Error("failed install must not record a marker")
	}
}

func TestInstall_UnknownModule(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false, tui.AutoPrompter{Answer: true})

	err := h.runner.Install(context.Background(), registry.Name("nope"))
	if !errors.Is(err, registry.ErrUnknownModule) {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
	if len(h.installed) != 0 {
		t.Error("no handler may run for an unknown module")
	}
}

func TestUninstall_SafeWithoutDependents(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false, tui.AutoPrompter{Answer: false})
	h.store.MarkInstalled("grafana")

	if err := h.runner.Uninstall(context.Background(), registry.Grafana, false, false); err != nil {
		t.Fatal(err)
	}
	if h.store.IsInstalled("grafana") {
		t.Error("expected marker removed")
	}
}

func TestUninstall_DeclinedWhenUnsafe(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false, tui.AutoPrompter{Answer: false})
	for _, m := range []string{"kubernetes", "prometheus", "grafana"} {
		h.store.MarkInstalled(m)
	}

	err := h.runner.Uninstall(context.Background(), registry.Prometheus, false, false)
	if !errors.Is(err, registry.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if len(h.removed) != 0 {
		t.Error("nothing may be uninstalled after declining")
	}
}

func TestUninstall_ForceSkipsPrompt(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false, &tui.ScriptedPrompter{}) // any prompt would fail the test
	for _, m := range []string{"kubernetes", "prometheus", "grafana"} {
		h.store.MarkInstalled(m)
	}

	if err := h.runner.Uninstall(context.Background(), registry.Prometheus, true, false); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(h.removed, []string{"prometheus"}) {
		t.Errorf("force removes only the target, got %v", h.removed)
	}
}

func TestUninstall_CascadeRemovesDependentsFirst(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false, &tui.ScriptedPrompter{})
	for _, m := range []string{"essentials", "network", "firewall", "kubernetes", "prometheus", "grafana"} {
		h.store.MarkInstalled(m)
	}

	if err := h.runner.Uninstall(context.Background(), registry.Kubernetes, false, true); err != nil {
		t.Fatal(err)
	}
	// grafana depends on prometheus, so it must go first; kubernetes last.
	want := []string{"grafana", "prometheus", "kubernetes"}
	if !slices.Equal(h.removed, want) {
		t.Errorf("cascade order = %v, want %v", h.removed, want)
	}
	for _, m := range want {
		if h.store.IsInstalled(m) {
			t.Errorf("%s still marked installed after cascade", m)
		}
	}
}
