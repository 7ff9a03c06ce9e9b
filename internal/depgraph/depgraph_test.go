// SPDX-License-Identifier: MPL-2.0

package depgraph

import (
	"errors"
	"slices"
	"testing"
)

func TestInstallOrder_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New()
	order, err := g.InstallOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestInstallOrder_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// C requires B, B requires A.
	g.AddModule("A")
	g.AddModule("B", "A")
	g.AddModule("C", "B")

	order, err := g.InstallOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"A", "B", "C"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestInstallOrder_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddModule("A")
	g.AddModule("B", "A")
	g.AddModule("C", "A")
	g.AddModule("D", "B", "C")

	order, err := g.InstallOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	for _, edge := range [][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}} {
		if pos[edge[0]] > pos[edge[1]] {
			t.Errorf("%s must come before %s in %v", edge[0], edge[1], order)
		}
	}
	// Ties broken by declaration order.
	if pos["B"] > pos["C"] {
		t.Errorf("B declared before C, expected B first in %v", order)
	}
}

func TestInstallOrder_Cycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddModule("A", "C")
	g.AddModule("B", "A")
	g.AddModule("C", "B")

	_, err := g.InstallOrder()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if len(cycleErr.Cycle) == 0 {
		t.Error("expected cycle members to be reported")
	}
}

func TestDependenciesOf_UnknownModule(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddModule("A")
	if deps := g.DependenciesOf("nope"); len(deps) != 0 {
		t.Errorf("expected empty, got %v", deps)
	}
	if deps := g.DependentsOf("nope"); len(deps) != 0 {
		t.Errorf("expected empty, got %v", deps)
	}
}

func TestDependentsOf_ReverseLookup(t *testing.T) {
	t.Parallel()
	g := platformGraph()

	deps := g.DependentsOf("prometheus")
	if !slices.Contains(deps, "grafana") {
		t.Errorf("expected grafana in dependents of prometheus, got %v", deps)
	}
}

func TestTransitiveDependentsOf_TwoHops(t *testing.T) {
	t.Parallel()
	g := platformGraph()

	// grafana depends on kubernetes only through prometheus's sibling edge,
	// but calico and prometheus depend on kubernetes directly.
	deps := g.TransitiveDependentsOf("kubernetes")
	for _, want := range []string{"calico", "prometheus", "grafana"} {
		if !slices.Contains(deps, want) {
			t.Errorf("expected %s in transitive dependents of kubernetes, got %v", want, deps)
		}
	}

	// essentials is two hops from grafana.
	deps = g.TransitiveDependentsOf("essentials")
	if !slices.Contains(deps, "grafana") {
		t.Errorf("expected grafana in transitive dependents of essentials, got %v", deps)
	}
}

func TestUninstallSafety_NoDependents(t *testing.T) {
	t.Parallel()
	g := platformGraph()

	everything := func(string) bool { return true }
	safe, affected := g.UninstallSafety("grafana", everything)
	if !safe {
		t.Error("grafana has no dependents, expected safe")
	}
	if len(affected) != 0 {
		t.Errorf("expected no affected modules, got %v", affected)
	}
}

func TestUninstallSafety_DependentsNotInstalled(t *testing.T) {
	t.Parallel()
	g := platformGraph()

	nothing := func(string) bool { return false }
	safe, affected := g.UninstallSafety("kubernetes", nothing)
	if !safe {
		t.Errorf("no dependents installed, expected safe, affected=%v", affected)
	}
}

func TestUninstallSafety_InstalledDependent(t *testing.T) {
	t.Parallel()
	g := platformGraph()

	installed := map[string]bool{"kubernetes": true, "prometheus": true, "grafana": true}
	safe, affected := g.UninstallSafety("prometheus", func(n string) bool { return installed[n] })
	if safe {
		t.Error("grafana is installed and depends on prometheus, expected unsafe")
	}
	if !slices.Contains(affected, "grafana") {
		t.Errorf("expected grafana in affected, got %v", affected)
	}
}

// platformGraph builds a small slice of the real registry shape.
func platformGraph() *Graph {
	g := New()
	g.AddModule("essentials")
	g.AddModule("network")
	g.AddModule("firewall", "network")
	g.AddModule("kubernetes", "essentials", "network", "firewall")
	g.AddModule("calico", "kubernetes")
	g.AddModule("prometheus", "kubernetes")
	g.AddModule("grafana", "kubernetes", "prometheus")
	return g
}
