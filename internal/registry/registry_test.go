// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"slices"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	mods := []Module{
		{Name: Essentials, Description: "base packages"},
		{Name: Network, Description: "kernel networking"},
		{Name: Firewall, Description: "ufw rules", Requires: []Name{Network}},
		{Name: Kubernetes, Description: "control plane", Requires: []Name{Essentials, Network, Firewall}},
		{Name: Calico, Description: "CNI", Requires: []Name{Kubernetes}},
	}
	for _, m := range mods {
		if err := r.Register(m); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestParseName(t *testing.T) {
	t.Parallel()
	r := testRegistry(t)

	name, err := r.ParseName("kubernetes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != Kubernetes {
		t.Errorf("got %q", name)
	}

	_, err = r.ParseName("postgres")
	if !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	t.Parallel()
	r := testRegistry(t)
	if err := r.Register(Module{Name: Calico}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestNames_DeclarationOrder(t *testing.T) {
	t.Parallel()
	r := testRegistry(t)
	want := []Name{Essentials, Network, Firewall, Kubernetes, Calico}
	if !slices.Equal(r.Names(), want) {
		t.Errorf("expected %v, got %v", want, r.Names())
	}
}

func TestGraph_ReflectsRequires(t *testing.T) {
	t.Parallel()
	g := testRegistry(t).Graph()

	deps := g.DependenciesOf("kubernetes")
	want := []string{"essentials", "network", "firewall"}
	if !slices.Equal(deps, want) {
		t.Errorf("expected %v, got %v", want, deps)
	}
	if !slices.Contains(g.DependentsOf("kubernetes"), "calico") {
		t.Errorf("expected calico among dependents of kubernetes")
	}
}
