// SPDX-License-Identifier: MPL-2.0

// Package registry defines the closed set of provisioning modules and the
// shared runtime their handlers execute against. Module names are validated
// at parse time; dispatch never sees an unknown name.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kubestrap/kubestrap/internal/config"
	"github.com/kubestrap/kubestrap/internal/depgraph"
	"github.com/kubestrap/kubestrap/internal/script"
	"github.com/kubestrap/kubestrap/internal/tui"
)

// Name identifies a provisioning module. The set of valid names is closed;
// ParseName is the only way to obtain one from user input.
type Name string

// The platform modules, in declaration order. Declaration order doubles as
// the tie break when the install order is derived from the graph.
const (
	Essentials  Name = "essentials"
	Network     Name = "network"
	Firewall    Name = "firewall"
	Hardening   Name = "hardening"
	WireGuard   Name = "wireguard"
	Kubernetes  Name = "kubernetes"
	Calico      Name = "calico"
	Helm        Name = "helm"
	CoreDNS     Name = "coredns"
	Storage     Name = "storage"
	Ingress     Name = "ingress"
	CertManager Name = "certmanager"
	Prometheus  Name = "prometheus"
	Grafana     Name = "grafana"
	Vault       Name = "vault"
	MinIO       Name = "minio"
)

var (
	// ErrUnknownModule is wrapped by errors for names outside the closed set.
	ErrUnknownModule = errors.New("unknown module")
	// ErrAborted is returned when the operator declines to proceed. The CLI
	// maps it to the cancelled exit code, distinct from generic failure.
	ErrAborted = errors.New("aborted by operator")
)

type (
	// ClusterWaiter observes cluster readiness after a module's shell phase.
	// Declared here, implemented by internal/kube, so handlers stay testable
	// without a cluster.
	ClusterWaiter interface {
		WaitForNodeReady(ctx context.Context, timeout time.Duration) error
		WaitForDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error
		WaitForDaemonSetReady(ctx context.Context, namespace, name string, timeout time.Duration) error
	}

	// Runtime is the shared execution context handed to every handler: the
	// resolved configuration, the script engine (which carries the dry-run
	// flag), the prompter, and a lazy cluster connection. It is assembled
	// once in the composition root.
	Runtime struct {
		Config *config.Config
		Engine *script.Engine
		Prompt tui.Prompter
		Logger *log.Logger
		// Cluster connects to the cluster on first use. The kubeconfig only
		// exists after the kubernetes module has run, so the connection
		// cannot be made up front.
		Cluster func() (ClusterWaiter, error)
	}

	// HandlerFunc performs a module's installation. Handlers are opaque to
	// the rest of the subsystem: they may prompt, run external commands, and
	// fail with an error.
	HandlerFunc func(ctx context.Context, rt *Runtime) error

	// Module is one named, independently invokable provisioning unit.
	Module struct {
		Name        Name
		Description string
		// Requires lists prerequisite modules in display order.
		Requires []Name
		Handler   HandlerFunc
		Uninstall HandlerFunc
	}

	// Registry is the static module table, built once at startup and passed
	// by reference.
	Registry struct {
		modules map[Name]*Module
		order   []Name
	}
)

// DryRun reports whether the runtime executes scripts or only renders them.
func (rt *Runtime) DryRun() bool {
	return rt.Engine.DryRun()
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{modules: make(map[Name]*Module)}
}

// Register adds a module. Registering the same name twice is a programming
// error and fails immediately.
func (r *Registry) Register(m Module) error {
	if _, exists := r.modules[m.Name]; exists {
		return fmt.Errorf("module %q registered twice", m.Name)
	}
	mod := m
	r.modules[m.Name] = &mod
	r.order = append(r.order, m.Name)
	return nil
}

// Get looks a module up by name.
func (r *Registry) Get(name Name) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Names returns all module names in declaration order.
func (r *Registry) Names() []Name {
	out := make([]Name, len(r.order))
	copy(out, r.order)
	return out
}

// ParseName validates user input against the registry. Unknown names are
// rejected here, before any dispatch or side effect.
func (r *Registry) ParseName(s string) (Name, error) {
	name := Name(s)
	if _, ok := r.modules[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, s)
	}
	return name, nil
}

// Graph builds the dependency graph from the registered modules.
func (r *Registry) Graph() *depgraph.Graph {
	g := depgraph.New()
	for _, name := range r.order {
		reqs := make([]string, 0, len(r.modules[name].Requires))
		for _, req := range r.modules[name].Requires {
			reqs = append(reqs, string(req))
		}
		g.AddModule(string(name), reqs...)
	}
	return g
}
