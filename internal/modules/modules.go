// SPDX-License-Identifier: MPL-2.0

// Package modules declares the provisioning modules: what each one requires,
// how it installs, and how it uninstalls. Handlers are shell snippets run
// through the script engine, plus readiness waits against the cluster once
// one exists.
package modules

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kubestrap/kubestrap/internal/registry"
	"github.com/kubestrap/kubestrap/internal/script"
)

// New assembles the module registry. Declaration order here is the tie-break
// order for the derived install sequence.
func New() (*registry.Registry, error) {
	r := registry.New()
	for _, m := range []registry.Module{
		{
			Name:        registry.Essentials,
			Description: "Base packages, apt hygiene, and tool preflight",
			Handler:     installEssentials,
			Uninstall:   uninstallEssentials,
		},
		{
			Name:        registry.Network,
			Description: "Kernel modules and sysctls for container networking",
			Handler:     installNetwork,
			Uninstall:   uninstallNetwork,
		},
		{
			Name:        registry.Firewall,
			Description: "ufw rules for SSH, the API server, and the CNI",
			Requires:    []registry.Name{registry.Network},
			Handler:     installFirewall,
			Uninstall:   uninstallFirewall,
		},
		{
			Name:        registry.Hardening,
			Description: "sshd lockdown, fail2ban, unattended upgrades",
			Requires:    []registry.Name{registry.Essentials},
			Handler:     installHardening,
			Uninstall:   uninstallHardening,
		},
		{
			Name:        registry.WireGuard,
			Description: "WireGuard VPN interface for operator access",
			Requires:    []registry.Name{registry.Network},
			Handler:     installWireGuard,
			Uninstall:   uninstallWireGuard,
		},
		{
			Name:        registry.Kubernetes,
			Description: "kubeadm single-node control plane",
			Requires:    []registry.Name{registry.Essentials, registry.Network, registry.Firewall},
			Handler:     installKubernetes,
			Uninstall:   uninstallKubernetes,
		},
		{
			Name:        registry.Calico,
			Description: "Calico CNI",
			Requires:    []registry.Name{registry.Kubernetes},
			Handler:     installCalico,
			Uninstall:   uninstallCalico,
		},
		{
			Name:        registry.Helm,
			Description: "Helm package manager and chart repositories",
			Requires:    []registry.Name{registry.Kubernetes},
			Handler:     installHelm,
			Uninstall:   uninstallHelm,
		},
		{
			Name:        registry.CoreDNS,
			Description: "CoreDNS forwarder and cache tuning",
			Requires:    []registry.Name{registry.Kubernetes},
			Handler:     installCoreDNS,
			Uninstall:   uninstallCoreDNS,
		},
		{
			Name:        registry.Storage,
			Description: "local-path dynamic volume provisioner",
			Requires:    []registry.Name{registry.Kubernetes, registry.Helm},
			Handler:     installStorage,
			Uninstall:   uninstallStorage,
		},
		{
			Name:        registry.Ingress,
			Description: "Kong ingress controller",
			Requires:    []registry.Name{registry.Kubernetes, registry.Helm},
			Handler:     installIngress,
			Uninstall:   uninstallIngress,
		},
		{
			Name:        registry.CertManager,
			Description: "cert-manager with a self-signed cluster issuer",
			Requires:    []registry.Name{registry.Kubernetes, registry.Helm},
			Handler:     installCertManager,
			Uninstall:   uninstallCertManager,
		},
		{
			Name:        registry.Prometheus,
			Description: "Prometheus server and node exporter",
			Requires:    []registry.Name{registry.Kubernetes, registry.Helm},
			Handler:     installPrometheus,
			Uninstall:   uninstallPrometheus,
		},
		{
			Name:        registry.Grafana,
			Description: "Grafana wired to the Prometheus datasource",
			Requires:    []registry.Name{registry.Kubernetes, registry.Prometheus},
			Handler:     installGrafana,
			Uninstall:   uninstallGrafana,
		},
		{
			Name:        registry.Vault,
			Description: "HashiCorp Vault for platform secrets",
			Requires:    []registry.Name{registry.Kubernetes, registry.Helm, registry.Storage},
			Handler:     installVault,
			Uninstall:   uninstallVault,
		},
		{
			Name:        registry.MinIO,
			Description: "MinIO object storage",
			Requires:    []registry.Name{registry.Kubernetes, registry.Helm, registry.Storage},
			Handler:     installMinIO,
			Uninstall:   uninstallMinIO,
		},
	} {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// run executes one named shell snippet through the module runtime.
func run(ctx context.Context, rt *registry.Runtime, name, body string, env map[string]string) error {
	return rt.Engine.Run(ctx, script.Script{Name: name, Body: body, Env: env})
}

// confirm asks the operator to proceed; declining aborts the module with
// ErrAborted so the CLI exits with the cancelled status.
func confirm(rt *registry.Runtime, title, description string) error {
	ok, err := rt.Prompt.Confirm(title, description, true)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", title, registry.ErrAborted)
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// waitCluster runs a readiness wait unless the engine is in dry-run mode, in
// which case there is no cluster to observe.
func waitCluster(rt *registry.Runtime, fn func(registry.ClusterWaiter) error) error {
	if rt.DryRun() {
		rt.Logger.Debug("skipping readiness wait in dry-run")
		return nil
	}
	cluster, err := rt.Cluster()
	if err != nil {
		return err
	}
	return fn(cluster)
}
