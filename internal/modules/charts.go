// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"context"

	"github.com/kubestrap/kubestrap/internal/preflight"
	"github.com/kubestrap/kubestrap/internal/registry"
)

func installHelm(ctx context.Context, rt *registry.Runtime) error {
	if err := run(ctx, rt, "helm/install", `
set -euo pipefail
curl -fsSL https://raw.githubusercontent.com/helm/helm/main/scripts/get-helm-3 | bash
`, nil); err != nil {
		return err
	}
	if rt.DryRun() {
		return nil
	}
	return preflight.Check(ctx, preflight.Requirement{
		Binary:     "helm",
		Args:       []string{"version"},
		Constraint: ">= 3.14.0",
	})
}

func uninstallHelm(ctx context.Context, rt *registry.Runtime) error {
	return run(ctx, rt, "helm/remove", `
set -euo pipefail
rm -f /usr/local/bin/helm
rm -rf /root/.cache/helm /root/.config/helm
`, nil)
}

func installStorage(ctx context.Context, rt *registry.Runtime) error {
	env := map[string]string{
		"KUBECONFIG":          rt.Config.Kubeconfig,
		"KUBESTRAP_CHART_VER": rt.Config.Charts.LocalPath,
	}
	if err := run(ctx, rt, "storage/local-path", `
set -euo pipefail
helm repo add containeroo https://charts.containeroo.ch --force-update
helm repo update containeroo
helm upgrade --install local-path-provisioner containeroo/local-path-provisioner \
  --namespace local-path-storage --create-namespace \
  ${KUBESTRAP_CHART_VER:+--version "$KUBESTRAP_CHART_VER"} \
  --set storageClass.defaultClass=true
`, env); err != nil {
		return err
	}
	return waitCluster(rt, func(c registry.ClusterWaiter) error {
		return c.WaitForDeploymentAvailable(ctx, "local-path-storage", "local-path-provisioner", rolloutTimeout)
	})
}

func uninstallStorage(ctx context.Context, rt *registry.Runtime) error {
	if err := confirm(rt, "Remove the volume provisioner?",
		"Existing local-path volumes keep their data, but nothing new can be provisioned."); err != nil {
		return err
	}
	return run(ctx, rt, "storage/uninstall", `
set -euo pipefail
helm uninstall local-path-provisioner --namespace local-path-storage
kubectl delete namespace local-path-storage --ignore-not-found
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig})
}

func installIngress(ctx context.Context, rt *registry.Runtime) error {
	env := map[string]string{
		"KUBECONFIG":          rt.Config.Kubeconfig,
		"KUBESTRAP_CHART_VER": rt.Config.Charts.Kong,
	}
	if err := run(ctx, rt, "ingress/kong", `
set -euo pipefail
helm repo add kong https://charts.konghq.com --force-update
helm repo update kong
helm upgrade --install kong kong/ingress \
  --namespace kong --create-namespace \
  ${KUBESTRAP_CHART_VER:+--version "$KUBESTRAP_CHART_VER"} \
  --set controller.ingressController.installCRDs=false \
  --set gateway.proxy.type=NodePort
`, env); err != nil {
		return err
	}
	return waitCluster(rt, func(c registry.ClusterWaiter) error {
		return c.WaitForDeploymentAvailable(ctx, "kong", "kong-gateway", rolloutTimeout)
	})
}

func uninstallIngress(ctx context.Context, rt *registry.Runtime) error {
	return run(ctx, rt, "ingress/uninstall", `
set -euo pipefail
helm uninstall kong --namespace kong
kubectl delete namespace kong --ignore-not-found
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig})
}

func installCertManager(ctx context.Context, rt *registry.Runtime) error {
	env := map[string]string{
		"KUBECONFIG":          rt.Config.Kubeconfig,
		"KUBESTRAP_CHART_VER": rt.Config.Charts.CertManager,
	}
	if err := run(ctx, rt, "certmanager/chart", `
set -euo pipefail
helm repo add jetstack https://charts.jetstack.io --force-update
helm repo update jetstack
helm upgrade --install cert-manager jetstack/cert-manager \
  --namespace cert-manager --create-namespace \
  ${KUBESTRAP_CHART_VER:+--version "$KUBESTRAP_CHART_VER"} \
  --set crds.enabled=true
`, env); err != nil {
		return err
	}

	if err := waitCluster(rt, func(c registry.ClusterWaiter) error {
		return c.WaitForDeploymentAvailable(ctx, "cert-manager", "cert-manager-webhook", rolloutTimeout)
	}); err != nil {
		return err
	}

	// Self-signed issuer so platform components get TLS without external ACME.
	return run(ctx, rt, "certmanager/issuer", `
set -euo pipefail
kubectl apply -f - <<'EOF'
apiVersion: cert-manager.io/v1
kind: ClusterIssuer
metadata:
  name: selfsigned
spec:
  selfSigned: {}
EOF
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig})
}

func uninstallCertManager(ctx context.Context, rt *registry.Runtime) error {
	return run(ctx, rt, "certmanager/uninstall", `
set -euo pipefail
kubectl delete clusterissuer selfsigned --ignore-not-found
helm uninstall cert-manager --namespace cert-manager
kubectl delete namespace cert-manager --ignore-not-found
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig})
}
