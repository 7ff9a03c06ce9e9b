// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"context"

	"github.com/kubestrap/kubestrap/internal/registry"
)

func installVault(ctx context.Context, rt *registry.Runtime) error {
	env := map[string]string{
		"KUBECONFIG":          rt.Config.Kubeconfig,
		"KUBESTRAP_CHART_VER": rt.Config.Charts.Vault,
	}
	if err := run(ctx, rt, "vault/chart", `
set -euo pipefail
helm repo add hashicorp https://helm.releases.hashicorp.com --force-update
helm repo update hashicorp
helm upgrade --install vault hashicorp/vault \
  --namespace vault --create-namespace \
  ${KUBESTRAP_CHART_VER:+--version "$KUBESTRAP_CHART_VER"} \
  --set server.dataStorage.size=4Gi \
  --set injector.enabled=true
`, env); err != nil {
		return err
	}
	if rt.DryRun() {
		return nil
	}
	// Vault pods stay NotReady until unsealed; pod presence is the most the
	// installer can wait for. Initialization and unseal are operator actions.
	if err := run(ctx, rt, "vault/wait-pod", `
set -euo pipefail
kubectl -n vault wait pod vault-0 --for=condition=PodScheduled --timeout=300s
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig}); err != nil {
		return err
	}
	rt.Logger.Info("vault installed; initialize and unseal it before use",
		"hint", "kubectl -n vault exec -it vault-0 -- vault operator init")
	return nil
}

func uninstallVault(ctx context.Context, rt *registry.Runtime) error {
	if err := confirm(rt, "Remove Vault?",
		"Sealed Vault data is destroyed with its volume. Secrets not backed up elsewhere are lost."); err != nil {
		return err
	}
	return run(ctx, rt, "vault/uninstall", `
set -euo pipefail
helm uninstall vault --namespace vault
kubectl delete namespace vault --ignore-not-found
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig})
}

func installMinIO(ctx context.Context, rt *registry.Runtime) error {
	env := map[string]string{
		"KUBECONFIG":          rt.Config.Kubeconfig,
		"KUBESTRAP_CHART_VER": rt.Config.Charts.MinIO,
	}
	if err := run(ctx, rt, "minio/chart", `
set -euo pipefail
helm repo add minio https://charts.min.io/ --force-update
helm repo update minio
helm upgrade --install minio minio/minio \
  --namespace minio --create-namespace \
  ${KUBESTRAP_CHART_VER:+--version "$KUBESTRAP_CHART_VER"} \
  --set mode=standalone \
  --set persistence.size=16Gi \
  --set resources.requests.memory=512Mi
`, env); err != nil {
		return err
	}
	return waitCluster(rt, func(c registry.ClusterWaiter) error {
		return c.WaitForDeploymentAvailable(ctx, "minio", "minio", rolloutTimeout)
	})
}

func uninstallMinIO(ctx context.Context, rt *registry.Runtime) error {
	if err := confirm(rt, "Remove MinIO?",
		"All buckets and objects on this deployment are destroyed with the volume."); err != nil {
		return err
	}
	return run(ctx, rt, "minio/uninstall", `
set -euo pipefail
helm uninstall minio --namespace minio
kubectl delete namespace minio --ignore-not-found
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig})
}
