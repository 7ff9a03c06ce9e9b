// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"context"

	"github.com/kubestrap/kubestrap/internal/registry"
	"github.com/kubestrap/kubestrap/internal/script"
)

// adminPasswordScript reads the generated Grafana admin secret.
func adminPasswordScript(kubeconfig string) script.Script {
	return script.Script{
		Name: "grafana/admin-password",
		Body: `kubectl -n monitoring get secret grafana -o jsonpath='{.data.admin-password}' | base64 -d`,
		Env:  map[string]string{"KUBECONFIG": kubeconfig},
	}
}

func installPrometheus(ctx context.Context, rt *registry.Runtime) error {
	env := map[string]string{
		"KUBECONFIG":          rt.Config.Kubeconfig,
		"KUBESTRAP_CHART_VER": rt.Config.Charts.Prometheus,
	}
	if err := run(ctx, rt, "prometheus/chart", `
set -euo pipefail
helm repo add prometheus-community https://prometheus-community.github.io/helm-charts --force-update
helm repo update prometheus-community
helm upgrade --install prometheus prometheus-community/prometheus \
  --namespace monitoring --create-namespace \
  ${KUBESTRAP_CHART_VER:+--version "$KUBESTRAP_CHART_VER"} \
  --set alertmanager.enabled=false \
  --set server.persistentVolume.size=8Gi
`, env); err != nil {
		return err
	}
	return waitCluster(rt, func(c registry.ClusterWaiter) error {
		return c.WaitForDeploymentAvailable(ctx, "monitoring", "prometheus-server", rolloutTimeout)
	})
}

func uninstallPrometheus(ctx context.Context, rt *registry.Runtime) error {
	return run(ctx, rt, "prometheus/uninstall", `
set -euo pipefail
helm uninstall prometheus --namespace monitoring
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig})
}

func installGrafana(ctx context.Context, rt *registry.Runtime) error {
	env := map[string]string{
		"KUBECONFIG":          rt.Config.Kubeconfig,
		"KUBESTRAP_CHART_VER": rt.Config.Charts.Grafana,
	}
	if err := run(ctx, rt, "grafana/chart", `
set -euo pipefail
helm repo add grafana https://grafana.github.io/helm-charts --force-update
helm repo update grafana
helm upgrade --install grafana grafana/grafana \
  --namespace monitoring --create-namespace \
  ${KUBESTRAP_CHART_VER:+--version "$KUBESTRAP_CHART_VER"} \
  --set 'datasources.datasources\.yaml.apiVersion=1' \
  --set 'datasources.datasources\.yaml.datasources[0].name=Prometheus' \
  --set 'datasources.datasources\.yaml.datasources[0].type=prometheus' \
  --set 'datasources.datasources\.yaml.datasources[0].url=http://prometheus-server.monitoring.svc' \
  --set 'datasources.datasources\.yaml.datasources[0].isDefault=true'
`, env); err != nil {
		return err
	}

	if err := waitCluster(rt, func(c registry.ClusterWaiter) error {
		return c.WaitForDeploymentAvailable(ctx, "monitoring", "grafana", rolloutTimeout)
	}); err != nil {
		return err
	}

	if rt.DryRun() {
		return nil
	}
	password, err := rt.Engine.Capture(ctx, adminPasswordScript(rt.Config.Kubeconfig))
	if err != nil {
		return err
	}
	rt.Logger.Info("grafana admin password retrieved", "user", "admin", "password", password)
	return nil
}

func uninstallGrafana(ctx context.Context, rt *registry.Runtime) error {
	return run(ctx, rt, "grafana/uninstall", `
set -euo pipefail
helm uninstall grafana --namespace monitoring
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig})
}
