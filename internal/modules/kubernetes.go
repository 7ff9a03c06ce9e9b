// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"context"
	"strings"
	"time"

	"github.com/kubestrap/kubestrap/internal/preflight"
	"github.com/kubestrap/kubestrap/internal/registry"
)

const (
	nodeReadyTimeout = 10 * time.Minute
	rolloutTimeout   = 10 * time.Minute
)

// minorStream turns "1.31.2" into "v1.31" for the pkgs.k8s.io repository path.
func minorStream(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return "v" + version
	}
	return "v" + parts[0] + "." + parts[1]
}

func installKubernetes(ctx context.Context, rt *registry.Runtime) error {
	if err := confirm(rt, "Initialize the control plane?",
		"kubeadm init will reconfigure this host as a single-node Kubernetes control plane."); err != nil {
		return err
	}

	version := rt.Config.Kubernetes.Version
	env := map[string]string{
		"KUBESTRAP_K8S_VERSION":  version,
		"KUBESTRAP_K8S_STREAM":   minorStream(version),
		"KUBESTRAP_POD_CIDR":     rt.Config.Network.PodCIDR,
		"KUBESTRAP_SERVICE_CIDR": rt.Config.Network.ServiceCIDR,
	}

	if err := run(ctx, rt, "kubernetes/packages", `
set -euo pipefail
export `+aptEnv+`
mkdir -p /etc/apt/keyrings
curl -fsSL "https://pkgs.k8s.io/core:/stable:/${KUBESTRAP_K8S_STREAM}/deb/Release.key" \
  | gpg --dearmor --yes -o /etc/apt/keyrings/kubernetes.gpg
echo "deb [signed-by=/etc/apt/keyrings/kubernetes.gpg] https://pkgs.k8s.io/core:/stable:/${KUBESTRAP_K8S_STREAM}/deb/ /" \
  > /etc/apt/sources.list.d/kubernetes.list
apt-get update -q
apt-get install -y -q kubelet="${KUBESTRAP_K8S_VERSION}-*" kubeadm="${KUBESTRAP_K8S_VERSION}-*" kubectl="${KUBESTRAP_K8S_VERSION}-*"
apt-mark hold kubelet kubeadm kubectl
`, env); err != nil {
		return err
	}

	if !rt.DryRun() {
		// Gate on the versions the repo actually delivered before kubeadm
		// touches the host.
		if err := preflight.CheckAll(ctx, []preflight.Requirement{
			{Binary: "kubeadm", Args: []string{"version", "-o", "short"}, Constraint: ">= " + version},
			{Binary: "kubectl", Args: []string{"version", "--client"}, Constraint: ">= " + version},
		}); err != nil {
			return err
		}
	}

	if err := run(ctx, rt, "kubernetes/kubeadm-init", `
set -euo pipefail
kubeadm init \
  --pod-network-cidr "$KUBESTRAP_POD_CIDR" \
  --service-cidr "$KUBESTRAP_SERVICE_CIDR" \
  --kubernetes-version "$KUBESTRAP_K8S_VERSION"
mkdir -p /root/.kube
cp -f /etc/kubernetes/admin.conf /root/.kube/config
# Single-node platform: let workloads schedule on the control plane.
kubectl --kubeconfig /etc/kubernetes/admin.conf taint nodes --all \
  node-role.kubernetes.io/control-plane- || true
`, env); err != nil {
		return err
	}

	// The node reports Ready only after a CNI lands; here we only wait for
	// the API server to answer and core deployments to schedule.
	return waitCluster(rt, func(c registry.ClusterWaiter) error {
		return c.WaitForDeploymentAvailable(ctx, "kube-system", "coredns", rolloutTimeout)
	})
}

func uninstallKubernetes(ctx context.Context, rt *registry.Runtime) error {
	if err := confirm(rt, "Tear down the cluster?",
		"kubeadm reset deletes all cluster state on this host. This cannot be undone."); err != nil {
		return err
	}
	return run(ctx, rt, "kubernetes/reset", `
set -euo pipefail
kubeadm reset -f
rm -rf /etc/cni/net.d /root/.kube
export `+aptEnv+`
apt-mark unhold kubelet kubeadm kubectl
apt-get purge -y -q kubelet kubeadm kubectl
apt-get autoremove -y -q
`, nil)
}

func installCalico(ctx context.Context, rt *registry.Runtime) error {
	env := map[string]string{
		"KUBECONFIG":             rt.Config.Kubeconfig,
		"KUBESTRAP_POD_CIDR":     rt.Config.Network.PodCIDR,
		"KUBESTRAP_CALICO_CHART": rt.Config.Charts.Calico,
	}
	if err := run(ctx, rt, "calico/operator", `
set -euo pipefail
kubectl create namespace tigera-operator --dry-run=client -o yaml | kubectl apply -f -
helm repo add projectcalico https://docs.tigera.io/calico/charts --force-update
helm repo update projectcalico
helm upgrade --install calico projectcalico/tigera-operator \
  --namespace tigera-operator \
  ${KUBESTRAP_CALICO_CHART:+--version "$KUBESTRAP_CALICO_CHART"} \
  --set "installation.calicoNetwork.ipPools[0].cidr=$KUBESTRAP_POD_CIDR"
`, env); err != nil {
		return err
	}

	return waitCluster(rt, func(c registry.ClusterWaiter) error {
		if err := c.WaitForDaemonSetReady(ctx, "calico-system", "calico-node", rolloutTimeout); err != nil {
			return err
		}
		// With the CNI up the node can finally go Ready.
		return c.WaitForNodeReady(ctx, nodeReadyTimeout)
	})
}

func uninstallCalico(ctx context.Context, rt *registry.Runtime) error {
	return run(ctx, rt, "calico/uninstall", `
set -euo pipefail
helm uninstall calico --namespace tigera-operator
kubectl delete namespace tigera-operator --ignore-not-found
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig})
}

func installCoreDNS(ctx context.Context, rt *registry.Runtime) error {
	if err := run(ctx, rt, "coredns/tune", `
set -euo pipefail
kubectl -n kube-system get configmap coredns -o yaml > /tmp/kubestrap-coredns.yaml
cat > /tmp/kubestrap-coredns-patch.yaml <<'EOF'
data:
  Corefile: |
    .:53 {
        errors
        health { lameduck 5s }
        ready
        kubernetes cluster.local in-addr.arpa ip6.arpa {
            pods insecure
            fallthrough in-addr.arpa ip6.arpa
            ttl 30
        }
        prometheus :9153
        forward . 1.1.1.1 8.8.8.8
        cache 60
        loop
        reload
        loadbalance
    }
EOF
kubectl -n kube-system patch configmap coredns --patch-file /tmp/kubestrap-coredns-patch.yaml
kubectl -n kube-system rollout restart deployment coredns
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig}); err != nil {
		return err
	}
	return waitCluster(rt, func(c registry.ClusterWaiter) error {
		return c.WaitForDeploymentAvailable(ctx, "kube-system", "coredns", rolloutTimeout)
	})
}

func uninstallCoreDNS(ctx context.Context, rt *registry.Runtime) error {
	// Restoring the stock Corefile is the whole uninstall; the deployment
	// itself belongs to kubeadm.
	return run(ctx, rt, "coredns/restore", `
set -euo pipefail
if [ -f /tmp/kubestrap-coredns.yaml ]; then
  kubectl apply -f /tmp/kubestrap-coredns.yaml
  kubectl -n kube-system rollout restart deployment coredns
else
  echo "no saved Corefile to restore" >&2
fi
`, map[string]string{"KUBECONFIG": rt.Config.Kubeconfig})
}
