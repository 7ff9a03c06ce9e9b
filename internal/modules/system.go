// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"context"

	"github.com/kubestrap/kubestrap/internal/preflight"
	"github.com/kubestrap/kubestrap/internal/registry"
)

const aptEnv = "DEBIAN_FRONTEND=noninteractive"

func installEssentials(ctx context.Context, rt *registry.Runtime) error {
	if err := run(ctx, rt, "essentials/apt", `
set -euo pipefail
export `+aptEnv+`
apt-get update -q
apt-get install -y -q \
  apt-transport-https ca-certificates curl gnupg lsb-release \
  jq ethtool socat conntrack open-iscsi nfs-common
`, nil); err != nil {
		return err
	}

	// containerd is the runtime kubeadm expects; install and switch it to
	// the systemd cgroup driver.
	if err := run(ctx, rt, "essentials/containerd", `
set -euo pipefail
export `+aptEnv+`
apt-get install -y -q containerd
mkdir -p /etc/containerd
containerd config default > /etc/containerd/config.toml
sed -i 's/SystemdCgroup = false/SystemdCgroup = true/' /etc/containerd/config.toml
systemctl restart containerd
systemctl enable containerd
`, nil); err != nil {
		return err
	}

	if rt.DryRun() {
		return nil
	}
	// Presence-only at this stage; the kubernetes module gates versions after
	// the apt repo has had a chance to install them.
	return preflight.CheckAll(ctx, []preflight.Requirement{
		{Binary: "curl"},
		{Binary: "systemctl"},
	})
}

func uninstallEssentials(ctx context.Context, rt *registry.Runtime) error {
	if err := confirm(rt, "Remove base packages?",
		"containerd and the supporting packages will be purged."); err != nil {
		return err
	}
	return run(ctx, rt, "essentials/purge", `
set -euo pipefail
export `+aptEnv+`
systemctl disable --now containerd || true
apt-get purge -y -q containerd
apt-get autoremove -y -q
`, nil)
}

func installNetwork(ctx context.Context, rt *registry.Runtime) error {
	return run(ctx, rt, "network/sysctl", `
set -euo pipefail
cat > /etc/modules-load.d/kubestrap.conf <<'EOF'
overlay
br_netfilter
EOF
modprobe overlay
modprobe br_netfilter
cat > /etc/sysctl.d/99-kubestrap.conf <<'EOF'
net.bridge.bridge-nf-call-iptables  = 1
net.bridge.bridge-nf-call-ip6tables = 1
net.ipv4.ip_forward                 = 1
EOF
sysctl --system > /dev/null
`, nil)
}

func uninstallNetwork(ctx context.Context, rt *registry.Runtime) error {
	return run(ctx, rt, "network/reset", `
set -euo pipefail
rm -f /etc/modules-load.d/kubestrap.conf /etc/sysctl.d/99-kubestrap.conf
sysctl --system > /dev/null
`, nil)
}

func installFirewall(ctx context.Context, rt *registry.Runtime) error {
	// Enabling ufw over SSH can lock the operator out if the allow rule is
	// wrong, hence the explicit confirmation.
	if err := confirm(rt, "Enable the firewall?",
		"ufw will be enabled with SSH (22), the API server (6443), kubelet (10250), and WireGuard allowed."); err != nil {
		return err
	}
	return run(ctx, rt, "firewall/ufw", `
set -euo pipefail
export `+aptEnv+`
apt-get install -y -q ufw
ufw default deny incoming
ufw default allow outgoing
ufw allow 22/tcp
ufw allow 6443/tcp
ufw allow 10250/tcp
ufw allow "$KUBESTRAP_WG_PORT"/udp
ufw allow in on cni0
ufw allow out on cni0
ufw --force enable
`, map[string]string{
		"KUBESTRAP_WG_PORT": itoa(rt.Config.WireGuard.ListenPort),
	})
}

func uninstallFirewall(ctx context.Context, rt *registry.Runtime) error {
	return run(ctx, rt, "firewall/disable", `
set -euo pipefail
ufw --force disable
`, nil)
}

func installHardening(ctx context.Context, rt *registry.Runtime) error {
	if err := confirm(rt, "Harden SSH?",
		"Password authentication and root login will be disabled. Make sure key-based login works first."); err != nil {
		return err
	}
	if err := run(ctx, rt, "hardening/sshd", `
set -euo pipefail
cat > /etc/ssh/sshd_config.d/99-kubestrap.conf <<'EOF'
PasswordAuthentication no
PermitRootLogin prohibit-password
MaxAuthTries 3
EOF
sshd -t
systemctl reload ssh
`, nil); err != nil {
		return err
	}
	return run(ctx, rt, "hardening/fail2ban", `
set -euo pipefail
export `+aptEnv+`
apt-get install -y -q fail2ban unattended-upgrades
systemctl enable --now fail2ban
dpkg-reconfigure -f noninteractive unattended-upgrades
`, nil)
}

func uninstallHardening(ctx context.Context, rt *registry.Runtime) error {
	return run(ctx, rt, "hardening/revert", `
set -euo pipefail
export `+aptEnv+`
rm -f /etc/ssh/sshd_config.d/99-kubestrap.conf
sshd -t && systemctl reload ssh
systemctl disable --now fail2ban || true
apt-get purge -y -q fail2ban
`, nil)
}
