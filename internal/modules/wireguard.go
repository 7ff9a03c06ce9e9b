// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"context"
	"fmt"
	"net"

	"github.com/kubestrap/kubestrap/internal/registry"
)

// serverAddress picks the first host address of the VPN subnet for wg0.
func serverAddress(subnet string) (string, int, error) {
	ip, ipNet, err := net.ParseCIDR(subnet)
	if err != nil {
		return "", 0, fmt.Errorf("invalid wireguard subnet %q: %w", subnet, err)
	}
	ip = ip.To4()
	if ip == nil {
		return "", 0, fmt.Errorf("wireguard subnet %q must be IPv4", subnet)
	}
	host := make(net.IP, len(ip))
	copy(host, ip)
	host[3]++
	ones, _ := ipNet.Mask.Size()
	return host.String(), ones, nil
}

func installWireGuard(ctx context.Context, rt *registry.Runtime) error {
	addr, prefix, err := serverAddress(rt.Config.WireGuard.Subnet)
	if err != nil {
		return err
	}
	env := map[string]string{
		"KUBESTRAP_WG_IFACE": rt.Config.WireGuard.Interface,
		"KUBESTRAP_WG_ADDR":  fmt.Sprintf("%s/%d", addr, prefix),
		"KUBESTRAP_WG_PORT":  itoa(rt.Config.WireGuard.ListenPort),
	}
	return run(ctx, rt, "wireguard/setup", `
set -euo pipefail
export `+aptEnv+`
apt-get install -y -q wireguard
umask 077
mkdir -p /etc/wireguard
if [ ! -f /etc/wireguard/server.key ]; then
  wg genkey | tee /etc/wireguard/server.key | wg pubkey > /etc/wireguard/server.pub
fi
cat > "/etc/wireguard/${KUBESTRAP_WG_IFACE}.conf" <<EOF
[Interface]
Address = ${KUBESTRAP_WG_ADDR}
ListenPort = ${KUBESTRAP_WG_PORT}
PrivateKey = $(cat /etc/wireguard/server.key)
SaveConfig = true
EOF
systemctl enable --now "wg-quick@${KUBESTRAP_WG_IFACE}"
wg show "${KUBESTRAP_WG_IFACE}"
`, env)
}

func uninstallWireGuard(ctx context.Context, rt *registry.Runtime) error {
	if err := confirm(rt, "Remove the VPN?",
		"The WireGuard interface and its keys will be deleted. Connected peers lose access."); err != nil {
		return err
	}
	return run(ctx, rt, "wireguard/remove", `
set -euo pipefail
export `+aptEnv+`
systemctl disable --now "wg-quick@${KUBESTRAP_WG_IFACE}" || true
rm -rf /etc/wireguard
apt-get purge -y -q wireguard
`, map[string]string{"KUBESTRAP_WG_IFACE": rt.Config.WireGuard.Interface})
}
