// SPDX-License-Identifier: MPL-2.0

package config

type (
	// Config is the kubestrap runtime configuration, resolved from defaults,
	// the config.cue file, and KUBESTRAP_* environment variables (in
	// ascending precedence). It is built once at process start and injected;
	// nothing reads it through package globals.
	Config struct {
		// StateDir overrides the marker-file directory resolution.
		StateDir string `mapstructure:"state_dir"`
		// Kubeconfig is the admin kubeconfig path used for readiness waits.
		Kubeconfig string `mapstructure:"kubeconfig"`

		Network    NetworkConfig    `mapstructure:"network"`
		Kubernetes KubernetesConfig `mapstructure:"kubernetes"`
		Charts     ChartsConfig     `mapstructure:"charts"`
		WireGuard  WireGuardConfig  `mapstructure:"wireguard"`
		UI         UIConfig         `mapstructure:"ui"`
	}

	// NetworkConfig holds cluster networking parameters consumed by kubeadm
	// and the CNI module.
	NetworkConfig struct {
		// PodCIDR is passed to kubeadm init --pod-network-cidr.
		PodCIDR string `mapstructure:"pod_cidr"`
		// ServiceCIDR is passed to kubeadm init --service-cidr.
		ServiceCIDR string `mapstructure:"service_cidr"`
	}

	// KubernetesConfig selects the kubeadm/kubelet/kubectl package version.
	KubernetesConfig struct {
		// Version is a semver like "1.31.2"; the minor stream ("v1.31") is
		// derived from it for the apt repository.
		Version string `mapstructure:"version"`
	}

	// ChartsConfig pins Helm chart versions per application module. Empty
	// values install whatever the repository currently serves.
	ChartsConfig struct {
		Calico      string `mapstructure:"calico"`
		Kong        string `mapstructure:"kong"`
		CertManager string `mapstructure:"cert_manager"`
		Prometheus  string `mapstructure:"prometheus"`
		Grafana     string `mapstructure:"grafana"`
		Vault       string `mapstructure:"vault"`
		MinIO       string `mapstructure:"minio"`
		LocalPath   string `mapstructure:"local_path"`
	}

	// WireGuardConfig holds the VPN module parameters.
	WireGuardConfig struct {
		// Interface is the wg interface name (default wg0).
		Interface string `mapstructure:"interface"`
		// Subnet is the VPN address range in CIDR form.
		Subnet string `mapstructure:"subnet"`
		// ListenPort is the UDP port wg listens on.
		ListenPort int `mapstructure:"listen_port"`
	}

	// UIConfig controls interactive behavior.
	UIConfig struct {
		// Verbose enables debug-level logging.
		Verbose bool `mapstructure:"verbose"`
		// NonInteractive suppresses all prompts; confirmations default to yes
		// and the sequencer continues past failures.
		NonInteractive bool `mapstructure:"non_interactive"`
	}
)

// DefaultConfig returns the built-in defaults applied before any file or
// environment value.
func DefaultConfig() Config {
	return Config{
		Kubeconfig: "/etc/kubernetes/admin.conf",
		Network: NetworkConfig{
			PodCIDR:     "192.168.0.0/16",
			ServiceCIDR: "10.96.0.0/12",
		},
		Kubernetes: KubernetesConfig{
			Version: "1.31.2",
		},
		WireGuard: WireGuardConfig{
			Interface:  "wg0",
			Subnet:     "10.8.0.0/24",
			ListenPort: 51820,
		},
	}
}
