// SPDX-License-Identifier: MPL-2.0

// Package config loads the kubestrap configuration. Precedence, lowest to
// highest: built-in defaults, the config.cue file (validated against an
// embedded CUE schema), KUBESTRAP_* environment variables.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "kubestrap"
	// ConfigFileName is the config file name.
	ConfigFileName = "config.cue"
	// EnvPrefix namespaces the environment variables viper binds.
	EnvPrefix = "KUBESTRAP"
)

//go:embed config_schema.cue
var configSchema string

// LoadOptions control where Load looks for the config file.
type LoadOptions struct {
	// ConfigFilePath, when set via --config, is used exclusively; a missing
	// file at that path is an error rather than a silent fallback.
	ConfigFilePath string
}

// ConfigDir returns the directory searched for config.cue: /etc/kubestrap
// when it exists (the tool usually runs as root on the target server), else
// $XDG_CONFIG_HOME/kubestrap (defaulting to ~/.config/kubestrap).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if fi, err := os.Stat("/etc/" + AppName); err == nil && fi.IsDir() {
		return "/etc/" + AppName, nil
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, AppName), nil
}

// Load resolves the configuration. A missing config file is not an error —
// defaults plus environment apply. A present-but-invalid file is an error so
// typos never silently degrade a provisioning run.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("state_dir", defaults.StateDir)
	v.SetDefault("kubeconfig", defaults.Kubeconfig)
	v.SetDefault("network.pod_cidr", defaults.Network.PodCIDR)
	v.SetDefault("network.service_cidr", defaults.Network.ServiceCIDR)
	v.SetDefault("kubernetes.version", defaults.Kubernetes.Version)
	v.SetDefault("wireguard.interface", defaults.WireGuard.Interface)
	v.SetDefault("wireguard.subnet", defaults.WireGuard.Subnet)
	v.SetDefault("wireguard.listen_port", defaults.WireGuard.ListenPort)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.non_interactive", defaults.UI.NonInteractive)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, err
		}
	} else if cfgDir, err := ConfigDir(); err == nil {
		cuePath := filepath.Join(cfgDir, ConfigFileName)
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema, and merges its contents into viper so defaults and env overrides
// keep their precedence.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return fmt.Errorf("invalid CUE in %s: %w", path, userValue.Err())
	}

	// Unify with the schema; Concrete(false) because every field is optional.
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("config %s does not match schema: %w", path, err)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
