/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/prometheus/common/model"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"sigs.k8s.io/yaml"

	kwerrors "github.com/refaktory/kube-workspace/pkg/errors"
)

// EnvConfigPath is consulted for the config file path when the -config flag
// is not given.
const EnvConfigPath = "KUBE_WORKSPACE_OPERATOR_CONFIG"

const (
	DefaultServerAddress   = "0.0.0.0:8080"
	DefaultExporterAddress = "0.0.0.0:9999"
	DefaultNamespace       = "kube-workspaces"
	DefaultHomeVolumeSize  = "10Gi"
)

// User is a whitelist entry. Uniqueness is by username.
type User struct {
	Username     string `json:"username"`
	SSHPublicKey string `json:"ssh_public_key"`
}

// PrometheusExporter configures the metrics endpoint. A nil exporter section
// disables the endpoint entirely.
type PrometheusExporter struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"server_address"`
	// AutoRegisterOperatorServiceMonitor makes the sweep loop create a
	// prometheus-operator ServiceMonitor for the operator itself.
	AutoRegisterOperatorServiceMonitor bool `json:"auto_register_operator_service_monitor"`
}

// CPUIdleConfig configures the CPU idle dimension of auto-shutdown.
type CPUIdleConfig struct {
	MinimumIdleTime model.Duration `json:"minimum_idle_time"`
	// CPUThreshold is compared against the decoded per-pod CPU total.
	CPUThreshold int64 `json:"cpu_threshold"`
}

// TCPIdleConfig configures the TCP connection idle dimension of auto-shutdown.
type TCPIdleConfig struct {
	MinimumIdleTime model.Duration `json:"minimum_idle_time"`
	// IgnoredPorts is accepted and validated but not yet consulted by the
	// connection probe.
	IgnoredPorts []uint16 `json:"ignored_ports,omitempty"`
}

// AutoShutdown is the master configuration for the idle sweeper. A dimension
// that is nil imposes no constraint.
type AutoShutdown struct {
	Enable   bool           `json:"enable"`
	CPUUsage *CPUIdleConfig `json:"cpu_usage,omitempty"`
	TCPIdle  *TCPIdleConfig `json:"tcp_idle,omitempty"`
}

// Config is the operator configuration, decoded from a single JSON document.
type Config struct {
	ServerAddress       string              `json:"server_address"`
	PrometheusExporter  *PrometheusExporter `json:"prometheus_exporter,omitempty"`
	Namespace           string              `json:"namespace"`
	AutoCreateNamespace bool                `json:"auto_create_namespace"`
	Users               []User              `json:"users"`
	MaxHomeVolumeSize   resource.Quantity   `json:"max_home_volume_size"`
	PodTemplate         corev1.PodSpec      `json:"pod_template"`
	StorageClass        *string             `json:"storage_class,omitempty"`
	AutoShutdown        AutoShutdown        `json:"auto_shutdown"`
}

// Default returns the configuration the operator runs with when no config
// file is given.
func Default() *Config {
	return &Config{
		ServerAddress: DefaultServerAddress,
		PrometheusExporter: &PrometheusExporter{
			Enabled:                            true,
			ServerAddress:                      DefaultExporterAddress,
			AutoRegisterOperatorServiceMonitor: true,
		},
		Namespace:           DefaultNamespace,
		AutoCreateNamespace: true,
		MaxHomeVolumeSize:   resource.MustParse(DefaultHomeVolumeSize),
	}
}

// Load reads and validates the operator configuration.
// An empty path falls back to the KUBE_WORKSPACE_OPERATOR_CONFIG environment
// variable; when that is unset too, the defaults apply. Fields absent from
// the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read config file %s: %v", path, err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file %s: %v", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the semantic constraints the rest of the operator relies
// on. Any error here is fatal at startup.
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if c.Namespace != strings.TrimSpace(c.Namespace) {
		return fmt.Errorf("namespace must not contain surrounding whitespace")
	}
	if _, _, err := net.SplitHostPort(c.ServerAddress); err != nil {
		return fmt.Errorf("invalid server_address %q: %v", c.ServerAddress, err)
	}
	if exp := c.PrometheusExporter; exp != nil {
		if _, _, err := net.SplitHostPort(exp.ServerAddress); err != nil {
			return fmt.Errorf("invalid prometheus_exporter.server_address %q: %v", exp.ServerAddress, err)
		}
	}
	if cpu := c.AutoShutdown.CPUUsage; cpu != nil {
		if cpu.MinimumIdleTime <= 0 {
			return fmt.Errorf("auto_shutdown.cpu_usage.minimum_idle_time must be a positive duration")
		}
		if cpu.CPUThreshold <= 0 {
			return fmt.Errorf("auto_shutdown.cpu_usage.cpu_threshold must be positive")
		}
	}
	if tcp := c.AutoShutdown.TCPIdle; tcp != nil {
		if tcp.MinimumIdleTime <= 0 {
			return fmt.Errorf("auto_shutdown.tcp_idle.minimum_idle_time must be a positive duration")
		}
	}
	return nil
}

// VerifyUser authenticates a (username, SSH public key) pair against the
// whitelist. Both the stored and the presented key are compared after
// trimming surrounding whitespace. The returned error does not reveal which
// of the two fields mismatched.
func (c *Config) VerifyUser(username, sshPublicKey string) (*User, error) {
	for i := range c.Users {
		user := &c.Users[i]
		if user.Username != username {
			continue
		}
		if strings.TrimSpace(user.SSHPublicKey) == strings.TrimSpace(sshPublicKey) {
			return user, nil
		}
		return nil, kwerrors.NewUserNotVerified()
	}
	return nil, kwerrors.NewUserNotVerified()
}

// AutoShutdownEnabled reports whether the sweeper should analyze pods for
// shutdown: the master switch must be on and at least one idle dimension
// configured.
func (c *Config) AutoShutdownEnabled() bool {
	return c.AutoShutdown.Enable &&
		(c.AutoShutdown.CPUUsage != nil || c.AutoShutdown.TCPIdle != nil)
}
