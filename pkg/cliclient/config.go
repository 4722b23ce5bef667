/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package cliclient

import (
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigFile is the on-disk CLI configuration. Every field is optional and
// can be overridden by a command line flag.
type ConfigFile struct {
	Username   string `json:"username" mapstructure:"username"`
	SSHKeyPath string `json:"ssh_key_path" mapstructure:"ssh_key_path"`
	APIURL     string `json:"api_url" mapstructure:"api_url"`
}

// Flags are the command line overrides for the config file.
type Flags struct {
	User       string
	SSHKeyPath string
	APIURL     string
}

// Config is the materialized CLI configuration with the SSH public key
// already read from disk.
type Config struct {
	Username string
	SSHKey   string
	APIURL   string
}

// Endpoint returns the query endpoint of the operator API.
func (c *Config) Endpoint() string {
	return strings.TrimSuffix(c.APIURL, "/") + "/api/query"
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "kube-workspaces", "config.json"), nil
}

// LoadConfigFile reads the config file at path. A missing file is not an
// error and yields an empty config.
func LoadConfigFile(path string) (*ConfigFile, error) {
	file := &ConfigFile{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return file, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return file, nil
}

// Write persists the config file to path, creating parent directories as
// needed.
func (f *ConfigFile) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.Set("username", f.Username)
	v.Set("ssh_key_path", f.SSHKeyPath)
	v.Set("api_url", f.APIURL)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Resolve merges flags over the config file and fills in the defaults.
// The username falls back to the local OS user and the key path to
// ~/.ssh/id_rsa.pub. The API URL has no default. configPath is only used
// in error messages so the user knows which file to fix.
func Resolve(file *ConfigFile, flags Flags, configPath string) (*Config, error) {
	username := firstNonEmpty(flags.User, file.Username)
	if username == "" {
		current, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("failed to determine the local user, set username in %s or pass --user: %w", configPath, err)
		}
		username = current.Username
	}

	keyPath := firstNonEmpty(flags.SSHKeyPath, file.SSHKeyPath)
	if keyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		keyPath = filepath.Join(home, ".ssh", "id_rsa.pub")
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("could not read SSH public key at %s, set ssh_key_path in %s or pass --ssh-key: %w", keyPath, configPath, err)
	}

	apiURL := firstNonEmpty(flags.APIURL, file.APIURL)
	if apiURL == "" {
		return nil, fmt.Errorf("no API endpoint configured, set api_url in %s or pass --api-url", configPath)
	}
	if err := ValidateAPIURL(apiURL); err != nil {
		return nil, err
	}

	return &Config{
		Username: username,
		SSHKey:   strings.TrimSpace(string(key)),
		APIURL:   apiURL,
	}, nil
}

// ValidateAPIURL rejects URLs that are not plain http or https endpoints.
func ValidateAPIURL(apiURL string) error {
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", apiURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid API URL %q: the scheme must be http or https", apiURL)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
