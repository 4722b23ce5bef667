/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/refaktory/kube-workspace/pkg/cliclient"
)

var (
	cfgPath    string
	flagUser   string
	flagSSHKey string
	flagAPIURL string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "Manage your SSH accessible workspace on a Kubernetes cluster",
	Long: `workspaces is the client for the kube-workspace-operator. It starts,
inspects and stops your personal workspace container. The home directory of
the workspace lives on a persistent volume and survives restarts.

Example:
  workspaces config init --api-url http://workspaces.example.com
  workspaces start
  workspaces status
  workspaces stop`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default is ~/.config/kube-workspaces/config.json)")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "username to use, defaults to the current OS user")
	rootCmd.PersistentFlags().StringVar(&flagSSHKey, "ssh-key", "", "path of the SSH public key to use, defaults to ~/.ssh/id_rsa.pub")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "operator API URL, like http://workspaces.example.com")
}

func configPath() (string, error) {
	if cfgPath != "" {
		return cfgPath, nil
	}
	return cliclient.DefaultPath()
}

func newCLI(out io.Writer) (*cliclient.CLI, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	file, err := cliclient.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	flags := cliclient.Flags{User: flagUser, SSHKeyPath: flagSSHKey, APIURL: flagAPIURL}
	cfg, err := cliclient.Resolve(file, flags, path)
	if err != nil {
		return nil, err
	}
	return cliclient.New(cfg, out), nil
}

// commandContext returns a context that is cancelled on SIGINT or SIGTERM
// so polling loops stop cleanly.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
