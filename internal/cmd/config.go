/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refaktory/kube-workspace/pkg/cliclient"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the CLI configuration",
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the config file from the given flags",
	Long: `Write the config file from the given flags.

The API URL is required. Username and SSH key path are optional and fall
back to the current OS user and ~/.ssh/id_rsa.pub when left out.

Example:
  workspaces config init --api-url http://workspaces.example.com --ssh-key ~/.ssh/id_ed25519.pub`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if flagAPIURL == "" {
		return fmt.Errorf("--api-url is required")
	}
	if err := cliclient.ValidateAPIURL(flagAPIURL); err != nil {
		return err
	}
	path, err := configPath()
	if err != nil {
		return err
	}
	file := &cliclient.ConfigFile{
		Username:   flagUser,
		SSHKeyPath: flagSSHKey,
		APIURL:     flagAPIURL,
	}
	if err := file.Write(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
	return nil
}
