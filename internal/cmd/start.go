/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package cmd

import (
	"github.com/spf13/cobra"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start your workspace container",
	Long: `Start your workspace container and wait until it is reachable.

The command polls the operator until the workspace is ready and then prints
the ssh invocation to connect to it.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cli, err := newCLI(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	ctx, stop := commandContext()
	defer stop()
	return cli.Start(ctx)
}
