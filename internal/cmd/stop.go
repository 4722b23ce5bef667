/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package cmd

import (
	"github.com/spf13/cobra"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop your workspace container",
	Long: `Stop your workspace container and wait until it is gone.

The home volume is kept, so the next start resumes with the same data.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	cli, err := newCLI(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	ctx, stop := commandContext()
	defer stop()
	return cli.Stop(ctx)
}
