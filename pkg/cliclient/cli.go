/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

// Package cliclient implements the `workspaces` command line client for the
// workspace operator. It resolves the user configuration, talks to the query
// API and drives the start, status and stop flows.
package cliclient

import (
	"context"
	"fmt"
	"io"
	"os/user"
	"time"

	"github.com/refaktory/kube-workspace/pkg/api"
	"github.com/refaktory/kube-workspace/pkg/workspace"
)

const defaultPollInterval = 2 * time.Second

// CLI runs the user facing workspace commands against the operator API.
type CLI struct {
	client       *Client
	username     string
	localUser    string
	out          io.Writer
	pollInterval time.Duration
}

func New(cfg *Config, out io.Writer) *CLI {
	localUser := ""
	if current, err := user.Current(); err == nil {
		localUser = current.Username
	}
	return &CLI{
		client:       NewClient(cfg),
		username:     cfg.Username,
		localUser:    localUser,
		out:          out,
		pollInterval: defaultPollInterval,
	}
}

// Start launches the workspace and polls until it is reachable, printing
// phase transitions along the way.
func (c *CLI) Start(ctx context.Context) error {
	status, err := c.client.PodStatus(ctx)
	if err != nil {
		return err
	}
	if status.Phase == workspace.PhaseReady && status.SSHAddress != nil {
		fmt.Fprintln(c.out, "Your workspace is already running!")
		c.printInfo(status.Info)
		c.printConnectLine(status.SSHAddress)
		return nil
	}

	fmt.Fprintf(c.out, "Launching your workspace from phase: %s\n", status.Phase)
	fmt.Fprintln(c.out, "This might take a few minutes. Please be patient.")
	current := status.Phase
	for {
		status, err = c.client.PodStart(ctx)
		if err != nil {
			return err
		}
		if status.Phase != current {
			fmt.Fprintf(c.out, "\n%s->", status.Phase)
			current = status.Phase
		}
		if status.Phase == workspace.PhaseReady {
			break
		}
		fmt.Fprint(c.out, "*")
		if err := c.sleep(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintln(c.out, "\nPod is ready!")
	c.printInfo(status.Info)
	if status.SSHAddress != nil {
		c.printConnectLine(status.SSHAddress)
	} else {
		fmt.Fprintln(c.out, "SSH not ready yet - call `start` again")
	}
	return nil
}

// Status prints the current workspace phase and, for a reachable workspace,
// the connection details.
func (c *CLI) Status(ctx context.Context) error {
	status, err := c.client.PodStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Workspace phase: %s\n", status.Phase)
	if status.Phase == workspace.PhaseReady && status.SSHAddress != nil {
		c.printInfo(status.Info)
		c.printConnectLine(status.SSHAddress)
	}
	return nil
}

// Stop shuts the workspace down and polls until it is gone. The home volume
// is kept.
func (c *CLI) Stop(ctx context.Context) error {
	status, err := c.client.PodStatus(ctx)
	if err != nil {
		return err
	}
	if status.Phase == workspace.PhaseNotFound {
		fmt.Fprintln(c.out, "Your workspace is already stopped")
		return nil
	}

	fmt.Fprintln(c.out, "Stopping workspace...")
	if err := c.client.PodStop(ctx); err != nil {
		return err
	}
	for {
		status, err = c.client.PodStatus(ctx)
		if err != nil {
			return err
		}
		if status.Phase == workspace.PhaseNotFound {
			break
		}
		fmt.Fprint(c.out, "*")
		if err := c.sleep(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintln(c.out, "\nWorkspace was shut down.")
	fmt.Fprintln(c.out, "Run `workspaces start` to start it again")
	return nil
}

func (c *CLI) printInfo(info *api.WorkspaceInfo) {
	if info == nil {
		return
	}
	fmt.Fprintf(c.out, "  * Image: %s\n", info.Image)
	if info.MemoryLimit != nil {
		fmt.Fprintf(c.out, "    Memory: %s\n", info.MemoryLimit)
	}
	if info.CPULimit != nil {
		fmt.Fprintf(c.out, "    CPU: %s\n", info.CPULimit)
	}
}

// printConnectLine prints the ssh invocation. The username is only included
// when it differs from the local OS user.
func (c *CLI) printConnectLine(addr *api.SSHAddress) {
	prefix := ""
	if c.username != c.localUser {
		prefix = c.username + "@"
	}
	fmt.Fprintf(c.out, "Connect via ssh -p %d %s%s\n", addr.Port, prefix, addr.Address)
}

func (c *CLI) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.pollInterval):
		return nil
	}
}
