/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package cliclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/refaktory/kube-workspace/pkg/api"
)

const (
	requestTimeout = 30 * time.Second

	// Responses carry a single workspace status and stay far below this.
	maxResponseBytes = 1 << 20
)

// APIError is an error response from the operator API. The message is
// shown to the user verbatim.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the operator query API on behalf of one user.
type Client struct {
	endpoint   string
	username   string
	sshKey     string
	httpClient *http.Client
}

func NewClient(cfg *Config) *Client {
	return &Client{
		endpoint:   cfg.Endpoint(),
		username:   cfg.Username,
		sshKey:     cfg.SSHKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// PodStart requests the workspace to be started and returns its status.
func (c *Client) PodStart(ctx context.Context) (*api.WorkspaceStatus, error) {
	query := api.Query{PodStart: &api.PodStartRequest{Username: c.username, SSHPublicKey: c.sshKey}}
	output, err := c.query(ctx, query)
	if err != nil {
		return nil, err
	}
	if output.PodStart == nil {
		return nil, fmt.Errorf("invalid API response: missing PodStart output")
	}
	return output.PodStart, nil
}

// PodStatus returns the current status of the workspace.
func (c *Client) PodStatus(ctx context.Context) (*api.WorkspaceStatus, error) {
	query := api.Query{PodStatus: &api.PodStatusRequest{Username: c.username, SSHPublicKey: c.sshKey}}
	output, err := c.query(ctx, query)
	if err != nil {
		return nil, err
	}
	if output.PodStatus == nil {
		return nil, fmt.Errorf("invalid API response: missing PodStatus output")
	}
	return output.PodStatus, nil
}

// PodStop requests the workspace to be shut down.
func (c *Client) PodStop(ctx context.Context) error {
	query := api.Query{PodStop: &api.PodStopRequest{Username: c.username, SSHPublicKey: c.sshKey}}
	output, err := c.query(ctx, query)
	if err != nil {
		return err
	}
	if output.PodStop == nil {
		return fmt.Errorf("invalid API response: missing PodStop output")
	}
	return nil
}

// query posts a single request to the API and unpacks the response
// envelope. Error responses are returned as APIError regardless of the
// HTTP status code.
func (c *Client) query(ctx context.Context, q api.Query) (*api.QueryOutput, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach the API at %s: %w", c.endpoint, err)
	}
	defer rsp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(rsp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read API response: %w", err)
	}
	var envelope api.Response
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid API response (status %s): %w", rsp.Status, err)
	}
	if envelope.Error != nil {
		return nil, &APIError{Message: envelope.Error.Message}
	}
	if envelope.Ok == nil {
		return nil, fmt.Errorf("invalid API response (status %s): neither Ok nor Error is set", rsp.Status)
	}
	return envelope.Ok, nil
}
