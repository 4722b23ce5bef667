/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/refaktory/kube-workspace/pkg/api"
	"github.com/refaktory/kube-workspace/pkg/apiutils"
	"github.com/refaktory/kube-workspace/pkg/config"
	kwerrors "github.com/refaktory/kube-workspace/pkg/errors"
	"github.com/refaktory/kube-workspace/pkg/operator"
	"github.com/refaktory/kube-workspace/pkg/workspace"
)

type handleFunc func(*gin.Context) (interface{}, error)

// handle executes the handler function and processes the response/error.
func handle(c *gin.Context, fn handleFunc) {
	response, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Handler serves the workspace query API on top of the operator.
type Handler struct {
	operator *operator.Operator
}

func NewHandler(op *operator.Operator) *Handler {
	return &Handler{operator: op}
}

// Health reports liveness. No cluster access is involved.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Query decodes the tagged query body, dispatches it and wraps the output
// in the Ok envelope.
func (h *Handler) Query(c *gin.Context) (interface{}, error) {
	query := &api.Query{}
	if _, err := apiutils.ParseRequestBody(c.Request, query); err != nil {
		return nil, err
	}
	output, err := h.runQuery(c.Request.Context(), query)
	if err != nil {
		return nil, err
	}
	klog.V(5).InfoS("query resolved", "output", output)
	return api.Response{Ok: output}, nil
}

// runQuery authenticates the request and executes the selected variant.
// Every variant carries credentials, and verification happens before any
// cluster access.
func (h *Handler) runQuery(ctx context.Context, query *api.Query) (*api.QueryOutput, error) {
	cfg := h.operator.Config()

	variants := 0
	for _, set := range []bool{query.PodStart != nil, query.PodStatus != nil, query.PodStop != nil} {
		if set {
			variants++
		}
	}
	if variants != 1 {
		return nil, kwerrors.NewBadRequest("the query must contain exactly one of PodStart, PodStatus or PodStop")
	}

	switch {
	case query.PodStart != nil:
		user, err := cfg.VerifyUser(query.PodStart.Username, query.PodStart.SSHPublicKey)
		if err != nil {
			return nil, err
		}
		status, err := h.operator.EnsureUserPod(ctx, user)
		if err != nil {
			return nil, err
		}
		return &api.QueryOutput{PodStart: workspaceStatusOutput(user, status)}, nil

	case query.PodStatus != nil:
		user, err := cfg.VerifyUser(query.PodStatus.Username, query.PodStatus.SSHPublicKey)
		if err != nil {
			return nil, err
		}
		status, err := h.operator.WorkspaceStatus(ctx, user)
		if err != nil {
			return nil, err
		}
		return &api.QueryOutput{PodStatus: workspaceStatusOutput(user, status)}, nil

	case query.PodStop != nil:
		user, err := cfg.VerifyUser(query.PodStop.Username, query.PodStop.SSHPublicKey)
		if err != nil {
			return nil, err
		}
		pod, err := h.operator.GetUserPodOpt(ctx, user)
		if err != nil {
			return nil, err
		}
		if pod != nil {
			if err := h.operator.ShutdownUserPod(ctx, user); err != nil {
				return nil, err
			}
		}
		return &api.QueryOutput{PodStop: &api.PodStopOutput{}}, nil
	}
	return nil, kwerrors.NewBadRequest("the query must contain exactly one of PodStart, PodStatus or PodStop")
}

// workspaceStatusOutput joins the observed workspace state with the public
// SSH endpoint. The endpoint is only reported when both the node address
// and the service node port are known.
func workspaceStatusOutput(user *config.User, status *workspace.Status) *api.WorkspaceStatus {
	out := &api.WorkspaceStatus{
		Username: user.Username,
		Phase:    status.Phase,
	}
	address := status.PublicAddress()
	if port, ok := status.SSHPort(); ok && address != "" {
		out.SSHAddress = &api.SSHAddress{Address: address, Port: port}
	}
	if status.Pod != nil {
		out.Info = api.WorkspaceInfoFromPod(status.Pod)
	}
	return out
}
