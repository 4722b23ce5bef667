/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

// Package api defines the wire types of the workspace query API. Both the
// operator's HTTP handlers and the command line client speak this format.
//
// Requests and responses are externally tagged: the request body carries
// exactly one of the variant keys (PodStart, PodStatus, PodStop), and a
// successful response wraps the matching output variant in an Ok envelope.
package api

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/refaktory/kube-workspace/pkg/workspace"
)

// Query is the request union of the /api/query endpoint. Exactly one
// variant must be set.
type Query struct {
	PodStart  *PodStartRequest  `json:"PodStart,omitempty"`
	PodStatus *PodStatusRequest `json:"PodStatus,omitempty"`
	PodStop   *PodStopRequest   `json:"PodStop,omitempty"`
}

type PodStartRequest struct {
	Username     string `json:"username"`
	SSHPublicKey string `json:"ssh_public_key"`
}

type PodStatusRequest struct {
	Username     string `json:"username"`
	SSHPublicKey string `json:"ssh_public_key"`
}

type PodStopRequest struct {
	Username     string `json:"username"`
	SSHPublicKey string `json:"ssh_public_key"`
}

// QueryOutput is the success payload. The set variant mirrors the request
// variant.
type QueryOutput struct {
	PodStart  *WorkspaceStatus `json:"PodStart,omitempty"`
	PodStatus *WorkspaceStatus `json:"PodStatus,omitempty"`
	PodStop   *PodStopOutput   `json:"PodStop,omitempty"`
}

// PodStopOutput carries no fields. Stopping an absent workspace is a
// success no-op.
type PodStopOutput struct{}

// Response is the outer envelope: either Ok with the query output or Error
// with a human readable message.
type Response struct {
	Ok    *QueryOutput `json:"Ok,omitempty"`
	Error *Error       `json:"Error,omitempty"`
}

type Error struct {
	Message string `json:"message"`
}

// SSHAddress is the externally reachable SSH endpoint of a workspace.
type SSHAddress struct {
	Address string `json:"address"`
	Port    int32  `json:"port"`
}

// WorkspaceInfo describes the running workspace container.
type WorkspaceInfo struct {
	// The OCI image the container is running.
	Image       string             `json:"image"`
	MemoryLimit *resource.Quantity `json:"memory_limit"`
	CPULimit    *resource.Quantity `json:"cpu_limit"`
}

// WorkspaceStatus is the output of the PodStart and PodStatus queries.
// SSHAddress and Info are null while the workspace is not running.
type WorkspaceStatus struct {
	Username   string          `json:"username"`
	Phase      workspace.Phase `json:"phase"`
	SSHAddress *SSHAddress     `json:"ssh_address"`
	Info       *WorkspaceInfo  `json:"info"`
}

// WorkspaceInfoFromPod extracts the reported container details from the
// first container of the pod spec.
func WorkspaceInfoFromPod(pod *corev1.Pod) *WorkspaceInfo {
	info := &WorkspaceInfo{Image: "<unknown>"}
	if len(pod.Spec.Containers) == 0 {
		return info
	}
	container := &pod.Spec.Containers[0]
	if container.Image != "" {
		info.Image = container.Image
	}
	if limit, ok := container.Resources.Limits[corev1.ResourceMemory]; ok {
		info.MemoryLimit = &limit
	}
	if limit, ok := container.Resources.Limits[corev1.ResourceCPU]; ok {
		info.CPULimit = &limit
	}
	return info
}
