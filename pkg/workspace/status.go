/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package workspace

import (
	corev1 "k8s.io/api/core/v1"
)

// Status is the observed state of a user workspace: the derived phase plus
// the raw objects it was derived from. Any of the object fields may be nil.
type Status struct {
	Phase   Phase
	Service *corev1.Service
	Pod     *corev1.Pod
	Node    *corev1.Node
}

// PublicAddress returns the address where the workspace SSH daemon can be
// reached, or empty when the pod is not scheduled yet. Can be an IP or a
// hostname.
func (s *Status) PublicAddress() string {
	if s.Node == nil {
		return ""
	}
	return NodeInternalIP(s.Node)
}

// SSHPort returns the node port forwarding to the workspace SSH daemon. The
// boolean is false while the cluster has not assigned one.
func (s *Status) SSHPort() (int32, bool) {
	if s.Service == nil {
		return 0, false
	}
	return ServiceFirstNodePort(s.Service)
}

// NodeInternalIP extracts the internal address of a node, or empty when the
// node does not report one.
func NodeInternalIP(node *corev1.Node) string {
	for _, addr := range node.Status.Addresses {
		if addr.Type == corev1.NodeInternalIP {
			return addr.Address
		}
	}
	return ""
}

// ServiceFirstNodePort extracts the node port of the service's first port.
func ServiceFirstNodePort(service *corev1.Service) (int32, bool) {
	if len(service.Spec.Ports) == 0 {
		return 0, false
	}
	if port := service.Spec.Ports[0].NodePort; port != 0 {
		return port, true
	}
	return 0, false
}
