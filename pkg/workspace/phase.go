/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package workspace

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/klog/v2"
)

// Phase is the coarse lifecycle state of a user workspace as observed from
// its pod. The values are wire-stable and appear verbatim in API responses.
type Phase string

const (
	PhaseNotFound    Phase = "not_found"
	PhaseStarting    Phase = "starting"
	PhaseReady       Phase = "ready"
	PhaseTerminating Phase = "terminating"
	PhaseUnknown     Phase = "unknown"
)

// Classify derives the workspace phase from a pod. A set deletion timestamp
// wins over everything else.
func Classify(pod *corev1.Pod) Phase {
	if pod.DeletionTimestamp != nil {
		return PhaseTerminating
	}
	switch pod.Status.Phase {
	case corev1.PodPending:
		return PhaseStarting
	case corev1.PodRunning:
		if PodContainersReady(pod) {
			return PhaseReady
		}
		return PhaseStarting
	case corev1.PodSucceeded, corev1.PodFailed:
		return PhaseTerminating
	case corev1.PodUnknown, "":
		return PhaseUnknown
	default:
		klog.Warningf("unhandled pod status %q for pod %s - please file a bug report",
			pod.Status.Phase, pod.Name)
		return PhaseUnknown
	}
}

// PodContainersReady reports whether every container of the pod is ready,
// meaning it is running and passing its readiness probe if one is
// configured. A pod without container statuses is not ready.
func PodContainersReady(pod *corev1.Pod) bool {
	if len(pod.Status.ContainerStatuses) == 0 {
		return false
	}
	for _, status := range pod.Status.ContainerStatuses {
		if !status.Ready {
			return false
		}
	}
	return true
}
