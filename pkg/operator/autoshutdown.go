/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package operator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	applycorev1 "k8s.io/client-go/applyconfigurations/core/v1"
	"k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/refaktory/kube-workspace/pkg/config"
	"github.com/refaktory/kube-workspace/pkg/quantity"
	"github.com/refaktory/kube-workspace/pkg/workspace"
)

const (
	// IdleAnnotationKey holds the serialized PodIdleData on workspace pods.
	IdleAnnotationKey = "kube-workspaces.foundational.cc/pod-data"
	// FieldManager is the server-side-apply manager name for the idle
	// annotation patches.
	FieldManager = "kube-workspaces.foundational.cc"

	// idleCheckStaleness is the maximum age of the previous check before its
	// idle observations are discarded.
	idleCheckStaleness = 5 * time.Minute
)

// PodIdleData is the idle tracking state persisted as a pod annotation
// between sweep ticks. A nil since-field means the dimension was not idle at
// the last check.
type PodIdleData struct {
	LastIdleCheck    *metav1.Time `json:"last_idle_check"`
	CPUIdleSince     *metav1.Time `json:"cpu_idle_since"`
	NetworkIdleSince *metav1.Time `json:"network_idle_since"`
}

// IdleDataFromPod reads the idle annotation from a pod. Missing or
// unparsable annotations yield the zero value, which restarts tracking.
func IdleDataFromPod(pod *corev1.Pod) PodIdleData {
	raw, ok := pod.Annotations[IdleAnnotationKey]
	if !ok {
		return PodIdleData{}
	}
	var data PodIdleData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return PodIdleData{}
	}
	return data
}

// Patch renders the server-side-apply fragment that persists the idle data,
// touching nothing but the annotation.
func (d PodIdleData) Patch(podName, namespace string) ([]byte, error) {
	encoded, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	patch := applycorev1.Pod(podName, namespace).
		WithAnnotations(map[string]string{IdleAnnotationKey: string(encoded)})
	return json.Marshal(patch)
}

// ShouldShutdown decides whether a pod has been idle long enough to be shut
// down. Every configured dimension must individually exceed its minimum
// idle time; an unconfigured dimension imposes no constraint. With no
// dimension configured the answer is always false.
func ShouldShutdown(data PodIdleData, cfg config.AutoShutdown, now time.Time) bool {
	shutdown := false

	if tcp := cfg.TCPIdle; tcp != nil {
		if data.NetworkIdleSince == nil {
			return false
		}
		if now.Sub(data.NetworkIdleSince.Time) <= time.Duration(tcp.MinimumIdleTime) {
			return false
		}
		shutdown = true
	}

	if cpu := cfg.CPUUsage; cpu != nil {
		if data.CPUIdleSince == nil {
			return false
		}
		if now.Sub(data.CPUIdleSince.Time) <= time.Duration(cpu.MinimumIdleTime) {
			return false
		}
		shutdown = true
	}

	return shutdown
}

// analyzePodIdle computes the next idle state for a pod from the current
// metrics and live TCP connections. Stale previous checks are discarded
// first so an operator downtime cannot accumulate phantom idle time.
func (o *Operator) analyzePodIdle(ctx context.Context, pod *corev1.Pod, podMetrics *v1beta1.PodMetrics) (PodIdleData, error) {
	now := metav1.NewTime(time.Now().UTC())

	data := IdleDataFromPod(pod)
	if data.LastIdleCheck != nil && now.Sub(data.LastIdleCheck.Time) > idleCheckStaleness {
		data.CPUIdleSince = nil
		data.NetworkIdleSince = nil
	}

	cpuIsIdle := false
	if cpuCfg := o.config.AutoShutdown.CPUUsage; cpuCfg != nil && podMetrics != nil {
		totalCPU, err := quantity.PodCPUTotal(podMetrics)
		if err != nil {
			return PodIdleData{}, err
		}
		cpuIsIdle = totalCPU < cpuCfg.CPUThreshold
	}

	activeConnections, err := o.countActiveTCPConnections(ctx, pod.Name)
	if err != nil {
		return PodIdleData{}, fmt.Errorf("could not determine active TCP connections of pod: %v", err)
	}
	networkIsIdle := activeConnections == 0

	next := PodIdleData{LastIdleCheck: &now}
	if cpuIsIdle {
		next.CPUIdleSince = &now
		if data.CPUIdleSince != nil {
			next.CPUIdleSince = data.CPUIdleSince
		}
	}
	if networkIsIdle {
		next.NetworkIdleSince = &now
		if data.NetworkIdleSince != nil {
			next.NetworkIdleSince = data.NetworkIdleSince
		}
	}
	return next, nil
}

// countActiveTCPConnections counts the active TCP connections reported by ss
// inside the workspace container. Listening sockets are not included.
func (o *Operator) countActiveTCPConnections(ctx context.Context, podName string) (int, error) {
	stdout, err := o.client.PodExecStdout(ctx, o.namespace(), podName, workspace.ContainerName,
		[]string{"ss", "--tcp", "--oneline", "--no-header"})
	if err != nil {
		return 0, err
	}
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return 0, nil
	}
	return len(strings.Split(trimmed, "\n")), nil
}
