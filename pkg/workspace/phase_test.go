/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package workspace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestClassify(t *testing.T) {
	now := metav1.NewTime(time.Now())

	tests := []struct {
		name string
		pod  corev1.Pod
		want Phase
	}{
		{
			name: "deletion timestamp wins over running",
			pod: corev1.Pod{
				ObjectMeta: metav1.ObjectMeta{DeletionTimestamp: &now},
				Status: corev1.PodStatus{
					Phase:             corev1.PodRunning,
					ContainerStatuses: []corev1.ContainerStatus{{Ready: true}},
				},
			},
			want: PhaseTerminating,
		},
		{
			name: "pending",
			pod:  corev1.Pod{Status: corev1.PodStatus{Phase: corev1.PodPending}},
			want: PhaseStarting,
		},
		{
			name: "running with all containers ready",
			pod: corev1.Pod{
				Status: corev1.PodStatus{
					Phase:             corev1.PodRunning,
					ContainerStatuses: []corev1.ContainerStatus{{Ready: true}, {Ready: true}},
				},
			},
			want: PhaseReady,
		},
		{
			name: "running with an unready container",
			pod: corev1.Pod{
				Status: corev1.PodStatus{
					Phase:             corev1.PodRunning,
					ContainerStatuses: []corev1.ContainerStatus{{Ready: true}, {Ready: false}},
				},
			},
			want: PhaseStarting,
		},
		{
			name: "running without container statuses",
			pod:  corev1.Pod{Status: corev1.PodStatus{Phase: corev1.PodRunning}},
			want: PhaseStarting,
		},
		{
			name: "succeeded",
			pod:  corev1.Pod{Status: corev1.PodStatus{Phase: corev1.PodSucceeded}},
			want: PhaseTerminating,
		},
		{
			name: "failed",
			pod:  corev1.Pod{Status: corev1.PodStatus{Phase: corev1.PodFailed}},
			want: PhaseTerminating,
		},
		{
			name: "unknown",
			pod:  corev1.Pod{Status: corev1.PodStatus{Phase: corev1.PodUnknown}},
			want: PhaseUnknown,
		},
		{
			name: "empty phase",
			pod:  corev1.Pod{},
			want: PhaseUnknown,
		},
		{
			name: "unhandled phase string",
			pod:  corev1.Pod{Status: corev1.PodStatus{Phase: "Evicted"}},
			want: PhaseUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(&tt.pod))
		})
	}
}

func TestPodContainersReady(t *testing.T) {
	assert.False(t, PodContainersReady(&corev1.Pod{}), "no container statuses")
	assert.True(t, PodContainersReady(&corev1.Pod{
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{{Ready: true}},
		},
	}))
	assert.False(t, PodContainersReady(&corev1.Pod{
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{{Ready: true}, {Ready: false}},
		},
	}))
}
