/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package workspace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
)

func TestResourceNames(t *testing.T) {
	assert.Equal(t, "workspace-alice", HomeVolumeName("alice"))
	assert.Equal(t, "workspace-alice", ServiceName("alice"))
	assert.Equal(t, "workspace-alice", PodName("alice"))
	assert.Equal(t, map[string]string{"workspace-pod": "true", "workspace-user": "alice"}, Labels("alice"))
	assert.Equal(t, "workspace-pod=true", PodSelector())
}

func TestBuildHomeVolume(t *testing.T) {
	claim := BuildHomeVolume("ws", "alice", resource.MustParse("10Gi"), nil)
	assert.Equal(t, "workspace-alice", claim.Name)
	assert.Equal(t, "ws", claim.Namespace)
	assert.Nil(t, claim.Spec.StorageClassName)
	assert.Equal(t, []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce}, claim.Spec.AccessModes)
	storage := claim.Spec.Resources.Requests[corev1.ResourceStorage]
	assert.Equal(t, int64(10*(1<<30)), storage.Value())

	claim = BuildHomeVolume("ws", "alice", resource.MustParse("10Gi"), ptr.To("fast-ssd"))
	require.NotNil(t, claim.Spec.StorageClassName)
	assert.Equal(t, "fast-ssd", *claim.Spec.StorageClassName)
}

func TestBuildUserService(t *testing.T) {
	service := BuildUserService("ws", "alice")
	assert.Equal(t, "workspace-alice", service.Name)
	assert.Equal(t, "ws", service.Namespace)
	assert.Equal(t, corev1.ServiceTypeNodePort, service.Spec.Type)
	assert.Equal(t, map[string]string{"workspace-user": "alice"}, service.Spec.Selector)
	require.Len(t, service.Spec.Ports, 1)
	port := service.Spec.Ports[0]
	assert.Equal(t, "ssh", port.Name)
	assert.Equal(t, int32(22), port.Port)
	assert.Equal(t, intstr.FromString("ssh"), port.TargetPort)
}

func TestRenderPodFromEmptyTemplate(t *testing.T) {
	pod := RenderPod("ws", "alice", "ssh-ed25519 AAA alice@host", "workspace-alice", corev1.PodSpec{})

	assert.Equal(t, "workspace-alice", pod.Name)
	assert.Equal(t, "ws", pod.Namespace)
	assert.Equal(t, map[string]string{"workspace-pod": "true", "workspace-user": "alice"}, pod.Labels)

	require.Len(t, pod.Spec.Containers, 1)
	main := pod.Spec.Containers[0]
	assert.Equal(t, "workspace", main.Name)
	assert.Equal(t, "ubuntu", main.Image)

	require.Len(t, main.Command, 3)
	assert.Equal(t, []string{"bash", "-c"}, main.Command[:2])
	script := main.Command[2]
	assert.True(t, strings.HasPrefix(script, "apt-get update && apt-get install -y openssh-server"))
	assert.Contains(t, script, `adduser --gecos "" --no-create-home --disabled-password alice`)
	assert.Contains(t, script, "echo 'ssh-ed25519 AAA alice@host' > /home/alice/.ssh/authorized_keys")
	assert.Contains(t, script, "chmod 644 /home/alice/.ssh/authorized_keys")
	assert.True(t, strings.HasSuffix(script, "service ssh start && sleep infinity"))

	require.Len(t, main.VolumeMounts, 1)
	assert.Equal(t, "home", main.VolumeMounts[0].Name)
	assert.Equal(t, "/home/alice", main.VolumeMounts[0].MountPath)

	require.Len(t, main.Ports, 1)
	assert.Equal(t, "ssh", main.Ports[0].Name)
	assert.Equal(t, int32(22), main.Ports[0].ContainerPort)

	require.NotNil(t, main.ReadinessProbe)
	require.NotNil(t, main.ReadinessProbe.TCPSocket)
	assert.Equal(t, intstr.FromString("ssh"), main.ReadinessProbe.TCPSocket.Port)
	assert.Equal(t, int32(60), main.ReadinessProbe.InitialDelaySeconds)
	assert.Equal(t, int32(30), main.ReadinessProbe.PeriodSeconds)
	assert.Equal(t, int32(3), main.ReadinessProbe.TimeoutSeconds)

	require.Len(t, pod.Spec.Volumes, 1)
	require.NotNil(t, pod.Spec.Volumes[0].PersistentVolumeClaim)
	assert.Equal(t, "home", pod.Spec.Volumes[0].Name)
	assert.Equal(t, "workspace-alice", pod.Spec.Volumes[0].PersistentVolumeClaim.ClaimName)
}

func TestRenderPodPreservesTemplate(t *testing.T) {
	template := corev1.PodSpec{
		Containers: []corev1.Container{
			{
				Name:  "custom-name",
				Image: "ubuntu:24.04",
				Resources: corev1.ResourceRequirements{
					Limits: corev1.ResourceList{
						corev1.ResourceMemory: resource.MustParse("4Gi"),
					},
				},
				VolumeMounts: []corev1.VolumeMount{{Name: "scratch", MountPath: "/scratch"}},
				Ports:        []corev1.ContainerPort{{Name: "debug", ContainerPort: 9229}},
			},
		},
		NodeSelector: map[string]string{"pool": "workspaces"},
	}

	pod := RenderPod("ws", "bob", "ssh-rsa BBB", "workspace-bob", template)

	// The template itself must stay untouched.
	assert.Equal(t, "custom-name", template.Containers[0].Name)
	assert.Len(t, template.Containers[0].VolumeMounts, 1)

	require.Len(t, pod.Spec.Containers, 1)
	main := pod.Spec.Containers[0]
	assert.Equal(t, "workspace", main.Name, "container name is always overridden")
	assert.Equal(t, "ubuntu:24.04", main.Image, "template image is kept")
	assert.Equal(t, "4Gi", main.Resources.Limits.Memory().String())

	require.Len(t, main.VolumeMounts, 2)
	assert.Equal(t, "scratch", main.VolumeMounts[0].Name)
	assert.Equal(t, "home", main.VolumeMounts[1].Name)

	require.Len(t, main.Ports, 2)
	assert.Equal(t, "debug", main.Ports[0].Name)
	assert.Equal(t, "ssh", main.Ports[1].Name)

	assert.Equal(t, map[string]string{"pool": "workspaces"}, pod.Spec.NodeSelector)
	require.Len(t, pod.Spec.Volumes, 1)
	assert.Equal(t, "workspace-bob", pod.Spec.Volumes[0].PersistentVolumeClaim.ClaimName)
}
