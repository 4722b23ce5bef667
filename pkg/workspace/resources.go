/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package workspace

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

const (
	// UserLabel carries the owning username on every workspace resource.
	UserLabel = "workspace-user"
	// PodLabel marks pods managed by this operator.
	PodLabel      = "workspace-pod"
	PodLabelValue = "true"

	// ContainerName is the main container of every workspace pod.
	ContainerName = "workspace"
	// DefaultImage is used when the pod template does not set one.
	DefaultImage = "ubuntu"

	sshPortName    = "ssh"
	homeVolumeName = "home"
)

// HomeVolumeName is the name of the user's persistent home volume claim.
func HomeVolumeName(username string) string {
	return "workspace-" + username
}

// ServiceName is the name of the user's SSH service.
func ServiceName(username string) string {
	return "workspace-" + username
}

// PodName is the name of the user's workspace pod.
func PodName(username string) string {
	return "workspace-" + username
}

// Labels returns the label set applied to workspace pods.
func Labels(username string) map[string]string {
	return map[string]string{
		PodLabel:  PodLabelValue,
		UserLabel: username,
	}
}

// PodSelector is the label selector matching all workspace pods.
func PodSelector() string {
	return PodLabel + "=" + PodLabelValue
}

// BuildHomeVolume constructs the claim backing the user's home directory.
// The claim is created once and retained across pod teardowns.
func BuildHomeVolume(namespace, username string, size resource.Quantity, storageClass *string) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      HomeVolumeName(username),
			Namespace: namespace,
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			StorageClassName: storageClass,
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: size,
				},
			},
		},
	}
}

// BuildUserService constructs the NodePort service exposing the user's SSH
// daemon. The cluster assigns the node port on creation.
func BuildUserService(namespace, username string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ServiceName(username),
			Namespace: namespace,
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{UserLabel: username},
			Ports: []corev1.ServicePort{
				{
					Name:       sshPortName,
					Port:       22,
					TargetPort: intstr.FromString(sshPortName),
				},
			},
			Type: corev1.ServiceTypeNodePort,
		},
	}
}

// RenderPod constructs the workspace pod from the configured template. The
// first template container becomes the main container: its name, command and
// readiness probe are overridden, while image, resources, mounts and ports
// from the template are preserved.
func RenderPod(namespace, username, sshPublicKey, claimName string, template corev1.PodSpec) *corev1.Pod {
	spec := template.DeepCopy()
	if len(spec.Containers) == 0 {
		spec.Containers = append(spec.Containers, corev1.Container{})
	}
	main := &spec.Containers[0]
	if main.Image == "" {
		main.Image = DefaultImage
	}
	main.Name = ContainerName
	main.Command = []string{"bash", "-c", setupScript(username, sshPublicKey)}
	main.VolumeMounts = append(main.VolumeMounts, corev1.VolumeMount{
		Name:      homeVolumeName,
		MountPath: "/home/" + username,
	})
	main.Ports = append(main.Ports, corev1.ContainerPort{
		Name:          sshPortName,
		ContainerPort: 22,
	})
	main.ReadinessProbe = &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			TCPSocket: &corev1.TCPSocketAction{
				Port: intstr.FromString(sshPortName),
			},
		},
		InitialDelaySeconds: 60,
		PeriodSeconds:       30,
		TimeoutSeconds:      3,
	}
	spec.Volumes = append(spec.Volumes, corev1.Volume{
		Name: homeVolumeName,
		VolumeSource: corev1.VolumeSource{
			PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
				ClaimName: claimName,
			},
		},
	})

	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      PodName(username),
			Namespace: namespace,
			Labels:    Labels(username),
		},
		Spec: *spec,
	}
}

// setupScript provisions the SSH daemon and the user account on container
// start. The user's home directory is the mounted persistent volume.
func setupScript(username, sshPublicKey string) string {
	steps := []string{
		"apt-get update",
		"apt-get install -y openssh-server",
		fmt.Sprintf("adduser --gecos \"\" --no-create-home --disabled-password %s", username),
		fmt.Sprintf("mkdir -p /home/%s/.ssh", username),
		fmt.Sprintf("echo '%s' > /home/%s/.ssh/authorized_keys", sshPublicKey, username),
		fmt.Sprintf("chown %s:%s /home/%s", username, username, username),
		fmt.Sprintf("chown %s:%s /home/%s/.ssh", username, username, username),
		fmt.Sprintf("chmod 755 /home/%s", username),
		fmt.Sprintf("chmod 755 /home/%s/.ssh", username),
		fmt.Sprintf("chmod 644 /home/%s/.ssh/authorized_keys", username),
		"service ssh start",
		"sleep infinity",
	}
	return strings.Join(steps, " && ")
}
