/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

// Package operator owns every interaction with the cluster: reconciling the
// per-user workspace triplet, deriving workspace status and sweeping idle
// pods.
package operator

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/klog/v2"

	"github.com/refaktory/kube-workspace/pkg/config"
	"github.com/refaktory/kube-workspace/pkg/k8sclient"
	"github.com/refaktory/kube-workspace/pkg/metrics"
	"github.com/refaktory/kube-workspace/pkg/workspace"
)

// Operator reconciles user workspaces. Configuration is immutable after
// startup; the operator is safe for concurrent use by the HTTP handlers and
// the sweep loop.
type Operator struct {
	config  *config.Config
	client  k8sclient.Interface
	metrics *metrics.OperatorMetrics
}

func New(cfg *config.Config, client k8sclient.Interface, operatorMetrics *metrics.OperatorMetrics) *Operator {
	return &Operator{
		config:  cfg,
		client:  client,
		metrics: operatorMetrics,
	}
}

// Config returns the operator configuration.
func (o *Operator) Config() *config.Config {
	return o.config
}

func (o *Operator) namespace() string {
	return o.config.Namespace
}

// EnsureNamespace checks that the configured namespace exists, creating it
// when auto-creation is enabled. Without auto-creation a missing namespace
// is fatal.
func (o *Operator) EnsureNamespace(ctx context.Context) error {
	klog.V(5).Infof("checking namespace %s", o.namespace())
	namespace, err := o.client.GetNamespaceOpt(ctx, o.namespace())
	if err != nil {
		return err
	}
	if namespace == nil {
		if !o.config.AutoCreateNamespace {
			klog.Errorf("namespace %s does not exist and auto-creation is not enabled, aborting", o.namespace())
			return fmt.Errorf("bootstrap failed: namespace %s does not exist", o.namespace())
		}
		klog.Warningf("namespace %s does not exist, attempting to create", o.namespace())
		if err = o.client.CreateNamespace(ctx, o.namespace()); err != nil {
			return fmt.Errorf("could not create namespace: %w", err)
		}
		klog.Infof("namespace %s created", o.namespace())
	}
	klog.V(4).Infof("namespace %s ready", o.namespace())
	return nil
}

// EnsureUserHomeVolume makes sure the user's persistent home volume exists.
// An existing claim is returned unchanged, its size is never reconciled.
func (o *Operator) EnsureUserHomeVolume(ctx context.Context, user *config.User) (*corev1.PersistentVolumeClaim, error) {
	claimName := workspace.HomeVolumeName(user.Username)
	claim, err := o.client.GetPersistentVolumeClaimOpt(ctx, o.namespace(), claimName)
	if err != nil {
		return nil, err
	}
	if claim != nil {
		return claim, nil
	}

	claim = workspace.BuildHomeVolume(o.namespace(), user.Username, o.config.MaxHomeVolumeSize, o.config.StorageClass)
	if err = o.client.CreatePersistentVolumeClaim(ctx, o.namespace(), claim); err != nil {
		return nil, fmt.Errorf("could not create persistent volume for user home directory: %w", err)
	}
	return claim, nil
}

// EnsureUserService makes sure the user's SSH NodePort service exists.
func (o *Operator) EnsureUserService(ctx context.Context, user *config.User) (*corev1.Service, error) {
	serviceName := workspace.ServiceName(user.Username)
	service, err := o.client.GetServiceOpt(ctx, o.namespace(), serviceName)
	if err != nil {
		return nil, err
	}
	if service != nil {
		return service, nil
	}

	service = workspace.BuildUserService(o.namespace(), user.Username)
	if err = o.client.CreateService(ctx, o.namespace(), service); err != nil {
		return nil, fmt.Errorf("could not create service for user: %w", err)
	}
	return service, nil
}

// GetUserPodOpt retrieves the user's workspace pod, or nil when none exists.
func (o *Operator) GetUserPodOpt(ctx context.Context, user *config.User) (*corev1.Pod, error) {
	return o.client.GetPodOpt(ctx, o.namespace(), workspace.PodName(user.Username))
}

func (o *Operator) createUserPod(ctx context.Context, user *config.User) (*corev1.Pod, error) {
	podName := workspace.PodName(user.Username)
	klog.V(4).Infof("creating pod %s for user %s", podName, user.Username)

	homeVolume, err := o.EnsureUserHomeVolume(ctx, user)
	if err != nil {
		return nil, err
	}

	pod := workspace.RenderPod(o.namespace(), user.Username, user.SSHPublicKey,
		homeVolume.Name, o.config.PodTemplate)
	if err = o.client.CreatePod(ctx, o.namespace(), pod); err != nil {
		return nil, fmt.Errorf("could not create pod for user: %w", err)
	}
	klog.Infof("pod %s created for user %s", podName, user.Username)
	return pod, nil
}

// EnsureUserPod reconciles the full workspace triplet for the user: the home
// volume, the service and finally the pod, creating whatever is missing. It
// returns the observed state of the workspace afterwards.
func (o *Operator) EnsureUserPod(ctx context.Context, user *config.User) (*workspace.Status, error) {
	klog.V(4).Infof("ensuring pod for user %s", user.Username)
	if _, err := o.EnsureUserHomeVolume(ctx, user); err != nil {
		return nil, err
	}
	service, err := o.EnsureUserService(ctx, user)
	if err != nil {
		return nil, err
	}

	pod, err := o.GetUserPodOpt(ctx, user)
	if err != nil {
		return nil, err
	}
	if pod == nil {
		if pod, err = o.createUserPod(ctx, user); err != nil {
			return nil, err
		}
	}

	var node *corev1.Node
	if pod.Spec.NodeName != "" {
		if node, err = o.client.GetNodeOpt(ctx, pod.Spec.NodeName); err != nil {
			return nil, err
		}
	}

	klog.Infof("pod %s for user %s ensured", pod.Name, user.Username)
	return &workspace.Status{
		Phase:   workspace.Classify(pod),
		Service: service,
		Pod:     pod,
		Node:    node,
	}, nil
}

// WorkspaceStatus derives the current state of the user's workspace without
// mutating anything. A missing pod yields the not-found phase; a service
// that survived an auto-shutdown is passed through regardless.
func (o *Operator) WorkspaceStatus(ctx context.Context, user *config.User) (*workspace.Status, error) {
	service, err := o.client.GetServiceOpt(ctx, o.namespace(), workspace.ServiceName(user.Username))
	if err != nil {
		return nil, err
	}
	pod, err := o.GetUserPodOpt(ctx, user)
	if err != nil {
		return nil, err
	}

	if service == nil || pod == nil {
		return &workspace.Status{
			Phase:   workspace.PhaseNotFound,
			Service: service,
		}, nil
	}

	var node *corev1.Node
	if pod.Spec.NodeName != "" {
		if node, err = o.client.GetNodeOpt(ctx, pod.Spec.NodeName); err != nil {
			return nil, err
		}
	}
	return &workspace.Status{
		Phase:   workspace.Classify(pod),
		Service: service,
		Pod:     pod,
		Node:    node,
	}, nil
}

// ShutdownUserPod deletes the user's pod and service. The home volume is
// preserved. The operation is not transactional: a failure after the pod
// deletion leaves the service behind until the next ensure.
func (o *Operator) ShutdownUserPod(ctx context.Context, user *config.User) error {
	podName := workspace.PodName(user.Username)
	klog.V(4).Infof("deleting pod %s of user %s", podName, user.Username)
	if err := o.client.DeletePod(ctx, o.namespace(), podName); err != nil {
		return err
	}
	if err := o.client.DeleteService(ctx, o.namespace(), workspace.ServiceName(user.Username)); err != nil {
		return err
	}
	klog.Infof("pod %s of user %s deleted", podName, user.Username)
	return nil
}
