/*
 * Copyright (C) 2025-2025, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package k8sclient

import (
	"bytes"
	"context"
	"fmt"

	monitoringv1 "github.com/prometheus-operator/prometheus-operator/pkg/apis/monitoring/v1"
	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
	"k8s.io/metrics/pkg/apis/metrics/v1beta1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// listPageSize bounds a single list request; larger collections are read
// through the continue token.
const listPageSize = 500

// Interface is the cluster surface the operator is written against. *Client
// implements it; tests substitute fake-backed or stubbed implementations.
type Interface interface {
	GetNamespaceOpt(ctx context.Context, name string) (*corev1.Namespace, error)
	CreateNamespace(ctx context.Context, name string) error

	GetPersistentVolumeClaimOpt(ctx context.Context, namespace, name string) (*corev1.PersistentVolumeClaim, error)
	CreatePersistentVolumeClaim(ctx context.Context, namespace string, pvc *corev1.PersistentVolumeClaim) error

	GetServiceOpt(ctx context.Context, namespace, name string) (*corev1.Service, error)
	CreateService(ctx context.Context, namespace string, service *corev1.Service) error
	DeleteService(ctx context.Context, namespace, name string) error

	GetPodOpt(ctx context.Context, namespace, name string) (*corev1.Pod, error)
	CreatePod(ctx context.Context, namespace string, pod *corev1.Pod) error
	DeletePod(ctx context.Context, namespace, name string) error
	ListAllPods(ctx context.Context, namespace, labelSelector string) ([]corev1.Pod, error)
	PatchPodApply(ctx context.Context, namespace, name, fieldManager string, patch []byte) error
	PodExecStdout(ctx context.Context, namespace, podName, container string, command []string) (string, error)

	GetNodeOpt(ctx context.Context, name string) (*corev1.Node, error)

	ListAllPodMetrics(ctx context.Context, namespace string) ([]v1beta1.PodMetrics, error)

	GetCustomResourceDefinitionOpt(ctx context.Context, name string) (*apiextensionsv1.CustomResourceDefinition, error)
	GetServiceMonitorOpt(ctx context.Context, namespace, name string) (*monitoringv1.ServiceMonitor, error)
	CreateServiceMonitor(ctx context.Context, namespace string, monitor *monitoringv1.ServiceMonitor) error
}

var _ Interface = &Client{}

// GetNamespaceOpt retrieves a namespace, returning nil without error when it
// does not exist.
func (c *Client) GetNamespaceOpt(ctx context.Context, name string) (*corev1.Namespace, error) {
	namespace, err := c.clientSet.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, client.IgnoreNotFound(err)
	}
	return namespace, nil
}

func (c *Client) CreateNamespace(ctx context.Context, name string) error {
	namespace := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name},
	}
	_, err := c.clientSet.CoreV1().Namespaces().Create(ctx, namespace, metav1.CreateOptions{})
	return err
}

// GetPersistentVolumeClaimOpt retrieves a claim, returning nil without error
// when it does not exist.
func (c *Client) GetPersistentVolumeClaimOpt(ctx context.Context, namespace, name string) (*corev1.PersistentVolumeClaim, error) {
	claim, err := c.clientSet.CoreV1().PersistentVolumeClaims(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, client.IgnoreNotFound(err)
	}
	return claim, nil
}

func (c *Client) CreatePersistentVolumeClaim(ctx context.Context, namespace string, pvc *corev1.PersistentVolumeClaim) error {
	_, err := c.clientSet.CoreV1().PersistentVolumeClaims(namespace).Create(ctx, pvc, metav1.CreateOptions{})
	return err
}

// GetServiceOpt retrieves a service, returning nil without error when it
// does not exist.
func (c *Client) GetServiceOpt(ctx context.Context, namespace, name string) (*corev1.Service, error) {
	service, err := c.clientSet.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, client.IgnoreNotFound(err)
	}
	return service, nil
}

func (c *Client) CreateService(ctx context.Context, namespace string, service *corev1.Service) error {
	_, err := c.clientSet.CoreV1().Services(namespace).Create(ctx, service, metav1.CreateOptions{})
	return err
}

func (c *Client) DeleteService(ctx context.Context, namespace, name string) error {
	return c.clientSet.CoreV1().Services(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}

// GetPodOpt retrieves a pod, returning nil without error when it does not
// exist.
func (c *Client) GetPodOpt(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	pod, err := c.clientSet.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, client.IgnoreNotFound(err)
	}
	return pod, nil
}

func (c *Client) CreatePod(ctx context.Context, namespace string, pod *corev1.Pod) error {
	_, err := c.clientSet.CoreV1().Pods(namespace).Create(ctx, pod, metav1.CreateOptions{})
	return err
}

func (c *Client) DeletePod(ctx context.Context, namespace, name string) error {
	return c.clientSet.CoreV1().Pods(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}

// ListAllPods retrieves every pod in the namespace matching the label
// selector, following the continue token across pages.
func (c *Client) ListAllPods(ctx context.Context, namespace, labelSelector string) ([]corev1.Pod, error) {
	var results []corev1.Pod
	opts := metav1.ListOptions{LabelSelector: labelSelector, Limit: listPageSize}
	for {
		podList, err := c.clientSet.CoreV1().Pods(namespace).List(ctx, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, podList.Items...)
		if podList.Continue == "" {
			return results, nil
		}
		opts.Continue = podList.Continue
	}
}

// PatchPodApply submits a server-side apply patch for the pod under the
// given field manager.
func (c *Client) PatchPodApply(ctx context.Context, namespace, name, fieldManager string, patch []byte) error {
	_, err := c.clientSet.CoreV1().Pods(namespace).Patch(ctx, name, types.ApplyPatchType, patch,
		metav1.PatchOptions{FieldManager: fieldManager})
	return err
}

// PodExecStdout runs the command in the pod's container and returns its
// standard output. Standard error is discarded.
func (c *Client) PodExecStdout(ctx context.Context, namespace, podName, container string, command []string) (string, error) {
	req := c.clientSet.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(podName).
		Namespace(namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: container,
			Command:   command,
			Stdout:    true,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(c.restConfig, "POST", req.URL())
	if err != nil {
		return "", fmt.Errorf("failed to create SPDY executor: %v", err)
	}
	var stdout bytes.Buffer
	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: &stdout,
	})
	if err != nil {
		return "", err
	}
	return stdout.String(), nil
}

// GetNodeOpt retrieves a node, returning nil without error when it does not
// exist.
func (c *Client) GetNodeOpt(ctx context.Context, name string) (*corev1.Node, error) {
	node, err := c.clientSet.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, client.IgnoreNotFound(err)
	}
	return node, nil
}

// ListAllPodMetrics retrieves the metrics-server usage documents for every
// pod in the namespace, following the continue token across pages.
func (c *Client) ListAllPodMetrics(ctx context.Context, namespace string) ([]v1beta1.PodMetrics, error) {
	var results []v1beta1.PodMetrics
	opts := metav1.ListOptions{Limit: listPageSize}
	for {
		metricsList, err := c.metricsClient.MetricsV1beta1().PodMetricses(namespace).List(ctx, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, metricsList.Items...)
		if metricsList.Continue == "" {
			return results, nil
		}
		opts.Continue = metricsList.Continue
	}
}

// GetCustomResourceDefinitionOpt retrieves a CRD, returning nil without
// error when it does not exist.
func (c *Client) GetCustomResourceDefinitionOpt(ctx context.Context, name string) (*apiextensionsv1.CustomResourceDefinition, error) {
	crd, err := c.apiextensionsClient.ApiextensionsV1().CustomResourceDefinitions().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, client.IgnoreNotFound(err)
	}
	return crd, nil
}

// GetServiceMonitorOpt retrieves a prometheus-operator ServiceMonitor,
// returning nil without error when it does not exist.
func (c *Client) GetServiceMonitorOpt(ctx context.Context, namespace, name string) (*monitoringv1.ServiceMonitor, error) {
	monitor, err := c.monitoringClient.MonitoringV1().ServiceMonitors(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, client.IgnoreNotFound(err)
	}
	return monitor, nil
}

func (c *Client) CreateServiceMonitor(ctx context.Context, namespace string, monitor *monitoringv1.ServiceMonitor) error {
	_, err := c.monitoringClient.MonitoringV1().ServiceMonitors(namespace).Create(ctx, monitor, metav1.CreateOptions{})
	return err
}
