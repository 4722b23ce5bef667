/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package operator

import (
	"context"
	"fmt"
	"time"

	monitoringv1 "github.com/prometheus-operator/prometheus-operator/pkg/apis/monitoring/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
	"k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/refaktory/kube-workspace/pkg/workspace"
)

const (
	sweepInterval = 30 * time.Second

	serviceMonitorCRDName = "servicemonitors.monitoring.coreos.com"
	serviceMonitorName    = "kube-workspace-prometheus-operator-servicemonitor"
)

// RunLoop executes the recurring operator checks until the context is
// cancelled. The first run happens immediately. A failed run is logged and
// the loop keeps going.
func (o *Operator) RunLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		if err := o.runChecks(ctx); err != nil {
			klog.ErrorS(err, "pod check failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (o *Operator) runChecks(ctx context.Context) error {
	klog.V(5).Info("running check job")
	// TODO: mark the operator unhealthy when the namespace cannot be ensured.
	if err := o.EnsureNamespace(ctx); err != nil {
		return err
	}
	if err := o.checkPods(ctx); err != nil {
		return err
	}

	if exporter := o.config.PrometheusExporter; exporter != nil && exporter.AutoRegisterOperatorServiceMonitor {
		if err := o.ensureOperatorServiceMonitor(ctx); err != nil {
			return err
		}
	}
	return nil
}

// checkPods walks all workspace pods, refreshes the availability gauges and,
// when auto-shutdown is enabled, processes each pod's idle state. Per-pod
// failures are logged and do not stop the walk.
func (o *Operator) checkPods(ctx context.Context) error {
	pods, err := o.client.ListAllPods(ctx, o.namespace(), workspace.PodSelector())
	if err != nil {
		return err
	}

	// The metrics API is optional and depends on a metrics-server
	// deployment. A failure here downgrades CPU idle tracking instead of
	// failing the tick.
	podMetrics, err := o.client.ListAllPodMetrics(ctx, o.namespace())
	if err != nil {
		klog.Warningf("could not obtain pod metrics - is the pod metrics API installed? error: %v", err)
		podMetrics = nil
	}

	availableCount := 0
	unavailableCount := 0

	for i := range pods {
		pod := &pods[i]

		switch workspace.Classify(pod) {
		case workspace.PhaseStarting:
			unavailableCount++
		case workspace.PhaseReady:
			availableCount++
		case workspace.PhaseTerminating, workspace.PhaseUnknown, workspace.PhaseNotFound:
		}

		if o.config.AutoShutdownEnabled() {
			if err := o.processPodAutoShutdown(ctx, pod, findPodMetrics(podMetrics, pod.Name)); err != nil {
				klog.ErrorS(err, "could not process pod autoshutdown", "pod", pod.Name)
			}
		}
	}

	o.metrics.WorkspaceAvailableCount.Set(float64(availableCount))
	o.metrics.WorkspaceUnavailableCount.Set(float64(unavailableCount))
	return nil
}

func findPodMetrics(podMetrics []v1beta1.PodMetrics, podName string) *v1beta1.PodMetrics {
	for i := range podMetrics {
		if podMetrics[i].Name == podName {
			return &podMetrics[i]
		}
	}
	return nil
}

// processPodAutoShutdown analyzes one pod's idle state, then either deletes
// the pod or persists the refreshed state on it.
func (o *Operator) processPodAutoShutdown(ctx context.Context, pod *corev1.Pod, podMetrics *v1beta1.PodMetrics) error {
	data, err := o.analyzePodIdle(ctx, pod, podMetrics)
	if err != nil {
		return err
	}

	if ShouldShutdown(data, o.config.AutoShutdown, time.Now()) {
		klog.V(5).InfoS("shutting down workspace pod due to auto shutdown", "pod", pod.Name, "idleData", data)
		if err = o.client.DeletePod(ctx, o.namespace(), pod.Name); err != nil {
			return err
		}
		klog.Infof("workspace pod %s shut down due to autoshutdown", pod.Name)
		return nil
	}

	klog.V(5).InfoS("updating pod autoshutdown annotations", "pod", pod.Name, "idleData", data)
	patch, err := data.Patch(pod.Name, o.namespace())
	if err != nil {
		return err
	}
	return o.client.PatchPodApply(ctx, o.namespace(), pod.Name, FieldManager, patch)
}

func defaultLabels() map[string]string {
	return map[string]string{
		"app.kubernetes.io/managed-by": "kube-workspace-operator",
	}
}

// ensureOperatorServiceMonitor registers a prometheus-operator scrape target
// for the operator itself. Best effort: when the ServiceMonitor CRD is not
// installed the registration is skipped silently.
func (o *Operator) ensureOperatorServiceMonitor(ctx context.Context) error {
	klog.V(5).Info("checking prometheus operator service monitor")

	existing, err := o.client.GetServiceMonitorOpt(ctx, o.namespace(), serviceMonitorName)
	if err != nil {
		return err
	}
	if existing != nil {
		klog.V(5).Info("prometheus-operator ServiceMonitor already exists")
		return nil
	}

	crd, err := o.client.GetCustomResourceDefinitionOpt(ctx, serviceMonitorCRDName)
	if err != nil {
		return err
	}
	if crd == nil {
		klog.V(4).Info("not creating prometheus-operator ServiceMonitor - ServiceMonitor CRD not found")
		return nil
	}

	monitor := &monitoringv1.ServiceMonitor{
		ObjectMeta: metav1.ObjectMeta{
			Name:      serviceMonitorName,
			Namespace: o.namespace(),
			Labels:    defaultLabels(),
		},
		Spec: monitoringv1.ServiceMonitorSpec{
			Selector: metav1.LabelSelector{
				MatchLabels: map[string]string{
					"app.kubernetes.io/name": "kube-workspace-operator",
				},
			},
			Endpoints: []monitoringv1.Endpoint{
				{Port: "prometheus"},
			},
		},
	}
	if err = o.client.CreateServiceMonitor(ctx, o.namespace(), monitor); err != nil {
		return fmt.Errorf("could not create prometheus-operator ServiceMonitor: %w", err)
	}
	klog.Info("prometheus-operator ServiceMonitor created")
	return nil
}
