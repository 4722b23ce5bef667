/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

// Package metrics exposes the operator's prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OperatorMetrics holds the gauges published by the exporter endpoint. The
// sweep loop updates the workspace counts on every tick.
type OperatorMetrics struct {
	ConfigurationErrors       prometheus.Gauge
	WorkspaceAvailableCount   prometheus.Gauge
	WorkspaceUnavailableCount prometheus.Gauge

	registry *prometheus.Registry
}

// NewOperatorMetrics creates the gauges on a dedicated registry so the
// exporter serves only operator metrics.
func NewOperatorMetrics() *OperatorMetrics {
	m := &OperatorMetrics{
		ConfigurationErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kube_workspace_configuration_errors",
			Help: "Number of invalid configurations found. This is either 0 or 1.",
		}),
		WorkspaceAvailableCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kube_workspace_available_count",
			Help: "Number of available (active and reachable) workspaces.",
		}),
		WorkspaceUnavailableCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kube_workspace_unavailable_count",
			Help: "Number of unavailable (failing) workspaces.",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.ConfigurationErrors,
		m.WorkspaceAvailableCount,
		m.WorkspaceUnavailableCount,
	)
	return m
}

// Handler returns the scrape handler for the exporter endpoint. OpenMetrics
// is offered through content negotiation.
func (m *OperatorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
