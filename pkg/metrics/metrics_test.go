/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOperatorMetrics(t *testing.T) {
	m := NewOperatorMetrics()

	assert.Zero(t, testutil.ToFloat64(m.ConfigurationErrors))
	assert.Zero(t, testutil.ToFloat64(m.WorkspaceAvailableCount))
	assert.Zero(t, testutil.ToFloat64(m.WorkspaceUnavailableCount))

	m.WorkspaceAvailableCount.Set(3)
	m.WorkspaceUnavailableCount.Set(1)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.WorkspaceAvailableCount))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WorkspaceUnavailableCount))
}

func TestHandlerServesGauges(t *testing.T) {
	m := NewOperatorMetrics()
	m.WorkspaceAvailableCount.Set(2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "kube_workspace_configuration_errors 0")
	assert.Contains(t, body, "kube_workspace_available_count 2")
	assert.Contains(t, body, "kube_workspace_unavailable_count 0")
	assert.True(t, strings.Contains(body, "Number of available (active and reachable) workspaces."))
}
