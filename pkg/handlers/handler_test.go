/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	monitoringfake "github.com/prometheus-operator/prometheus-operator/pkg/client/versioned/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apiextensionsfake "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset/fake"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"

	"github.com/refaktory/kube-workspace/pkg/api"
	"github.com/refaktory/kube-workspace/pkg/config"
	"github.com/refaktory/kube-workspace/pkg/k8sclient"
	"github.com/refaktory/kube-workspace/pkg/metrics"
	"github.com/refaktory/kube-workspace/pkg/operator"
	"github.com/refaktory/kube-workspace/pkg/workspace"
)

const (
	testUsername = "alice"
	testKey      = "ssh-ed25519 AAA alice@host"
)

func newTestEngine(t *testing.T, objects ...runtime.Object) (*gin.Engine, *fake.Clientset) {
	t.Helper()
	gin.SetMode(gin.ReleaseMode)

	cfg := config.Default()
	cfg.Namespace = "ws"
	cfg.Users = []config.User{{Username: testUsername, SSHPublicKey: testKey}}

	fakeK8s := fake.NewClientset(objects...)
	fakeK8s.PrependReactor("create", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		pod := action.(k8stesting.CreateAction).GetObject().(*corev1.Pod)
		pod.Status.Phase = corev1.PodPending
		return false, nil, nil
	})
	cli := k8sclient.NewClientWithInterfaces(fakeK8s,
		metricsfake.NewSimpleClientset(), apiextensionsfake.NewSimpleClientset(), monitoringfake.NewSimpleClientset())
	op := operator.New(cfg, cli, metrics.NewOperatorMetrics())

	engine, err := InitHttpHandlers(op)
	require.NoError(t, err)
	return engine, fakeK8s
}

func postQuery(engine *gin.Engine, body string) *httptest.ResponseRecorder {
	rsp := httptest.NewRecorder()
	engine.ServeHTTP(rsp, httptest.NewRequest("POST", "/api/query", strings.NewReader(body)))
	return rsp
}

func queryBody(t *testing.T, variant string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		variant: map[string]string{"username": testUsername, "ssh_public_key": testKey},
	})
	require.NoError(t, err)
	return string(raw)
}

func decodeResponse(t *testing.T, rsp *httptest.ResponseRecorder) *api.Response {
	t.Helper()
	envelope := &api.Response{}
	require.NoError(t, json.Unmarshal(rsp.Body.Bytes(), envelope))
	return envelope
}

func TestHealth(t *testing.T) {
	engine, _ := newTestEngine(t)

	rsp := httptest.NewRecorder()
	engine.ServeHTTP(rsp, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rsp.Code)
	assert.Equal(t, "ok", rsp.Body.String())
}

func TestQueryPodStartColdStart(t *testing.T) {
	engine, fakeK8s := newTestEngine(t)

	rsp := postQuery(engine, queryBody(t, "PodStart"))
	require.Equal(t, http.StatusOK, rsp.Code, rsp.Body.String())

	envelope := decodeResponse(t, rsp)
	require.NotNil(t, envelope.Ok)
	status := envelope.Ok.PodStart
	require.NotNil(t, status)
	assert.Equal(t, testUsername, status.Username)
	assert.Equal(t, workspace.PhaseStarting, status.Phase)
	assert.Nil(t, status.SSHAddress, "no node port assigned yet")
	require.NotNil(t, status.Info)
	assert.Equal(t, "ubuntu", status.Info.Image)

	for _, created := range []string{"persistentvolumeclaims", "services", "pods"} {
		found := false
		for _, action := range fakeK8s.Actions() {
			if action.GetVerb() == "create" && action.GetResource().Resource == created {
				found = true
			}
		}
		assert.True(t, found, "expected a create for %s", created)
	}
}

func TestQueryPodStatusReady(t *testing.T) {
	engine, _ := newTestEngine(t,
		&corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: "workspace-alice", Namespace: "ws"},
			Spec: corev1.ServiceSpec{
				Ports: []corev1.ServicePort{{Name: "ssh", Port: 22, NodePort: 31234}},
			},
		},
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "workspace-alice", Namespace: "ws"},
			Spec: corev1.PodSpec{
				NodeName: "node-1",
				Containers: []corev1.Container{{
					Name:  "workspace",
					Image: "ubuntu:24.04",
					Resources: corev1.ResourceRequirements{
						Limits: corev1.ResourceList{
							corev1.ResourceMemory: resource.MustParse("4Gi"),
							corev1.ResourceCPU:    resource.MustParse("2"),
						},
					},
				}},
			},
			Status: corev1.PodStatus{Phase: corev1.PodRunning,
				ContainerStatuses: []corev1.ContainerStatus{{Ready: true}}},
		},
		&corev1.Node{
			ObjectMeta: metav1.ObjectMeta{Name: "node-1"},
			Status: corev1.NodeStatus{
				Addresses: []corev1.NodeAddress{{Type: corev1.NodeInternalIP, Address: "10.0.0.7"}},
			},
		},
	)

	rsp := postQuery(engine, queryBody(t, "PodStatus"))
	require.Equal(t, http.StatusOK, rsp.Code, rsp.Body.String())

	envelope := decodeResponse(t, rsp)
	require.NotNil(t, envelope.Ok)
	status := envelope.Ok.PodStatus
	require.NotNil(t, status)
	assert.Equal(t, workspace.PhaseReady, status.Phase)
	require.NotNil(t, status.SSHAddress)
	assert.Equal(t, "10.0.0.7", status.SSHAddress.Address)
	assert.Equal(t, int32(31234), status.SSHAddress.Port)
	require.NotNil(t, status.Info)
	assert.Equal(t, "ubuntu:24.04", status.Info.Image)
	require.NotNil(t, status.Info.MemoryLimit)
	assert.Equal(t, "4Gi", status.Info.MemoryLimit.String())
	require.NotNil(t, status.Info.CPULimit)
	assert.Equal(t, "2", status.Info.CPULimit.String())
}

func TestQueryWrongKeyMakesNoClusterCalls(t *testing.T) {
	engine, fakeK8s := newTestEngine(t)

	body := `{"PodStatus":{"username":"alice","ssh_public_key":"ssh-ed25519 BBB mallory@host"}}`
	rsp := postQuery(engine, body)
	require.Equal(t, http.StatusUnauthorized, rsp.Code)

	envelope := decodeResponse(t, rsp)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "could not verify user: unknown username or mismatched SSH public key",
		envelope.Error.Message)
	assert.Empty(t, fakeK8s.Actions(), "authentication must fail before any cluster access")
}

func TestQueryPodStopAbsentPod(t *testing.T) {
	engine, _ := newTestEngine(t)

	rsp := postQuery(engine, queryBody(t, "PodStop"))
	require.Equal(t, http.StatusOK, rsp.Code, rsp.Body.String())
	assert.JSONEq(t, `{"Ok":{"PodStop":{}}}`, rsp.Body.String())
}

func TestQueryPodStopDeletesPodAndService(t *testing.T) {
	engine, fakeK8s := newTestEngine(t,
		&corev1.PersistentVolumeClaim{ObjectMeta: metav1.ObjectMeta{Name: "workspace-alice", Namespace: "ws"}},
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "workspace-alice", Namespace: "ws"}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "workspace-alice", Namespace: "ws"}},
	)

	rsp := postQuery(engine, queryBody(t, "PodStop"))
	require.Equal(t, http.StatusOK, rsp.Code, rsp.Body.String())

	ctx := context.Background()
	_, err := fakeK8s.CoreV1().Pods("ws").Get(ctx, "workspace-alice", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
	_, err = fakeK8s.CoreV1().Services("ws").Get(ctx, "workspace-alice", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
	_, err = fakeK8s.CoreV1().PersistentVolumeClaims("ws").Get(ctx, "workspace-alice", metav1.GetOptions{})
	assert.NoError(t, err, "the home volume survives a stop")
}

func TestQueryRejectsUnknownVariant(t *testing.T) {
	engine, _ := newTestEngine(t)

	rsp := postQuery(engine, `{"PodRestart":{"username":"alice","ssh_public_key":"k"}}`)
	assert.Equal(t, http.StatusBadRequest, rsp.Code)
}

func TestQueryRejectsMultipleVariants(t *testing.T) {
	engine, fakeK8s := newTestEngine(t)

	body := `{"PodStart":{"username":"alice","ssh_public_key":"ssh-ed25519 AAA alice@host"},` +
		`"PodStop":{"username":"alice","ssh_public_key":"ssh-ed25519 AAA alice@host"}}`
	rsp := postQuery(engine, body)
	assert.Equal(t, http.StatusBadRequest, rsp.Code)
	assert.Empty(t, fakeK8s.Actions())
}

func TestQueryRejectsEmptyBody(t *testing.T) {
	engine, _ := newTestEngine(t)

	rsp := postQuery(engine, "")
	require.Equal(t, http.StatusBadRequest, rsp.Code)

	envelope := decodeResponse(t, rsp)
	require.NotNil(t, envelope.Error)
	assert.Contains(t, envelope.Error.Message, "PodStart, PodStatus or PodStop")
}

func TestQueryRejectsOversizedBody(t *testing.T) {
	engine, _ := newTestEngine(t)

	oversized := bytes.Repeat([]byte("a"), 17*1024)
	rsp := httptest.NewRecorder()
	engine.ServeHTTP(rsp, httptest.NewRequest("POST", "/api/query", bytes.NewReader(oversized)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rsp.Code)
}

func TestNoRoute(t *testing.T) {
	engine, _ := newTestEngine(t)

	rsp := httptest.NewRecorder()
	engine.ServeHTTP(rsp, httptest.NewRequest("GET", "/nope", nil))
	require.Equal(t, http.StatusNotFound, rsp.Code)

	envelope := decodeResponse(t, rsp)
	require.NotNil(t, envelope.Error)
	assert.Contains(t, envelope.Error.Message, "/nope not found")
}

func TestRateLimitSheds(t *testing.T) {
	engine, _ := newTestEngine(t)

	rejected := 0
	for i := 0; i < 600; i++ {
		rsp := httptest.NewRecorder()
		engine.ServeHTTP(rsp, httptest.NewRequest("GET", "/health", nil))
		if rsp.Code == http.StatusServiceUnavailable {
			rejected++
		}
	}
	assert.Greater(t, rejected, 0, "burst capacity is 512, so some of 600 requests must shed")
}
