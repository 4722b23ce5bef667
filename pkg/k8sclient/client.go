/*
 * Copyright (C) 2025-2025, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package k8sclient

import (
	monitoringclient "github.com/prometheus-operator/prometheus-operator/pkg/client/versioned"
	apiextensionsclient "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
)

const (
	DefaultQPS   = 100
	DefaultBurst = 200
)

// Client bundles the typed clientsets the operator talks to the cluster
// with. All resource operations live in adapter.go.
type Client struct {
	clientSet           kubernetes.Interface
	metricsClient       metricsclient.Interface
	apiextensionsClient apiextensionsclient.Interface
	monitoringClient    monitoringclient.Interface
	restConfig          *rest.Config
}

// NewClient creates a Client from the given kubeconfig path. An empty path
// falls back to the standard config resolution (in-cluster service account,
// then KUBECONFIG, then ~/.kube/config).
// Parameters:
//
//	kubeConfig: Path to a kubeconfig file, or empty
//
// Returns:
//
//	*Client: The connected client
//	error: Any error encountered during client creation
func NewClient(kubeConfig string) (*Client, error) {
	restConfig, err := getRestConfig(kubeConfig)
	if err != nil {
		return nil, err
	}
	clientSet, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, err
	}
	metrics, err := metricsclient.NewForConfig(restConfig)
	if err != nil {
		return nil, err
	}
	apiextensions, err := apiextensionsclient.NewForConfig(restConfig)
	if err != nil {
		return nil, err
	}
	monitoring, err := monitoringclient.NewForConfig(restConfig)
	if err != nil {
		return nil, err
	}
	return &Client{
		clientSet:           clientSet,
		metricsClient:       metrics,
		apiextensionsClient: apiextensions,
		monitoringClient:    monitoring,
		restConfig:          restConfig,
	}, nil
}

// NewClientWithInterfaces creates a Client from pre-built clientsets. Tests
// use this with the fake clientsets.
func NewClientWithInterfaces(clientSet kubernetes.Interface, metrics metricsclient.Interface,
	apiextensions apiextensionsclient.Interface, monitoring monitoringclient.Interface) *Client {
	return &Client{
		clientSet:           clientSet,
		metricsClient:       metrics,
		apiextensionsClient: apiextensions,
		monitoringClient:    monitoring,
	}
}

// ClientSet returns the core Kubernetes client interface.
func (c *Client) ClientSet() kubernetes.Interface {
	return c.clientSet
}

// RestConfig returns the REST configuration the client was built from. It is
// nil for clients built with NewClientWithInterfaces.
func (c *Client) RestConfig() *rest.Config {
	return c.restConfig
}

func getRestConfig(kubeConfig string) (*rest.Config, error) {
	var restConfig *rest.Config
	var err error
	if kubeConfig != "" {
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeConfig)
	} else {
		restConfig, err = config.GetConfig()
	}
	if err != nil {
		return nil, err
	}
	restConfig.QPS = DefaultQPS
	restConfig.Burst = DefaultBurst
	return restConfig, nil
}
