/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"k8s.io/klog/v2"
	"k8s.io/klog/v2/klogr"
	ctrlruntime "sigs.k8s.io/controller-runtime"

	"github.com/refaktory/kube-workspace/pkg/apiutils"
	"github.com/refaktory/kube-workspace/pkg/config"
	"github.com/refaktory/kube-workspace/pkg/handlers"
	"github.com/refaktory/kube-workspace/pkg/handlers/middleware"
	"github.com/refaktory/kube-workspace/pkg/k8sclient"
	"github.com/refaktory/kube-workspace/pkg/logging"
	"github.com/refaktory/kube-workspace/pkg/metrics"
	"github.com/refaktory/kube-workspace/pkg/operator"
	"github.com/refaktory/kube-workspace/pkg/options"
)

const (
	// The exporter serves a handful of scrapers at most.
	exporterRateLimit rate.Limit = 5
	exporterRateBurst            = 5

	exporterRestartDelay = 10 * time.Second
	stopTimeout          = 5 * time.Second
)

// Server owns the operator process lifecycle: flag parsing, logging and
// config bootstrap, the query API server, the metrics exporter and the
// background sweep loop.
type Server struct {
	opts           *options.Options
	config         *config.Config
	operator       *operator.Operator
	metrics        *metrics.OperatorMetrics
	httpServer     *http.Server
	exporterServer *http.Server
	ctx            context.Context
	isInited       bool
}

func NewServer() (*Server, error) {
	s := &Server{
		opts: &options.Options{},
		ctx:  ctrlruntime.SetupSignalHandler(),
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	var err error
	if err = s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err = s.initLogs(); err != nil {
		klog.ErrorS(err, "failed to init logs")
		return err
	}
	if err = s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	client, err := k8sclient.NewClient(s.opts.KubeConfig)
	if err != nil {
		klog.ErrorS(err, "failed to init kubernetes client")
		return err
	}
	s.metrics = metrics.NewOperatorMetrics()
	s.operator = operator.New(s.config, client, s.metrics)
	s.isInited = true
	return nil
}

// Start launches the query API, the metrics exporter and the sweep loop,
// then blocks until the signal context is cancelled.
func (s *Server) Start() {
	if !s.isInited {
		klog.Errorf("please init the operator server first")
		return
	}

	klog.Infof("starting kube-workspace-operator")
	if err := s.operator.EnsureNamespace(s.ctx); err != nil {
		klog.ErrorS(err, "failed to ensure workspace namespace")
		os.Exit(-1)
	}

	go s.operator.RunLoop(s.ctx)

	go func() {
		if err := s.startHttpServer(); err != nil {
			klog.ErrorS(err, "failed to start http-server")
			os.Exit(-1)
		}
	}()

	go s.runExporterServer()

	<-s.ctx.Done()
	s.Stop()
}

// Stop gracefully shuts the HTTP listeners down and flushes the logs.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			klog.ErrorS(err, "failed to shutdown http-server")
		}
	}
	if s.exporterServer != nil {
		if err := s.exporterServer.Shutdown(ctx); err != nil {
			klog.ErrorS(err, "failed to shutdown prometheus exporter")
		}
	}
	klog.Info("kube-workspace-operator is stopped")
	klog.Flush()
}

func (s *Server) initLogs() error {
	if err := logging.Init(s.opts.LogfilePath, s.opts.LogFileSize); err != nil {
		return err
	}
	ctrlruntime.SetLogger(klogr.NewWithOptions())
	return nil
}

func (s *Server) initConfig() error {
	cfg, err := config.Load(s.opts.Config)
	if err != nil {
		return err
	}
	s.config = cfg
	return nil
}

func (s *Server) startHttpServer() error {
	engine, err := handlers.InitHttpHandlers(s.operator)
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{Addr: s.config.ServerAddress, Handler: engine}
	klog.Infof("http-server listening on %s", s.config.ServerAddress)
	if err = s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		klog.ErrorS(err, "failed to start http server")
		return err
	}
	return nil
}

// runExporterServer serves the prometheus metrics endpoint and keeps
// restarting it after failures. Failures here must not take down the
// operator.
func (s *Server) runExporterServer() {
	exporterCfg := s.config.PrometheusExporter
	if exporterCfg == nil || !exporterCfg.Enabled {
		return
	}

	engine := gin.New()
	engine.Use(apiutils.Logger(), gin.Recovery(), middleware.RateLimit(exporterRateLimit, exporterRateBurst))
	engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	for {
		s.exporterServer = &http.Server{Addr: exporterCfg.ServerAddress, Handler: engine}
		klog.Infof("prometheus exporter listening on %s", exporterCfg.ServerAddress)
		err := s.exporterServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		klog.ErrorS(err, "prometheus metrics exporter failed")
		// TODO: exponential backoff?
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(exporterRestartDelay):
		}
	}
}
