/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/refaktory/kube-workspace/pkg/apiutils"
	kwerrors "github.com/refaktory/kube-workspace/pkg/errors"
	"github.com/refaktory/kube-workspace/pkg/handlers/middleware"
	"github.com/refaktory/kube-workspace/pkg/operator"
)

const (
	// apiRateLimit and apiRateBurst bound the request rate of the query API.
	apiRateLimit rate.Limit = 100
	apiRateBurst            = 512
	// apiRequestTimeout caps the total time a query may spend talking to
	// the cluster.
	apiRequestTimeout = 5 * time.Second
)

// InitHttpHandlers initializes the HTTP handlers for the query API.
// It creates a new Gin engine, sets up middleware including logging,
// recovery, rate limiting and request timeouts, and registers the routes.
// Returns the configured Gin engine.
func InitHttpHandlers(op *operator.Operator) (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(
		apiutils.Logger(),
		gin.Recovery(),
		middleware.RateLimit(apiRateLimit, apiRateBurst),
		middleware.Timeout(apiRequestTimeout),
	)
	engine.NoRoute(func(c *gin.Context) {
		apiutils.AbortWithApiError(c, kwerrors.NewNotFoundWithMessage(c.Request.RequestURI+" not found"))
	})

	InitQueryRouters(engine, NewHandler(op))
	return engine, nil
}
