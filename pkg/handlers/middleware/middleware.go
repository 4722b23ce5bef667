/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/refaktory/kube-workspace/pkg/apiutils"
	kwerrors "github.com/refaktory/kube-workspace/pkg/errors"
)

// RateLimit sheds requests once the shared token bucket is drained. Rejected
// requests receive a 503 with the overload message in the error envelope.
func RateLimit(limit rate.Limit, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(limit, burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			apiutils.AbortWithApiError(c, kwerrors.NewOverloaded("API is overloaded"))
			return
		}
		c.Next()
	}
}

// Timeout attaches a deadline to the request context. Handlers observe the
// deadline through their cluster calls, which surface as a request timeout
// in the response.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
