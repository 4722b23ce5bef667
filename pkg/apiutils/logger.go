/*
 * Copyright (C) 2025-2025, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// Logger returns a middleware that writes one klog line per request.
// Health probes are only logged at high verbosity.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if path == "/health" {
			klog.V(4).Infof("%s %s %d %v", c.Request.Method, path, status, latency)
		} else {
			klog.Infof("%s %s %d %v client=%s", c.Request.Method, path, status, latency, c.ClientIP())
		}
		for _, ginErr := range c.Errors {
			klog.ErrorS(ginErr.Err, "request failed", "method", c.Request.Method, "path", path)
		}
	}
}
