/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/gin-gonic/gin"
)

// InitQueryRouters initializes the query API routes.
func InitQueryRouters(e *gin.Engine, h *Handler) {
	e.GET("/health", h.Health)
	e.POST("/api/query", func(c *gin.Context) {
		handle(c, h.Query)
	})
}
