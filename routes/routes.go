// Package routes wires the controllers into a gin engine.
//
//   - api.go: the /v1 API and health probes
//   - web.go: the index page listing endpoints
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/address-extractor/helpers/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupAllRoutes installs middleware and every route
func SetupAllRoutes(router *gin.Engine, ctrl Controllers, requestTimeout time.Duration, logger *zap.Logger) {
	setupMiddleware(router, requestTimeout, logger)

	SetupWebRoutes(router)
	SetupHealthRoutes(router, ctrl.Extract)
	SetupAPIRoutes(router, ctrl)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}

func setupMiddleware(router *gin.Engine, requestTimeout time.Duration, logger *zap.Logger) {
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if requestTimeout > 0 {
		router.Use(timeout(requestTimeout))
	}
}

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// requestLogger logs one line per request. A client-supplied X-Request-ID is
// kept when it is a UUID; otherwise a short id is generated.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if !utils.IsUUID(requestID) {
			requestID = utils.GenerateShortID()
		}
		c.Header(RequestIDHeader, requestID)
		c.Next()
		logger.Info("HTTP request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// timeout bounds the request context; handlers observe it through c.Request.Context()
func timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
