package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/metrics"
)

// HeaderRequestID carries the request identifier in both directions.
const HeaderRequestID = "X-Request-ID"

const unmatchedRoute = "unmatched"

// RequestLogger logs every request and records its status and latency per route template.
// An incoming X-Request-ID is kept, otherwise a new one is generated.
func RequestLogger(log *zap.Logger, recorder metrics.Recorder) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Noop()
	}

	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Set("requestId", requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		duration := time.Since(start)

		recorder.IncRequests(route, status)
		recorder.ObserveRequestDuration(route, duration)

		fields := []zap.Field{
			zap.String("requestId", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("durationMs", duration.Milliseconds()),
			zap.String("remoteAddr", c.ClientIP()),
		}

		switch {
		case status >= 500:
			log.Error("Request completed", fields...)
		case status >= 400:
			log.Warn("Request completed", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}
