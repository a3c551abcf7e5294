package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestLogger returns structured access-log middleware.
//
// An incoming X-Request-ID is reused, otherwise a UUID is minted. The ID is
// echoed in the response header and stored under "request_id" in the context.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)

		slog.Debug("request received",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if status >= 500 {
			slog.Error("request failed", attrs...)
			return
		}
		slog.Info("request processed", attrs...)
	}
}
