package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xiebiao/scholarium/pkg/tracing"
)

const (
	// RequestIDHeader 请求ID头，客户端传入时沿用
	RequestIDHeader = "X-Request-ID"
	keyRequestID    = "request_id"

	slowRequest = 3 * time.Second
)

// RequestID 为每个请求分配唯一ID，写入Context和响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(keyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID 当前请求ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(keyRequestID)
}

// Logger 请求日志：方法、路径、状态码、耗时、客户端IP
// 不记录请求体和Token
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		attrs := []any{
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", latency,
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		attrs = append(attrs, tracing.LogAttrs(ctx)...)
		switch {
		case c.Writer.Status() >= 500:
			logger.ErrorContext(ctx, "请求失败", attrs...)
		case latency > slowRequest:
			logger.WarnContext(ctx, "慢请求", attrs...)
		default:
			logger.InfoContext(ctx, "请求完成", attrs...)
		}
	}
}
