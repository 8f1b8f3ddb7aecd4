package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/scholarium/pkg/tracing"
)

const tracerName = "http"

// Tracing 每个请求一个Span，沿用上游traceparent
// 5xx标记为错误；请求ID写入Span属性便于和日志对照
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := tracing.Extract(c.Request.Context(), c.Request.Header)
		ctx, span := tracing.StartSpan(ctx, tracerName, c.Request.Method+" "+routePath(c),
			attribute.String("http.method", c.Request.Method),
			attribute.String("request_id", GetRequestID(c)),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		var err error
		if status >= 500 {
			err = errStatus(status)
		}
		tracing.EndSpan(span, err)
	}
}

type errStatus int

func (e errStatus) Error() string { return "http " + strconv.Itoa(int(e)) }

// routePath 路由模板，未匹配的请求统一为unmatched
func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}
