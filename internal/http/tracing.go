package http

import (
	"github.com/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/ext"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Trace opens a span per request and threads it through the request
// context so the repo spans nest under it. A no-op unless the tracer
// was started.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		span, ctx := tracer.StartSpanFromContext(c.Request.Context(), "http.request",
			tracer.SpanType(ext.SpanTypeWeb),
			tracer.ResourceName(c.Request.Method+" "+route),
		)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetTag(ext.HTTPCode, c.Writer.Status())
		span.Finish()
	}
}
