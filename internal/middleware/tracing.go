package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a span per request with otelgin and tags it with the
// recommendation subject. Without an installed provider the spans are no-ops.
// Probe and scrape endpoints are not traced.
func Tracing(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics" && r.URL.Path != "/health" && r.URL.Path != "/ready"
		})),
		spanAttributes,
	}
}

// spanAttributes runs inside the otelgin span, which ends once the chain returns.
func spanAttributes(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}

	if requestID := c.GetString(requestIDKey); requestID != "" {
		span.SetAttributes(attribute.String("request.id", requestID))
	}
	if userID := c.Query("userId"); userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	} else if userID := c.Param("user_id"); userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	}
	if movieID := c.Param("movie_id"); movieID != "" {
		span.SetAttributes(attribute.String("movie.id", movieID))
	}
	if limit := c.Query("limit"); limit != "" {
		span.SetAttributes(attribute.String("query.limit", limit))
	}

	c.Next()
}
