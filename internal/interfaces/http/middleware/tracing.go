package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netcollect/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader echoes the server span's trace id to the caller
const TraceIDHeader = "X-Trace-ID"

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// Options are passed through to otelgin (tracer provider, propagators, filters)
	Options []otelgin.Option
}

// TracingWithConfig returns OpenTelemetry tracing middleware. It wraps otelgin
// and tags the server span with the request id. The span is named
// "METHOD route", e.g. "POST /api/v1/periods/:period/payments".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName, cfg.Options...)
}

// SpanEnricher tags the server span with request id and caller identity,
// and returns the trace id in TraceIDHeader.
// Place it after TracingWithConfig and Authenticate.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		if traceID := telemetry.GetTraceID(c.Request.Context()); traceID != "" {
			c.Header(TraceIDHeader, traceID)
		}
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := GetRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
			if id, ok := GetIdentity(c); ok {
				span.SetAttributes(
					attribute.String("netcollect.actor", id.Name),
					attribute.String("netcollect.role", string(id.Role)),
				)
			}
		}
		c.Next()
	}
}

// SpanErrorMarker marks the server span as errored for 5xx responses.
// Client errors are expected outcomes (day closed, already paid) and stay unset.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
