package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxRequestIDLength caps request IDs taken from headers
	MaxRequestIDLength = 128
	// MaxMerchantIDLength caps merchant IDs taken from headers
	MaxMerchantIDLength = 64
)

var merchantUUIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "khata-backend",
		Enabled:     true,
	}
}

// Tracing returns the OpenTelemetry middleware with defaults
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig starts a server span per request via otelgin.
// otelgin names the span "METHOD route_pattern". Pair it with
// TraceEnrichment, which must sit later in the chain so it runs before
// the span ends.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// TraceEnrichment tags the active server span with request_id and
// merchant_id and marks 4xx/5xx responses as errors. Place it after
// TracingWithConfig and, ideally, after the JWT middleware so the
// merchant claim is available.
func TraceEnrichment() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		if requestID := traceRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if merchantID := traceMerchantID(c); merchantID != "" {
			span.SetAttributes(attribute.String("merchant_id", merchantID))
		}

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
	}
}

func traceRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// traceMerchantID prefers the JWT claim. The X-Merchant-ID header is an
// untrusted fallback and must look like a UUID before it lands in a
// trace attribute.
func traceMerchantID(c *gin.Context) string {
	if id := c.GetString(JWTMerchantIDKey); id != "" {
		return id
	}
	headerID := c.GetHeader("X-Merchant-ID")
	if headerID != "" && len(headerID) <= MaxMerchantIDLength && merchantUUIDRegex.MatchString(headerID) {
		return headerID
	}
	return ""
}
