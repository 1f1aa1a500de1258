// Package middleware provides HTTP middleware for the khata service.
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/khata/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig controls which requests get Pyroscope labels
type ProfilingConfig struct {
	Enabled          bool
	SkipPaths        []string
	SkipPathPrefixes []string
}

func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled: true,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
		},
	}
}

// Profiling returns profiling middleware with the default configuration
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig labels each request's CPU samples with controller,
// route pattern, method, and merchant so profiles can be filtered per
// handler in Pyroscope. Place it after the JWT middleware if merchant
// labels are wanted.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		labels := profilingLabels(c)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// profilingLabels builds the label set from the matched route. The route
// pattern keeps cardinality low; raw paths with IDs never become labels.
func profilingLabels(c *gin.Context) map[string]string {
	route := c.FullPath()

	merchantID := ""
	if v, exists := c.Get(JWTMerchantIDKey); exists {
		if id, ok := v.(string); ok {
			merchantID = id
		}
	}

	return telemetry.HTTPRequestLabels(
		controllerFromRoute(route),
		route,
		c.Request.Method,
		merchantID,
	)
}

// controllerFromRoute derives a resource name from the route pattern,
// "/api/v1/customers/:id/payments" yields "customers"
func controllerFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) {
			continue
		}
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "{") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
