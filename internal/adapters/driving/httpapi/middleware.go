package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/logger"
	"github.com/evidentia-labs/evidentia/internal/ratelimit"
)

// Headers supplied by the upstream authentication layer.
const (
	headerTenantID     = "X-Tenant-ID"
	headerActor        = "X-Actor"
	headerCapabilities = "X-Capabilities"
)

// tenantContextKey is where the middleware stores the built context.
const tenantContextKey = "evidentia.tenant"

// tenantMiddleware re-validates the upstream identity headers and
// builds an immutable TenantContext for the request. The tenant
// identifier goes through the same allow-list as every other boundary;
// a gateway bug upstream must not become an injection path here.
func tenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(headerTenantID)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("missing "+headerTenantID+" header"))
			return
		}

		tenant, err := domain.ParseTenantID(raw)
		if err != nil {
			logger.Security("Rejected tenant identifier %q from %s", raw, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody("invalid tenant identifier"))
			return
		}

		actor := c.GetHeader(headerActor)
		if actor == "" {
			actor = "anonymous"
		}

		caps, err := parseCapabilities(c.GetHeader(headerCapabilities))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(err.Error()))
			return
		}

		c.Set(tenantContextKey, domain.NewTenantContext(tenant, actor, caps...))
		c.Next()
	}
}

// parseCapabilities splits a comma-separated capability list and
// validates each name. An empty header grants nothing.
func parseCapabilities(header string) ([]domain.Capability, error) {
	if strings.TrimSpace(header) == "" {
		return nil, nil
	}

	parts := strings.Split(header, ",")
	caps := make([]domain.Capability, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		capability, err := domain.ParseCapability(name)
		if err != nil {
			return nil, err
		}
		caps = append(caps, capability)
	}
	return caps, nil
}

// tenantFrom returns the TenantContext stored by tenantMiddleware.
func tenantFrom(c *gin.Context) domain.TenantContext {
	tc, _ := c.MustGet(tenantContextKey).(domain.TenantContext)
	return tc
}

// rateLimitMiddleware rejects requests over the tenant's budget with
// 429 and a Retry-After hint. It runs after tenantMiddleware so the
// key is always a validated tenant identifier.
func rateLimitMiddleware(limiter *ratelimit.TenantLimiter, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := tenantFrom(c).Tenant().String()

		allowed, retryAfter := limiter.Allow(tenant)
		if !allowed {
			metrics.rateLimited.WithLabelValues(tenant).Inc()
			seconds := int(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody("rate limited"))
			return
		}
		c.Next()
	}
}

// loggingMiddleware emits one debug line per request.
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// errorBody is the uniform error response shape.
func errorBody(message string) gin.H {
	return gin.H{"error": message}
}

// statusForError maps domain sentinels onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCapabilityDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIngestionInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a domain error with its mapped status. Internal
// faults are logged but never echoed verbatim to the client.
func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, errorBody("internal error"))
		return
	}
	c.JSON(status, errorBody(err.Error()))
}
