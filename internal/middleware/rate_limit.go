package middleware

import (
	"context"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-admin-api/internal/service"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
	"github.com/noah-isme/tutor-admin-api/pkg/response"
)

// RateLimiter decides whether a caller may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) service.RateDecision
}

// RateLimit rejects callers over quota with 429 and Retry-After. Authenticated
// callers are keyed by user id, everyone else by client IP.
func RateLimit(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if claims := CurrentClaims(c); claims != nil {
			key = "user:" + claims.UserID
		}

		decision := limiter.Allow(c.Request.Context(), key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))
		if decision.Allowed {
			c.Next()
			return
		}

		seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(max(seconds, 1)))
		response.Error(c, appErrors.Clonef(appErrors.ErrRateLimited, "retry in %d seconds", max(seconds, 1)))
		c.Abort()
	}
}
