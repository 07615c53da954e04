package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/service"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

// RateLimit applies limiter per client IP. A nil limiter disables the check.
func RateLimit(limiter *service.RateLimitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		decision := limiter.Allow(c.Request.Context(), c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if decision.Allowed {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		response.Abort(c, appErrors.ErrTooManyRequests, map[string]interface{}{"retry_after": retryAfter})
	}
}
