package middleware

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"socialdm/internal/infrastructure/ratelimit"
	"socialdm/pkg/logger"
)

const ActionRequest = "request"

// RateLimitByIP throttles requests per client IP with the limiter's
// "request" policy.
func RateLimitByIP(rl *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if allowed, wait := rl.Allow(ip, ActionRequest); !allowed {
				logger.Warn("RATE LIMIT: Blocked request from IP %s (retry in %v)", ip, wait)
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":       "Rate limit exceeded",
					"retry_after": int(math.Ceil(wait.Seconds())),
				})
			}
			return next(c)
		}
	}
}
