package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/core/security"
	"github.com/LegendarySumit/MediaDL/internal/server/api/response"
)

// RateLimit enforces the per-client sliding window for one request
// class. Denied requests are not counted against the window.
func RateLimit(limiter *security.RateLimiter, class security.Class) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !limiter.Allow(ip, class) {
				log.Warn().
					Str("client_ip", ip).
					Str("class", string(class)).
					Msg("rate limit exceeded")
				return response.Error(c, http.StatusTooManyRequests,
					"Rate limit exceeded. Please try again later.")
			}
			return next(c)
		}
	}
}
