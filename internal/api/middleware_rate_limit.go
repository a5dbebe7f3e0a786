package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PhotoRateLimit throttles photo analysis per verified user. It must run
// after AuthRequired; anonymous requests fall back to the client IP.
func (handler *Handler) PhotoRateLimit(c *fiber.Ctx) error {
	allowed, err := handler.photoLimiter.Allow(c.UserContext(), "photo:"+rateLimitSubject(c))
	if err != nil {
		handler.requestLogger(c).Warn().Err(err).Msg("photo rate limiter degraded")
	}
	if !allowed {
		handler.metrics.RateLimited(routeLabel(c, fiber.StatusTooManyRequests))
		return handler.apiError(c, fiber.StatusTooManyRequests, kindRateLimited, "")
	}
	return c.Next()
}

func rateLimitSubject(c *fiber.Ctx) string {
	if identity, ok := currentIdentity(c); ok {
		return strconv.FormatInt(identity.UserID, 10)
	}
	if ip := strings.TrimSpace(c.IP()); ip != "" {
		return "ip:" + ip
	}
	return "unknown"
}
