package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/terraincognita07/nutrilog/internal/security"
)

const (
	contextIdentityKey  = "current_identity"
	contextRequestIDKey = "request_id"
)

func currentIdentity(c *fiber.Ctx) (security.Identity, bool) {
	identity, ok := c.Locals(contextIdentityKey).(security.Identity)
	return identity, ok
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(contextRequestIDKey).(string)
	return id
}

// requestLanguage prefers the language reported by the verified identity
// and falls back to Accept-Language.
func (handler *Handler) requestLanguage(c *fiber.Ctx) string {
	if identity, ok := currentIdentity(c); ok && strings.TrimSpace(identity.LanguageCode) != "" {
		return handler.i18n.NormalizeLanguage(identity.LanguageCode)
	}
	return handler.i18n.DetectFromAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
}

func (handler *Handler) requestLogger(c *fiber.Ctx) *zerolog.Logger {
	logContext := handler.logger.With().
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path())
	if identity, ok := currentIdentity(c); ok {
		logContext = logContext.Int64("user_id", identity.UserID)
	}
	logger := logContext.Logger()
	return &logger
}

// AccessLog emits one event per request once the response status is known.
func (handler *Handler) AccessLog(c *fiber.Ctx) error {
	started := time.Now()
	chainErr := c.Next()
	if chainErr != nil {
		if err := c.App().ErrorHandler(c, chainErr); err != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	event := handler.requestLogger(c).Info()
	if status >= fiber.StatusInternalServerError {
		event = handler.requestLogger(c).Warn()
	}
	event.
		Int("status", status).
		Dur("latency", time.Since(started)).
		Msg("http request")
	return nil
}

// Metrics records in-flight gauge, request counter and latency, labelled by
// the matched route template rather than the raw path.
func (handler *Handler) Metrics(c *fiber.Ctx) error {
	started := time.Now()
	handler.metrics.RequestStarted()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
	}
	handler.metrics.RequestFinished(c.Method(), routeLabel(c, status), status, time.Since(started))
	return err
}

func routeLabel(c *fiber.Ctx, status int) string {
	if status == fiber.StatusNotFound {
		return "unmatched"
	}
	route := c.Route()
	if route == nil || route.Path == "" {
		return "unmatched"
	}
	return route.Path
}
