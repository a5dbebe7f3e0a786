package api

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/nutrilog/internal/security"
)

const (
	authSchemeTMA      = "tma"
	initDataHeaderName = "X-Telegram-Init-Data"
)

// AuthRequired verifies the Telegram init data before any handler runs and
// stores the resulting identity in the request locals.
func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	raw := extractInitData(c)
	if raw == "" {
		return handler.rejectUnauthorized(c, security.ErrEmptyInitData)
	}

	identity, err := handler.verifier.Verify(raw, handler.now())
	if err != nil {
		return handler.rejectUnauthorized(c, err)
	}

	c.Locals(contextIdentityKey, identity)
	return c.Next()
}

func (handler *Handler) rejectUnauthorized(c *fiber.Ctx, err error) error {
	reason := authFailureReason(err)
	handler.metrics.AuthFailed(reason)
	handler.requestLogger(c).Info().Str("reason", reason).Msg("init data rejected")
	return handler.apiError(c, fiber.StatusUnauthorized, kindUnauthorized, "")
}

// extractInitData looks at the Authorization header, then the dedicated
// header, then the initData field of a JSON body sent by older clients.
func extractInitData(c *fiber.Ctx) string {
	if scheme, value, ok := strings.Cut(strings.TrimSpace(c.Get(fiber.HeaderAuthorization)), " "); ok && strings.EqualFold(scheme, authSchemeTMA) {
		if token := strings.TrimSpace(value); token != "" {
			return token
		}
	}
	if token := strings.TrimSpace(c.Get(initDataHeaderName)); token != "" {
		return token
	}
	return initDataFromBody(c.Body())
}

func initDataFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	payload := struct {
		InitData      string `json:"initData"`
		InitDataSnake string `json:"init_data"`
	}{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if token := strings.TrimSpace(payload.InitData); token != "" {
		return token
	}
	return strings.TrimSpace(payload.InitDataSnake)
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, security.ErrEmptyInitData):
		return "missing"
	case errors.Is(err, security.ErrMissingSignature), errors.Is(err, security.ErrSignatureMismatch):
		return "signature"
	case errors.Is(err, security.ErrExpired):
		return "expired"
	case errors.Is(err, security.ErrAuthDateInFuture):
		return "future"
	case errors.Is(err, security.ErrMalformedUser):
		return "user"
	default:
		return "malformed"
	}
}
