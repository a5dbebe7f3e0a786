package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/nutrilog/internal/services"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Error kinds are part of the wire contract; clients switch on them.
const (
	kindUnauthorized       = "unauthorized"
	kindBadRequest         = "bad_request"
	kindNotFound           = "not_found"
	kindRateLimited        = "rate_limited"
	kindServiceUnavailable = "service_unavailable"
	kindResponseUnusable   = "response_unusable"
	kindInternal           = "internal"
)

type errorEnvelope struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (handler *Handler) apiError(c *fiber.Ctx, status int, kind string, field string) error {
	return c.Status(status).JSON(errorEnvelope{
		Status:  statusError,
		Kind:    kind,
		Message: handler.i18n.Translate(handler.requestLanguage(c), "error."+kind),
		Field:   field,
	})
}

func success(c *fiber.Ctx, payload fiber.Map) error {
	if payload == nil {
		payload = fiber.Map{}
	}
	payload["status"] = statusSuccess
	return c.JSON(payload)
}

// respondServiceError maps service failures onto the error envelope. Store
// and analyzer details are logged, never echoed to the client.
func (handler *Handler) respondServiceError(c *fiber.Ctx, err error) error {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return handler.apiError(c, fiber.StatusBadRequest, kindBadRequest, validationErr.Field)
	case errors.Is(err, services.ErrInvalidImage):
		return handler.apiError(c, fiber.StatusBadRequest, kindBadRequest, "image_base64")
	case errors.Is(err, services.ErrAnalyzerUnusable):
		handler.requestLogger(c).Warn().Err(err).Msg("food analyzer response unusable")
		return handler.apiError(c, fiber.StatusInternalServerError, kindResponseUnusable, "")
	case errors.Is(err, services.ErrAnalyzerUnavailable), errors.Is(err, services.ErrAnalyzerNotConfigured):
		handler.requestLogger(c).Warn().Err(err).Msg("food analyzer unavailable")
		return handler.apiError(c, fiber.StatusInternalServerError, kindServiceUnavailable, "")
	default:
		handler.requestLogger(c).Error().Err(err).Msg("request failed")
		return handler.apiError(c, fiber.StatusInternalServerError, kindInternal, "")
	}
}

// ErrorHandler renders routing errors, body limit violations and recovered
// panics through the same envelope as handler errors.
func (handler *Handler) ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			return handler.apiError(c, fiberErr.Code, kindNotFound, "")
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			return handler.apiError(c, fiberErr.Code, kindBadRequest, "")
		case fiber.StatusTooManyRequests:
			return handler.apiError(c, fiberErr.Code, kindRateLimited, "")
		}
	}

	handler.requestLogger(c).Error().Err(err).Msg("unhandled request error")
	return handler.apiError(c, fiber.StatusInternalServerError, kindInternal, "")
}
