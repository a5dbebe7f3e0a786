package api

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// decodeBody fills dest from a JSON body. An empty body leaves dest as is.
func (handler *Handler) decodeBody(c *fiber.Ctx, dest any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		handler.requestLogger(c).Debug().Err(err).Msg("request body rejected")
		return err
	}
	return nil
}

// badBody names the offending field when a value had the wrong JSON type and
// falls back to "body" for syntax errors.
func (handler *Handler) badBody(c *fiber.Ctx, err error) error {
	return handler.apiError(c, fiber.StatusBadRequest, kindBadRequest, bodyErrorField(err))
}

func bodyErrorField(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		path := strings.Split(typeErr.Field, ".")
		return path[len(path)-1]
	}
	return "body"
}

// unauthorized guards handlers mounted without AuthRequired.
func (handler *Handler) unauthorized(c *fiber.Ctx) error {
	return handler.apiError(c, fiber.StatusUnauthorized, kindUnauthorized, "")
}
