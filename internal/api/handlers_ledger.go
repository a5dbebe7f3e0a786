package api

import (
	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) SaveMeal(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return handler.unauthorized(c)
	}

	request := mealRequest{}
	if err := handler.decodeBody(c, &request); err != nil {
		return handler.badBody(c, err)
	}
	input, err := request.toInput()
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	meal, err := handler.ledger.SaveMeal(c.UserContext(), identity.UserID, input, handler.now())
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return success(c, fiber.Map{"meal": meal})
}

func (handler *Handler) SaveWater(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return handler.unauthorized(c)
	}

	request := waterRequest{}
	if err := handler.decodeBody(c, &request); err != nil {
		return handler.badBody(c, err)
	}
	input, err := request.toInput()
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	entry, err := handler.ledger.SaveWater(c.UserContext(), identity.UserID, input, handler.now())
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return success(c, fiber.Map{"water": entry})
}
