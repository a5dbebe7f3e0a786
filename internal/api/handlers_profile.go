package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/nutrilog/internal/models"
)

// profileView adds the short field names the mini-app reads to the stored
// profile.
type profileView struct {
	models.Profile
	Weight   float64 `json:"weight"`
	Height   float64 `json:"height"`
	Activity string  `json:"activity"`
}

func newProfileView(profile models.Profile) profileView {
	return profileView{
		Profile:  profile,
		Weight:   profile.WeightKg,
		Height:   profile.HeightCm,
		Activity: profile.ActivityLevel,
	}
}

func (handler *Handler) SaveProfile(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return handler.unauthorized(c)
	}

	request := profileRequest{}
	if err := handler.decodeBody(c, &request); err != nil {
		return handler.badBody(c, err)
	}
	input, err := request.toInput()
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	profile, err := handler.profiles.Save(c.UserContext(), identity, input, handler.now())
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return success(c, fiber.Map{"exists": true, "data": newProfileView(profile)})
}

func (handler *Handler) GetProfile(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return handler.unauthorized(c)
	}

	profile, found, err := handler.profiles.Fetch(c.UserContext(), identity.UserID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	if !found {
		return success(c, fiber.Map{"exists": false})
	}
	return success(c, fiber.Map{"exists": true, "data": newProfileView(profile)})
}
