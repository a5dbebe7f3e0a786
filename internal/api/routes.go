package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(handler.metrics.Handler()))

	api := app.Group("/api", handler.AuthRequired)
	registerAPIRoutes(api, handler)
	registerLegacyRoutes(api, handler)
}

func registerAPIRoutes(api fiber.Router, handler *Handler) {
	api.Get("/report", handler.GetReport)
	api.Post("/report", handler.GetReport)

	api.Post("/meals", handler.SaveMeal)
	api.Post("/water", handler.SaveWater)

	api.Get("/profile", handler.GetProfile)
	api.Post("/profile", handler.GetProfile)
	api.Put("/profile", handler.SaveProfile)
	api.Post("/profile/save", handler.SaveProfile)

	api.Post("/photo/analyze", handler.PhotoRateLimit, handler.AnalyzePhoto)
}

// registerLegacyRoutes keeps the endpoint names shipped mini-app builds
// still call.
func registerLegacyRoutes(legacy fiber.Router, handler *Handler) {
	legacy.Post("/get_daily_report", handler.GetReport)
	legacy.Post("/save_meal", handler.SaveMeal)
	legacy.Post("/add_water", handler.SaveWater)
	legacy.Post("/save_profile", handler.SaveProfile)
	legacy.Post("/get_profile", handler.GetProfile)
	legacy.Post("/process_photo", handler.PhotoRateLimit, handler.AnalyzePhoto)
}
