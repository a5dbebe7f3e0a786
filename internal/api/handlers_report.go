package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/nutrilog/internal/services"
)

type reportResponse struct {
	Status string `json:"status"`
	services.DailyReport
}

// GetReport always answers 200 for an authenticated caller; store failures
// surface as degraded=true.
func (handler *Handler) GetReport(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return handler.unauthorized(c)
	}

	report := handler.reports.BuildReport(c.UserContext(), identity, handler.now())
	return c.JSON(reportResponse{Status: statusSuccess, DailyReport: report})
}
