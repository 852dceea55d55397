package handlers

import (
	"github.com/gofiber/fiber/v2"

	"recipe-service/domain"
	"recipe-service/internal/api/presenters"
	"recipe-service/pkg/health"
)

type (
	HealthHandler interface {
		Health(c *fiber.Ctx) error
		Version(c *fiber.Ctx) error
	}

	healthHandler struct {
		healthService health.HealthService
	}
)

func NewHealthHandler(healthService health.HealthService) HealthHandler {
	return &healthHandler{healthService: healthService}
}

func (h *healthHandler) Health(c *fiber.Ctx) error {
	report, err := h.healthService.Check(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(presenters.Response{
			Status:  false,
			Message: domain.MessageFailedHealth,
			Data:    report,
			Error:   err.Error(),
		})
	}
	return presenters.SuccessResponse(c, report, fiber.StatusOK, domain.MessageSuccessHealth)
}

func (h *healthHandler) Version(c *fiber.Ctx) error {
	return presenters.SuccessResponse(c, h.healthService.Version(), fiber.StatusOK, domain.MessageSuccessVersion)
}
