package integrity

import (
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type IntegrityApi struct {
	controller *IntegrityController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewIntegrityApi(controller *IntegrityController, cfg *config.Config, authorizer middleware.Authorizer) *IntegrityApi {
	return &IntegrityApi{
		controller: controller,
		config:     cfg,
		authorizer: authorizer,
	}
}

func (h *IntegrityApi) Setup(app *fiber.App) {
	integrity := app.Group("/api/integrity",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireCapability(h.authorizer, models.CapRunIntegrity),
	)
	integrity.Post("/sweep", h.controller.RunSweep)
	integrity.Get("/reports", h.controller.ListReports)
}
