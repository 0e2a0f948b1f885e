package domain

import (
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DomainApi struct {
	controller *DomainController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewDomainApi(controller *DomainController, cfg *config.Config, authorizer middleware.Authorizer) *DomainApi {
	return &DomainApi{
		controller: controller,
		config:     cfg,
		authorizer: authorizer,
	}
}

func (h *DomainApi) Setup(app *fiber.App) {
	domains := app.Group("/api/domains", middleware.AuthMiddleware(h.config.SkipAuth))
	manage := middleware.RequireCapability(h.authorizer, common_models.CapManageDomains)

	domains.Get("/", h.controller.ListDomains)
	domains.Get("/:id", h.controller.GetDomain)
	domains.Post("/", manage, h.controller.CreateDomain)
	domains.Patch("/:id", manage, h.controller.UpdateDomain)
	domains.Delete("/:id", manage, h.controller.DeleteDomain)
}
