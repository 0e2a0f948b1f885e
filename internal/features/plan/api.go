package plan

import (
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PlanApi struct {
	controller *PlanController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewPlanApi(controller *PlanController, cfg *config.Config, authorizer middleware.Authorizer) *PlanApi {
	return &PlanApi{
		controller: controller,
		config:     cfg,
		authorizer: authorizer,
	}
}

func (h *PlanApi) Setup(app *fiber.App) {
	plans := app.Group("/api/plans", middleware.AuthMiddleware(h.config.SkipAuth))
	manage := middleware.RequireCapability(h.authorizer, common_models.CapManagePlans)

	plans.Get("/", h.controller.ListPlans)
	plans.Get("/:id", h.controller.GetPlan)
	plans.Post("/", manage, h.controller.CreatePlan)
	plans.Patch("/:id", manage, h.controller.UpdatePlan)
	plans.Delete("/:id", manage, h.controller.DeletePlan)
}
