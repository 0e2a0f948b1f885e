package user_plan

import (
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserPlanApi struct {
	controller *UserPlanController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewUserPlanApi(controller *UserPlanController, cfg *config.Config, authorizer middleware.Authorizer) *UserPlanApi {
	return &UserPlanApi{
		controller: controller,
		config:     cfg,
		authorizer: authorizer,
	}
}

func (h *UserPlanApi) Setup(app *fiber.App) {
	plans := app.Group("/api/user-plans", middleware.AuthMiddleware(h.config.SkipAuth))
	read := middleware.RequireCapability(h.authorizer, models.CapGetUserPlans)
	manage := middleware.RequireCapability(h.authorizer, models.CapManageUserPlans)

	plans.Get("/", read, h.controller.ListUserPlans)
	plans.Get("/:id", read, h.controller.GetUserPlan)
	plans.Post("/", manage, h.controller.AssignPlan)
	plans.Patch("/:id", manage, h.controller.UpdateUserPlan)
	// ownership rules for status changes are enforced by the service
	plans.Patch("/:id/status", read, h.controller.UpdateUserPlanStatus)
	plans.Delete("/:id", manage, h.controller.DeleteUserPlan)
}
