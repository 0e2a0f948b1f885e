package user_role

import (
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserRoleApi struct {
	controller *UserRoleController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewUserRoleApi(controller *UserRoleController, cfg *config.Config, authorizer middleware.Authorizer) *UserRoleApi {
	return &UserRoleApi{
		controller: controller,
		config:     cfg,
		authorizer: authorizer,
	}
}

func (h *UserRoleApi) Setup(app *fiber.App) {
	roles := app.Group("/api/users/:id/roles",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireCapability(h.authorizer, common_models.CapAssignRoles),
	)

	roles.Get("/", h.controller.GetUserRolesAndPermissions)
	roles.Post("/", h.controller.AssignRolesToUser)
	roles.Put("/", h.controller.ToggleUserRoles)
	roles.Delete("/", h.controller.RemoveRolesFromUser)
}
