package role_permission

import (
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RolePermissionApi struct {
	controller *RolePermissionController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewRolePermissionApi(controller *RolePermissionController, cfg *config.Config, authorizer middleware.Authorizer) *RolePermissionApi {
	return &RolePermissionApi{
		controller: controller,
		config:     cfg,
		authorizer: authorizer,
	}
}

func (h *RolePermissionApi) Setup(app *fiber.App) {
	mappings := app.Group("/api/roles/:id/permissions",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireCapability(h.authorizer, common_models.CapManageRolePermissions),
	)

	mappings.Get("/", h.controller.GetRolePermissions)
	mappings.Get("/available", h.controller.GetAvailablePermissions)
	mappings.Post("/", h.controller.AddPermissionsToRole)
	mappings.Delete("/", h.controller.RemovePermissionsFromRole)
}
