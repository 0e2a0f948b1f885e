package permission

import (
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PermissionApi struct {
	controller *PermissionController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewPermissionApi(controller *PermissionController, cfg *config.Config, authorizer middleware.Authorizer) *PermissionApi {
	return &PermissionApi{
		controller: controller,
		config:     cfg,
		authorizer: authorizer,
	}
}

func (h *PermissionApi) Setup(app *fiber.App) {
	permissions := app.Group("/api/permissions",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireCapability(h.authorizer, common_models.CapManagePermissions),
	)

	permissions.Get("/", h.controller.ListPermissions)
	permissions.Get("/:id", h.controller.GetPermission)
	permissions.Post("/", h.controller.CreatePermission)
	permissions.Patch("/:id", h.controller.UpdatePermission)
	permissions.Delete("/:id", h.controller.DeletePermission)
}
