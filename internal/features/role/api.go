package role

import (
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RoleApi struct {
	controller *RoleController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewRoleApi(controller *RoleController, cfg *config.Config, authorizer middleware.Authorizer) *RoleApi {
	return &RoleApi{
		controller: controller,
		config:     cfg,
		authorizer: authorizer,
	}
}

// Setup registers role routes
func (h *RoleApi) Setup(app *fiber.App) {
	roles := app.Group("/api/roles",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireCapability(h.authorizer, common_models.CapManageRoles),
	)

	roles.Get("/", h.controller.ListRoles)
	roles.Post("/", h.controller.CreateRole)
	roles.Get("/:id", h.controller.GetRole)
	roles.Patch("/:id", h.controller.UpdateRole)
	roles.Delete("/:id", h.controller.DeleteRole)
}
