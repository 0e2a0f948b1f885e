package custom_role

import (
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CustomRoleApi struct {
	controller *CustomRoleController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewCustomRoleApi(controller *CustomRoleController, cfg *config.Config, authorizer middleware.Authorizer) *CustomRoleApi {
	return &CustomRoleApi{
		controller: controller,
		config:     cfg,
		authorizer: authorizer,
	}
}

func (h *CustomRoleApi) Setup(app *fiber.App) {
	roles := app.Group("/api/custom-roles",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireCapability(h.authorizer, common_models.CapManageCustomRoles),
	)

	roles.Get("/", h.controller.ListCustomRoles)
	roles.Post("/", h.controller.CreateCustomRole)
	roles.Get("/:id", h.controller.GetCustomRole)
	roles.Patch("/:id", h.controller.UpdateCustomRole)
	roles.Delete("/:id", h.controller.DeleteCustomRole)
}
