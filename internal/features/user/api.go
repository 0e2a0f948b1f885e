package user

import (
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	controller *UserController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewUserApi(controller *UserController, cfg *config.Config, authorizer middleware.Authorizer) *UserApi {
	return &UserApi{
		controller: controller,
		config:     cfg,
		authorizer: authorizer,
	}
}

// Setup registers user routes
func (h *UserApi) Setup(app *fiber.App) {
	users := app.Group("/api/users", middleware.AuthMiddleware(h.config.SkipAuth))
	read := middleware.RequireCapability(h.authorizer, models.CapGetUsers)
	manage := middleware.RequireCapability(h.authorizer, models.CapManageUsers)

	users.Get("/", read, h.controller.ListUsers)
	users.Get("/:id", read, h.controller.GetUser)
	users.Post("/", manage, h.controller.CreateUser)
	users.Patch("/:id", manage, h.controller.UpdateUser)
	users.Delete("/:id", manage, h.controller.DeleteUser)
}
