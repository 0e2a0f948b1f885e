package authz

import (
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuthzApi struct {
	controller *AuthzController
	config     *config.Config
}

func NewAuthzApi(controller *AuthzController, cfg *config.Config) *AuthzApi {
	return &AuthzApi{controller: controller, config: cfg}
}

func (h *AuthzApi) Setup(app *fiber.App) {
	authz := app.Group("/api/authz", middleware.AuthMiddleware(h.config.SkipAuth))
	authz.Get("/me", h.controller.Me)
	authz.Get("/check", h.controller.Check)
}
