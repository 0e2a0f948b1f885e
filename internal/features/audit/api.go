package audit

import (
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	config     *config.Config
	authorizer middleware.Authorizer
}

func NewAuditApi(controller *AuditController, config *config.Config, authorizer middleware.Authorizer) *AuditApi {
	return &AuditApi{
		controller: controller,
		config:     config,
		authorizer: authorizer,
	}
}

func (h *AuditApi) Setup(app *fiber.App) {
	audit := app.Group("/api/audit-logs", middleware.AuthMiddleware(h.config.SkipAuth))

	audit.Get("/", middleware.RequireCapability(h.authorizer, common_models.CapViewAudit), h.controller.ListLogs)
}
