package system

import (
	"jmkresearch-backend/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

type HealthApi struct {
	controller *HealthController
	registry   *prometheus.Registry
}

func NewHealthApi(controller *HealthController, registry *prometheus.Registry) *HealthApi {
	return &HealthApi{
		controller: controller,
		registry:   registry,
	}
}

// Setup registers the unauthenticated operational routes.
func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/health", h.controller.Health)
	app.Get("/metrics", metrics.Handler(h.registry))
}
