package integrity

import (
	"github.com/gofiber/fiber/v2"
)

type IntegrityController struct {
	IntegrityService IntegrityService
}

func NewIntegrityController(service IntegrityService) *IntegrityController {
	return &IntegrityController{IntegrityService: service}
}

// RunSweep godoc
// @Summary      Run the integrity sweep now
// @Description  Removes dangling role and user mappings and reports hierarchy violations
// @Tags         integrity
// @Produce      json
// @Success      200  {object} Report
// @Router       /api/integrity/sweep [post]
func (ctrl *IntegrityController) RunSweep(c *fiber.Ctx) error {
	report, err := ctrl.IntegrityService.Sweep(c.UserContext(), TriggerManual)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// ListReports godoc
// @Summary      Recent integrity sweep reports
// @Tags         integrity
// @Produce      json
// @Param        limit query int false "Max reports" default(20)
// @Success      200  {array} Report
// @Router       /api/integrity/reports [get]
func (ctrl *IntegrityController) ListReports(c *fiber.Ctx) error {
	reports, err := ctrl.IntegrityService.ListReports(c.UserContext(), int64(c.QueryInt("limit", 20)))
	if err != nil {
		return err
	}
	return c.JSON(reports)
}
