package plan

import (
	"jmkresearch-backend/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type PlanController struct {
	PlanService PlanService
}

func NewPlanController(planService PlanService) *PlanController {
	return &PlanController{PlanService: planService}
}

// CreatePlan godoc
// @Summary      Create a catalog plan
// @Tags         plans
// @Accept       json
// @Produce      json
// @Param        plan body CreatePlanRequest true "Plan"
// @Success      201  {object} Plan
// @Failure      409  {object} map[string]string
// @Router       /api/plans [post]
func (ctrl *PlanController) CreatePlan(c *fiber.Ctx) error {
	var req CreatePlanRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	plan, err := ctrl.PlanService.CreatePlan(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

// ListPlans godoc
// @Summary      List catalog plans
// @Tags         plans
// @Produce      json
// @Param        is_active query bool false "Filter by active flag"
// @Success      200  {array} Plan
// @Router       /api/plans [get]
func (ctrl *PlanController) ListPlans(c *fiber.Ctx) error {
	plans, err := ctrl.PlanService.ListPlans(c.UserContext(), ListFilter{IsActive: api.QueryBool(c, "is_active")})
	if err != nil {
		return err
	}
	return c.JSON(plans)
}

// GetPlan godoc
// @Summary      Get a catalog plan
// @Tags         plans
// @Produce      json
// @Param        id path string true "Plan ID"
// @Success      200  {object} Plan
// @Failure      404  {object} map[string]string
// @Router       /api/plans/{id} [get]
func (ctrl *PlanController) GetPlan(c *fiber.Ctx) error {
	plan, err := ctrl.PlanService.GetPlan(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(plan)
}

// UpdatePlan godoc
// @Summary      Update a catalog plan
// @Tags         plans
// @Accept       json
// @Produce      json
// @Param        id path string true "Plan ID"
// @Param        plan body UpdatePlanRequest true "Fields to change"
// @Success      200  {object} Plan
// @Router       /api/plans/{id} [patch]
func (ctrl *PlanController) UpdatePlan(c *fiber.Ctx) error {
	var req UpdatePlanRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	plan, err := ctrl.PlanService.UpdatePlan(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(plan)
}

// DeletePlan godoc
// @Summary      Delete a catalog plan
// @Description  Refused while user plans reference it
// @Tags         plans
// @Param        id path string true "Plan ID"
// @Success      204
// @Failure      409  {object} map[string]string
// @Router       /api/plans/{id} [delete]
func (ctrl *PlanController) DeletePlan(c *fiber.Ctx) error {
	if err := ctrl.PlanService.DeletePlan(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
