package user_plan

import (
	"jmkresearch-backend/internal/common/api"
	"jmkresearch-backend/internal/middleware"
	"jmkresearch-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type UserPlanController struct {
	UserPlanService UserPlanService
}

func NewUserPlanController(service UserPlanService) *UserPlanController {
	return &UserPlanController{UserPlanService: service}
}

// AssignPlan godoc
// @Summary      Assign a plan to a user
// @Description  Administrators assign directly; main dealers may sub-assign plans they hold to users under them
// @Tags         user-plans
// @Accept       json
// @Produce      json
// @Param        body body AssignPlanRequest true "Assignment"
// @Success      201  {object} UserPlan
// @Failure      403  {object} map[string]string
// @Failure      409  {object} map[string]string
// @Router       /api/user-plans [post]
func (ctrl *UserPlanController) AssignPlan(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	var req AssignPlanRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	userPlan, err := ctrl.UserPlanService.Assign(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(userPlan)
}

// ListUserPlans godoc
// @Summary      List user plans visible to the caller
// @Tags         user-plans
// @Produce      json
// @Param        user_ref    query string false "Holder"
// @Param        plan_ref    query string false "Plan"
// @Param        assigned_by query string false "Assigner"
// @Param        is_active   query bool   false "Filter by active flag"
// @Success      200  {array} View
// @Router       /api/user-plans [get]
func (ctrl *UserPlanController) ListUserPlans(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	filter := ListFilter{IsActive: api.QueryBool(c, "is_active")}
	if filter.UserRef, err = validation.OptionalObjectID("user_ref", c.Query("user_ref")); err != nil {
		return err
	}
	if filter.PlanRef, err = validation.OptionalObjectID("plan_ref", c.Query("plan_ref")); err != nil {
		return err
	}
	if filter.AssignedBy, err = validation.OptionalObjectID("assigned_by", c.Query("assigned_by")); err != nil {
		return err
	}

	views, err := ctrl.UserPlanService.ListUserPlans(c.UserContext(), caller, filter)
	if err != nil {
		return err
	}
	return c.JSON(views)
}

// GetUserPlan godoc
// @Summary      Get a user plan
// @Tags         user-plans
// @Produce      json
// @Param        id path string true "User plan ID"
// @Success      200  {object} View
// @Router       /api/user-plans/{id} [get]
func (ctrl *UserPlanController) GetUserPlan(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	view, err := ctrl.UserPlanService.GetUserPlan(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// UpdateUserPlan godoc
// @Summary      Update a user plan
// @Description  Changes to mrp, dlp or is_active are copied to the holder's own sub-assignments of the same plan (one level)
// @Tags         user-plans
// @Accept       json
// @Produce      json
// @Param        id   path string true "User plan ID"
// @Param        body body UpdateUserPlanRequest true "Fields to change"
// @Success      200  {object} UserPlan
// @Router       /api/user-plans/{id} [patch]
func (ctrl *UserPlanController) UpdateUserPlan(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	var req UpdateUserPlanRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	userPlan, err := ctrl.UserPlanService.UpdateUserPlanByID(c.UserContext(), caller, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(userPlan)
}

// UpdateUserPlanStatus godoc
// @Summary      Activate or deactivate a single user plan
// @Description  Does not cascade
// @Tags         user-plans
// @Accept       json
// @Produce      json
// @Param        id   path string true "User plan ID"
// @Param        body body UpdateStatusRequest true "Status"
// @Success      200  {object} UserPlan
// @Failure      403  {object} map[string]string
// @Router       /api/user-plans/{id}/status [patch]
func (ctrl *UserPlanController) UpdateUserPlanStatus(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	var req UpdateStatusRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	userPlan, err := ctrl.UserPlanService.UpdateUserPlanStatus(c.UserContext(), caller, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(userPlan)
}

// DeleteUserPlan godoc
// @Summary      Delete a user plan
// @Tags         user-plans
// @Param        id path string true "User plan ID"
// @Success      204
// @Router       /api/user-plans/{id} [delete]
func (ctrl *UserPlanController) DeleteUserPlan(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	if err := ctrl.UserPlanService.DeleteUserPlan(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
