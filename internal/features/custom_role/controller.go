package custom_role

import (
	"jmkresearch-backend/internal/common/api"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CustomRoleController struct {
	CustomRoleService CustomRoleService
}

func NewCustomRoleController(customRoleService CustomRoleService) *CustomRoleController {
	return &CustomRoleController{CustomRoleService: customRoleService}
}

// CreateCustomRole godoc
// @Summary      Create a custom role
// @Description  Permissions must be a non-empty list of existing permission ids
// @Tags         custom-roles
// @Accept       json
// @Produce      json
// @Param        role body CreateCustomRoleRequest true "Custom role"
// @Success      201  {object} View
// @Failure      400  {object} map[string]string
// @Failure      404  {object} map[string]string
// @Router       /api/custom-roles [post]
func (ctrl *CustomRoleController) CreateCustomRole(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	var req CreateCustomRoleRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	role, err := ctrl.CustomRoleService.CreateCustomRole(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(role)
}

// ListCustomRoles godoc
// @Summary      List custom roles
// @Tags         custom-roles
// @Produce      json
// @Success      200  {array} View
// @Router       /api/custom-roles [get]
func (ctrl *CustomRoleController) ListCustomRoles(c *fiber.Ctx) error {
	roles, err := ctrl.CustomRoleService.ListCustomRoles(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(roles)
}

// GetCustomRole godoc
// @Summary      Get a custom role
// @Tags         custom-roles
// @Produce      json
// @Param        id path string true "Custom role ID"
// @Success      200  {object} View
// @Failure      404  {object} map[string]string
// @Router       /api/custom-roles/{id} [get]
func (ctrl *CustomRoleController) GetCustomRole(c *fiber.Ctx) error {
	role, err := ctrl.CustomRoleService.GetCustomRole(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(role)
}

// UpdateCustomRole godoc
// @Summary      Update a custom role
// @Tags         custom-roles
// @Accept       json
// @Produce      json
// @Param        id path string true "Custom role ID"
// @Param        role body UpdateCustomRoleRequest true "Fields to change"
// @Success      200  {object} View
// @Router       /api/custom-roles/{id} [patch]
func (ctrl *CustomRoleController) UpdateCustomRole(c *fiber.Ctx) error {
	var req UpdateCustomRoleRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	role, err := ctrl.CustomRoleService.UpdateCustomRole(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(role)
}

// DeleteCustomRole godoc
// @Summary      Delete a custom role
// @Description  Refused while users are linked to the role
// @Tags         custom-roles
// @Param        id path string true "Custom role ID"
// @Success      204
// @Failure      409  {object} map[string]string
// @Router       /api/custom-roles/{id} [delete]
func (ctrl *CustomRoleController) DeleteCustomRole(c *fiber.Ctx) error {
	if err := ctrl.CustomRoleService.DeleteCustomRole(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
