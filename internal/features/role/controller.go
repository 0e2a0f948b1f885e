package role

import (
	"jmkresearch-backend/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type RoleController struct {
	RoleService RoleService
}

func NewRoleController(roleService RoleService) *RoleController {
	return &RoleController{RoleService: roleService}
}

// CreateRole godoc
// @Summary      Create a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        role body CreateRoleRequest true "Role"
// @Success      201  {object} Role
// @Failure      409  {object} map[string]string
// @Router       /api/roles [post]
func (ctrl *RoleController) CreateRole(c *fiber.Ctx) error {
	var req CreateRoleRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	role, err := ctrl.RoleService.CreateRole(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(role)
}

// ListRoles godoc
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Param        status query bool false "Filter by status"
// @Success      200  {array} Role
// @Router       /api/roles [get]
func (ctrl *RoleController) ListRoles(c *fiber.Ctx) error {
	roles, err := ctrl.RoleService.ListRoles(c.UserContext(), ListFilter{Status: api.QueryBool(c, "status")})
	if err != nil {
		return err
	}
	return c.JSON(roles)
}

// GetRole godoc
// @Summary      Get a role
// @Tags         roles
// @Produce      json
// @Param        id path string true "Role ID"
// @Success      200  {object} Role
// @Failure      404  {object} map[string]string
// @Router       /api/roles/{id} [get]
func (ctrl *RoleController) GetRole(c *fiber.Ctx) error {
	role, err := ctrl.RoleService.GetRole(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(role)
}

// UpdateRole godoc
// @Summary      Update a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        id path string true "Role ID"
// @Param        role body UpdateRoleRequest true "Fields to change"
// @Success      200  {object} Role
// @Failure      409  {object} map[string]string
// @Router       /api/roles/{id} [patch]
func (ctrl *RoleController) UpdateRole(c *fiber.Ctx) error {
	var req UpdateRoleRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	role, err := ctrl.RoleService.UpdateRole(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(role)
}

// DeleteRole godoc
// @Summary      Delete a role
// @Description  Also removes the role's permission mappings and user assignments
// @Tags         roles
// @Param        id path string true "Role ID"
// @Success      204
// @Router       /api/roles/{id} [delete]
func (ctrl *RoleController) DeleteRole(c *fiber.Ctx) error {
	if err := ctrl.RoleService.DeleteRole(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
