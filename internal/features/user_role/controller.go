package user_role

import (
	"jmkresearch-backend/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type UserRoleController struct {
	UserRoleService UserRoleService
}

func NewUserRoleController(service UserRoleService) *UserRoleController {
	return &UserRoleController{UserRoleService: service}
}

// AssignRolesToUser godoc
// @Summary      Assign roles to a user
// @Description  Roles the user already holds are skipped and counted
// @Tags         user-roles
// @Accept       json
// @Produce      json
// @Param        id   path string true "User ID"
// @Param        body body RoleIDsRequest true "Role ids"
// @Success      200  {object} models.CountResult
// @Router       /api/users/{id}/roles [post]
func (ctrl *UserRoleController) AssignRolesToUser(c *fiber.Ctx) error {
	var req RoleIDsRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	result, err := ctrl.UserRoleService.AssignRolesToUser(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// RemoveRolesFromUser godoc
// @Summary      Remove roles from a user
// @Tags         user-roles
// @Accept       json
// @Produce      json
// @Param        id   path string true "User ID"
// @Param        body body RoleIDsRequest true "Role ids"
// @Success      200  {object} models.CountResult
// @Router       /api/users/{id}/roles [delete]
func (ctrl *UserRoleController) RemoveRolesFromUser(c *fiber.Ctx) error {
	var req RoleIDsRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	result, err := ctrl.UserRoleService.RemoveRolesFromUser(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// ToggleUserRoles godoc
// @Summary      Replace all of a user's roles
// @Description  Removes every current role, then assigns exactly the given set
// @Tags         user-roles
// @Accept       json
// @Produce      json
// @Param        id   path string true "User ID"
// @Param        body body ReplaceRolesRequest true "Complete role set"
// @Success      200  {object} models.CountResult
// @Router       /api/users/{id}/roles [put]
func (ctrl *UserRoleController) ToggleUserRoles(c *fiber.Ctx) error {
	var req ReplaceRolesRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	result, err := ctrl.UserRoleService.ToggleUserRoles(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetUserRolesAndPermissions godoc
// @Summary      List a user's roles and their permissions
// @Tags         user-roles
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200  {object} RolesAndPermissions
// @Router       /api/users/{id}/roles [get]
func (ctrl *UserRoleController) GetUserRolesAndPermissions(c *fiber.Ctx) error {
	result, err := ctrl.UserRoleService.GetUserRolesAndPermissions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}
