package role_permission

import (
	"jmkresearch-backend/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type RolePermissionController struct {
	RolePermissionService RolePermissionService
}

func NewRolePermissionController(service RolePermissionService) *RolePermissionController {
	return &RolePermissionController{RolePermissionService: service}
}

// AddPermissionsToRole godoc
// @Summary      Map permissions to a role
// @Description  Already-mapped permissions are skipped and counted
// @Tags         role-permissions
// @Accept       json
// @Produce      json
// @Param        id   path string true "Role ID"
// @Param        body body PermissionIDsRequest true "Permission ids"
// @Success      200  {object} models.CountResult
// @Failure      404  {object} map[string]string
// @Router       /api/roles/{id}/permissions [post]
func (ctrl *RolePermissionController) AddPermissionsToRole(c *fiber.Ctx) error {
	var req PermissionIDsRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	result, err := ctrl.RolePermissionService.AddPermissionsToRole(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// RemovePermissionsFromRole godoc
// @Summary      Unmap permissions from a role
// @Tags         role-permissions
// @Accept       json
// @Produce      json
// @Param        id   path string true "Role ID"
// @Param        body body PermissionIDsRequest true "Permission ids"
// @Success      200  {object} models.CountResult
// @Router       /api/roles/{id}/permissions [delete]
func (ctrl *RolePermissionController) RemovePermissionsFromRole(c *fiber.Ctx) error {
	var req PermissionIDsRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	result, err := ctrl.RolePermissionService.RemovePermissionsFromRole(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetRolePermissions godoc
// @Summary      List a role's permissions
// @Tags         role-permissions
// @Produce      json
// @Param        id path string true "Role ID"
// @Success      200  {array} View
// @Router       /api/roles/{id}/permissions [get]
func (ctrl *RolePermissionController) GetRolePermissions(c *fiber.Ctx) error {
	views, err := ctrl.RolePermissionService.GetRolePermissions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(views)
}

// GetAvailablePermissions godoc
// @Summary      List active permissions not yet mapped to a role
// @Tags         role-permissions
// @Produce      json
// @Param        id path string true "Role ID"
// @Success      200  {array} permission.View
// @Router       /api/roles/{id}/permissions/available [get]
func (ctrl *RolePermissionController) GetAvailablePermissions(c *fiber.Ctx) error {
	views, err := ctrl.RolePermissionService.GetAvailablePermissions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(views)
}
