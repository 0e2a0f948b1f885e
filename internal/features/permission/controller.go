package permission

import (
	"jmkresearch-backend/internal/common/api"
	"jmkresearch-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type PermissionController struct {
	PermissionService PermissionService
}

func NewPermissionController(permissionService PermissionService) *PermissionController {
	return &PermissionController{PermissionService: permissionService}
}

// CreatePermission godoc
// @Summary      Create a permission
// @Tags         permissions
// @Accept       json
// @Produce      json
// @Param        permission body CreatePermissionRequest true "Permission"
// @Success      201  {object} View
// @Failure      400  {object} map[string]string
// @Failure      404  {object} map[string]string
// @Router       /api/permissions [post]
func (ctrl *PermissionController) CreatePermission(c *fiber.Ctx) error {
	var req CreatePermissionRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	created, err := ctrl.PermissionService.CreatePermission(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListPermissions godoc
// @Summary      List permissions
// @Tags         permissions
// @Produce      json
// @Param        domain    query string false "Domain ID"
// @Param        is_active query bool   false "Filter by active flag"
// @Success      200  {array} View
// @Router       /api/permissions [get]
func (ctrl *PermissionController) ListPermissions(c *fiber.Ctx) error {
	filter := ListFilter{IsActive: api.QueryBool(c, "is_active")}
	domainID, err := validation.OptionalObjectID("domain", c.Query("domain"))
	if err != nil {
		return err
	}
	filter.Domain = domainID

	permissions, err := ctrl.PermissionService.ListPermissions(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(permissions)
}

// GetPermission godoc
// @Summary      Get a permission
// @Tags         permissions
// @Produce      json
// @Param        id path string true "Permission ID"
// @Success      200  {object} View
// @Failure      404  {object} map[string]string
// @Router       /api/permissions/{id} [get]
func (ctrl *PermissionController) GetPermission(c *fiber.Ctx) error {
	permission, err := ctrl.PermissionService.GetPermission(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(permission)
}

// UpdatePermission godoc
// @Summary      Update a permission
// @Tags         permissions
// @Accept       json
// @Produce      json
// @Param        id path string true "Permission ID"
// @Param        permission body UpdatePermissionRequest true "Fields to change"
// @Success      200  {object} View
// @Router       /api/permissions/{id} [patch]
func (ctrl *PermissionController) UpdatePermission(c *fiber.Ctx) error {
	var req UpdatePermissionRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	permission, err := ctrl.PermissionService.UpdatePermission(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(permission)
}

// DeletePermission godoc
// @Summary      Delete a permission
// @Description  Also removes role mappings and custom role / user references
// @Tags         permissions
// @Param        id path string true "Permission ID"
// @Success      204
// @Failure      409  {object} map[string]string
// @Router       /api/permissions/{id} [delete]
func (ctrl *PermissionController) DeletePermission(c *fiber.Ctx) error {
	if err := ctrl.PermissionService.DeletePermission(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
