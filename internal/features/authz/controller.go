package authz

import (
	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuthzController struct {
	Gate *Gate
}

func NewAuthzController(gate *Gate) *AuthzController {
	return &AuthzController{Gate: gate}
}

// Me godoc
// @Summary      Effective permissions of the caller
// @Tags         authz
// @Produce      json
// @Success      200  {object} EffectivePermissionSet
// @Router       /api/authz/me [get]
func (ctrl *AuthzController) Me(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	set, err := ctrl.Gate.EffectiveSet(c.UserContext(), caller.ID)
	if err != nil {
		return err
	}
	return c.JSON(set)
}

// Check godoc
// @Summary      Check a single capability for the caller
// @Tags         authz
// @Produce      json
// @Param        capability query string true "Capability name, e.g. getUsers or tender:read"
// @Success      200  {object} Decision
// @Router       /api/authz/check [get]
func (ctrl *AuthzController) Check(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	capability := c.Query("capability")
	if capability == "" {
		return apperrors.Validation("capability is required")
	}
	decision, err := ctrl.Gate.Authorize(c.UserContext(), caller, models.Capability(capability))
	if err != nil {
		return err
	}
	return c.JSON(decision)
}
