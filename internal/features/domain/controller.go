package domain

import (
	"jmkresearch-backend/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type DomainController struct {
	DomainService DomainService
}

func NewDomainController(domainService DomainService) *DomainController {
	return &DomainController{DomainService: domainService}
}

// CreateDomain godoc
// @Summary      Create a permission domain
// @Tags         domains
// @Accept       json
// @Produce      json
// @Param        domain body CreateDomainRequest true "Domain"
// @Success      201  {object} Domain
// @Failure      400  {object} map[string]string
// @Failure      409  {object} map[string]string
// @Router       /api/domains [post]
func (ctrl *DomainController) CreateDomain(c *fiber.Ctx) error {
	var req CreateDomainRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	created, err := ctrl.DomainService.CreateDomain(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListDomains godoc
// @Summary      List permission domains
// @Tags         domains
// @Produce      json
// @Param        status query bool false "Filter by status"
// @Success      200  {array} Domain
// @Router       /api/domains [get]
func (ctrl *DomainController) ListDomains(c *fiber.Ctx) error {
	domains, err := ctrl.DomainService.ListDomains(c.UserContext(), ListFilter{Status: api.QueryBool(c, "status")})
	if err != nil {
		return err
	}
	return c.JSON(domains)
}

// GetDomain godoc
// @Summary      Get a permission domain
// @Tags         domains
// @Produce      json
// @Param        id path string true "Domain ID"
// @Success      200  {object} Domain
// @Failure      404  {object} map[string]string
// @Router       /api/domains/{id} [get]
func (ctrl *DomainController) GetDomain(c *fiber.Ctx) error {
	domain, err := ctrl.DomainService.GetDomain(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(domain)
}

// UpdateDomain godoc
// @Summary      Update a permission domain
// @Tags         domains
// @Accept       json
// @Produce      json
// @Param        id path string true "Domain ID"
// @Param        domain body UpdateDomainRequest true "Fields to change"
// @Success      200  {object} Domain
// @Router       /api/domains/{id} [patch]
func (ctrl *DomainController) UpdateDomain(c *fiber.Ctx) error {
	var req UpdateDomainRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	domain, err := ctrl.DomainService.UpdateDomain(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(domain)
}

// DeleteDomain godoc
// @Summary      Delete a permission domain
// @Description  Refused while permissions reference the domain
// @Tags         domains
// @Param        id path string true "Domain ID"
// @Success      204
// @Failure      409  {object} map[string]string
// @Router       /api/domains/{id} [delete]
func (ctrl *DomainController) DeleteDomain(c *fiber.Ctx) error {
	if err := ctrl.DomainService.DeleteDomain(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
