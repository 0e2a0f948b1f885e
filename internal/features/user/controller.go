package user

import (
	"strconv"

	"jmkresearch-backend/internal/common/api"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/hierarchy"
	"jmkresearch-backend/internal/middleware"
	"jmkresearch-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserController struct {
	UserService UserService
}

func NewUserController(userService UserService) *UserController {
	return &UserController{
		UserService: userService,
	}
}

// ListUsers godoc
// @Summary      List users visible to the caller
// @Description  Results are narrowed to the caller's place in the dealer hierarchy
// @Tags         users
// @Produce      json
// @Param        page            query int    false "Page number" default(1)
// @Param        limit           query int    false "Items per page" default(10)
// @Param        user_type       query string false "Filter by user type"
// @Param        main_dealer_ref query string false "Filter by main dealer"
// @Param        dealer_ref      query string false "Filter by dealer"
// @Param        location_ref    query string false "Filter by location"
// @Param        oem_ref         query string false "Filter by OEM"
// @Param        is_active       query bool   false "Filter by active flag"
// @Success      200  {object} ListUsersResult
// @Router       /api/users [get]
func (ctrl *UserController) ListUsers(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "10"), 10, 64)

	query := hierarchy.Query{
		UserType: models.UserType(c.Query("user_type")),
		IsActive: api.QueryBool(c, "is_active"),
	}
	refs := []struct {
		key string
		dst **primitive.ObjectID
	}{
		{"main_dealer_ref", &query.MainDealerRef},
		{"dealer_ref", &query.DealerRef},
		{"location_ref", &query.LocationRef},
		{"oem_ref", &query.OEMRef},
	}
	for _, ref := range refs {
		if *ref.dst, err = validation.OptionalObjectID(ref.key, c.Query(ref.key)); err != nil {
			return err
		}
	}

	result, err := ctrl.UserService.ListUsers(c.UserContext(), caller, query, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetUser godoc
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200  {object} models.User
// @Failure      403  {object} map[string]string
// @Failure      404  {object} map[string]string
// @Router       /api/users/{id} [get]
func (ctrl *UserController) GetUser(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	user, err := ctrl.UserService.GetUser(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// CreateUser godoc
// @Summary      Create a user
// @Description  Dealer-tier callers create accounts under themselves
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        user body CreateUserRequest true "User"
// @Success      201  {object} models.User
// @Failure      400  {object} map[string]string
// @Failure      403  {object} map[string]string
// @Failure      409  {object} map[string]string
// @Router       /api/users [post]
func (ctrl *UserController) CreateUser(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	var req CreateUserRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	user, err := ctrl.UserService.CreateUser(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// UpdateUser godoc
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        user body UpdateUserRequest true "Fields to change"
// @Success      200  {object} models.User
// @Router       /api/users/{id} [patch]
func (ctrl *UserController) UpdateUser(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := api.ParseBody(c, &req); err != nil {
		return err
	}
	user, err := ctrl.UserService.UpdateUser(c.UserContext(), caller, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  Refused while other users reference the user as dealer or main dealer
// @Tags         users
// @Param        id path string true "User ID"
// @Success      204
// @Failure      409  {object} map[string]string
// @Router       /api/users/{id} [delete]
func (ctrl *UserController) DeleteUser(c *fiber.Ctx) error {
	caller, err := middleware.CallerFromCtx(c)
	if err != nil {
		return err
	}
	if err := ctrl.UserService.DeleteUser(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
