package middleware

import (
	"context"

	common_models "jmkresearch-backend/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

// Authorizer is the authorization gate as seen by the HTTP layer.
type Authorizer interface {
	Require(ctx context.Context, caller *common_models.Caller, capability common_models.Capability) error
}

// RequireCapability rejects the request unless the caller holds capability.
// Must run after AuthMiddleware.
func RequireCapability(authorizer Authorizer, capability common_models.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := CallerFromCtx(c)
		if err != nil {
			return err
		}
		if err := authorizer.Require(c.UserContext(), caller, capability); err != nil {
			return err
		}
		return c.Next()
	}
}
