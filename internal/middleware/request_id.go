package middleware

import (
	"context"

	common_models "jmkresearch-backend/internal/common/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

// RequestID propagates an inbound X-Request-ID or mints one.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Locals(string(common_models.RequestIDKey), id)
		c.SetUserContext(context.WithValue(c.UserContext(), common_models.RequestIDKey, id))
		return c.Next()
	}
}
