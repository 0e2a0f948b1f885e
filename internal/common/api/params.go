package api

import (
	"strconv"

	"jmkresearch-backend/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// ParseBody decodes the JSON body into v.
func ParseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperrors.Validation("invalid request body")
	}
	return nil
}

// QueryBool returns nil when the query parameter is absent or unparsable.
func QueryBool(c *fiber.Ctx, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}
