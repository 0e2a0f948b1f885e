package middleware

import (
	"strings"

	"jmkresearch-backend/internal/apperrors"
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CallerLocalsKey = "caller"

// devCallerID is the fixed identity injected when auth is skipped.
var devCallerID, _ = primitive.ObjectIDFromHex("000000000000000000000001")

// AuthMiddleware validates JWT tokens and injects the caller into the request.
func AuthMiddleware(skipAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			setCaller(c, &common_models.Caller{ID: devCallerID, UserType: common_models.UserTypeSuperAdmin})
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperrors.Unauthorized("authorization header required")
		}
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || token == "" {
			return apperrors.Unauthorized("invalid authorization header format")
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			return apperrors.Unauthorized("invalid token")
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return apperrors.Unauthorized("invalid token subject")
		}
		userType := common_models.UserType(claims.UserType)
		if !userType.Valid() {
			return apperrors.Unauthorized("invalid token user type")
		}

		setCaller(c, &common_models.Caller{ID: userID, UserType: userType})
		return c.Next()
	}
}

func setCaller(c *fiber.Ctx, caller *common_models.Caller) {
	c.Locals(CallerLocalsKey, caller)
	c.SetUserContext(common_models.WithCaller(c.UserContext(), caller))
}

// CallerFromCtx returns the authenticated caller or an Unauthorized error.
func CallerFromCtx(c *fiber.Ctx) (*common_models.Caller, error) {
	caller, ok := c.Locals(CallerLocalsKey).(*common_models.Caller)
	if !ok || caller == nil {
		return nil, apperrors.Unauthorized("caller identity missing")
	}
	return caller, nil
}
