package user_role

import (
	"time"

	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/features/role"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole assigns a role to a user. (user_id, role_id) is unique.
type UserRole struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	RoleID    primitive.ObjectID `json:"role_id" bson:"role_id"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

type RoleIDsRequest struct {
	RoleIDs []string `json:"role_ids" validate:"required,min=1,dive,objectid"`
}

// ReplaceRolesRequest may carry an empty list, which removes every role.
type ReplaceRolesRequest struct {
	RoleIDs []string `json:"role_ids" validate:"dive,objectid"`
}

// RolesAndPermissions is a user's roles with the union of their permissions.
type RolesAndPermissions struct {
	UserID      primitive.ObjectID `json:"user_id"`
	Roles       []role.Role        `json:"roles"`
	Permissions []permission.View  `json:"permissions"`
}
