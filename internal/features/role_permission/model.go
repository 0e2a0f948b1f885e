package role_permission

import (
	"time"

	"jmkresearch-backend/internal/features/permission"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RolePermission grants a permission to a role. (role_id, permission_id) is unique.
type RolePermission struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RoleID       primitive.ObjectID `json:"role_id" bson:"role_id"`
	PermissionID primitive.ObjectID `json:"permission_id" bson:"permission_id"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

// View is a mapping with its permission populated down to the domain.
type View struct {
	ID         primitive.ObjectID `json:"id"`
	RoleID     primitive.ObjectID `json:"role_id"`
	Permission permission.View    `json:"permission"`
}

type PermissionIDsRequest struct {
	PermissionIDs []string `json:"permission_ids" validate:"required,min=1,dive,objectid"`
}
