package custom_role

import (
	"time"

	"jmkresearch-backend/internal/features/permission"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomRole embeds its permission list instead of using role mappings.
// Users of type "custom" link to one through customRoleRef.
type CustomRole struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name        string               `json:"name" bson:"name"`
	Description string               `json:"description,omitempty" bson:"description,omitempty"`
	Permissions []primitive.ObjectID `json:"permissions" bson:"permissions"`
	CreatedBy   primitive.ObjectID   `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at" bson:"updated_at"`
}

// View is a custom role with permissions populated down to their domain.
type View struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Permissions []permission.View  `json:"permissions"`
	CreatedBy   primitive.ObjectID `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type CreateCustomRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"required,min=1,dive,objectid"`
}

type UpdateCustomRoleRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	Permissions []string `json:"permissions,omitempty" validate:"omitempty,min=1,dive,objectid"`
}
