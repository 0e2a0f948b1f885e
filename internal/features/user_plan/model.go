package user_plan

import (
	"time"

	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/plan"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserPlan is a priced assignment of a catalog plan to a user.
// (plan_ref, user_ref) is unique.
type UserPlan struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PlanRef    primitive.ObjectID `json:"plan_ref" bson:"plan_ref"`
	UserRef    primitive.ObjectID `json:"user_ref" bson:"user_ref"`
	AssignedBy primitive.ObjectID `json:"assigned_by" bson:"assigned_by"`
	MRP        float64            `json:"mrp" bson:"mrp"`
	DLP        float64            `json:"dlp" bson:"dlp"`
	CanEditMRP bool               `json:"can_edit_mrp" bson:"can_edit_mrp"`
	IsActive   bool               `json:"is_active" bson:"is_active"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
}

// View is a user plan with plan and user references populated.
type View struct {
	UserPlan
	Plan         *plan.Summary       `json:"plan,omitempty"`
	User         *models.UserSummary `json:"user,omitempty"`
	AssignedUser *models.UserSummary `json:"assigned_by_user,omitempty"`
}

type AssignPlanRequest struct {
	UserRef    string  `json:"user_ref" validate:"required,objectid"`
	PlanRef    string  `json:"plan_ref" validate:"required,objectid"`
	MRP        float64 `json:"mrp" validate:"required,gt=0"`
	DLP        float64 `json:"dlp" validate:"required,gt=0"`
	CanEditMRP bool    `json:"can_edit_mrp"`
	IsActive   *bool   `json:"is_active"`
}

type UpdateUserPlanRequest struct {
	MRP        *float64 `json:"mrp,omitempty" validate:"omitempty,gt=0"`
	DLP        *float64 `json:"dlp,omitempty" validate:"omitempty,gt=0"`
	CanEditMRP *bool    `json:"can_edit_mrp,omitempty"`
	IsActive   *bool    `json:"is_active,omitempty"`
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type ListFilter struct {
	UserRef    *primitive.ObjectID
	PlanRef    *primitive.ObjectID
	AssignedBy *primitive.ObjectID
	IsActive   *bool
}
