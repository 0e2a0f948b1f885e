package plan

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Plan is a catalog entry. Pricing lives on user plans.
type Plan struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name         string               `json:"name" bson:"name"`
	Code         string               `json:"code" bson:"code"`
	Description  string               `json:"description,omitempty" bson:"description,omitempty"`
	Features     []string             `json:"features" bson:"features"`
	PlanFeatures []primitive.ObjectID `json:"plan_features" bson:"plan_features"`
	IsActive     bool                 `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at" bson:"updated_at"`
}

type Summary struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
	Code string             `json:"code"`
}

func (p *Plan) Summary() *Summary {
	return &Summary{ID: p.ID, Name: p.Name, Code: p.Code}
}

type CreatePlanRequest struct {
	Name         string   `json:"name" validate:"required,min=1,max=150"`
	Code         string   `json:"code" validate:"required,min=1,max=50"`
	Description  string   `json:"description" validate:"max=1000"`
	Features     []string `json:"features" validate:"omitempty,dive,min=1,max=200"`
	PlanFeatures []string `json:"plan_features" validate:"omitempty,dive,objectid"`
	IsActive     *bool    `json:"is_active"`
}

type UpdatePlanRequest struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,min=1,max=150"`
	Code         *string  `json:"code,omitempty" validate:"omitempty,min=1,max=50"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Features     []string `json:"features,omitempty" validate:"omitempty,dive,min=1,max=200"`
	PlanFeatures []string `json:"plan_features,omitempty" validate:"omitempty,dive,objectid"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

type ListFilter struct {
	IsActive *bool
}
