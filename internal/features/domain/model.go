package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Domain is a resource area permissions are scoped to, e.g. "Tender".
type Domain struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Key         string             `json:"key" bson:"key"` // slug of Title, used in capability names
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Status      bool               `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// Summary is the populated form embedded in permissions.
type Summary struct {
	ID          primitive.ObjectID `json:"id"`
	Title       string             `json:"title"`
	Key         string             `json:"key"`
	Description string             `json:"description,omitempty"`
}

func (d *Domain) Summary() *Summary {
	return &Summary{ID: d.ID, Title: d.Title, Key: d.Key, Description: d.Description}
}

type CreateDomainRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	Status      *bool  `json:"status"`
}

type UpdateDomainRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Status      *bool   `json:"status,omitempty"`
}

type ListFilter struct {
	Status *bool
}
