package permission

import (
	"strings"
	"time"

	"jmkresearch-backend/internal/features/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Permission grants Actions on an Instance of a Domain.
type Permission struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Domain      primitive.ObjectID `json:"domain" bson:"domain"`
	Actions     string             `json:"actions" bson:"actions"` // comma separated
	Instance    string             `json:"instance" bson:"instance"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	IsActive    bool               `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// ActionList splits Actions into trimmed, non-empty action names.
func (p *Permission) ActionList() []string {
	parts := strings.Split(p.Actions, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if a := strings.TrimSpace(part); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// View is a permission with its domain populated.
type View struct {
	ID          primitive.ObjectID `json:"id"`
	Domain      *domain.Summary    `json:"domain"`
	Actions     string             `json:"actions"`
	Instance    string             `json:"instance"`
	Description string             `json:"description,omitempty"`
	IsActive    bool               `json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func NewView(p Permission, d *domain.Summary) View {
	if d == nil {
		d = &domain.Summary{ID: p.Domain}
	}
	return View{
		ID:          p.ID,
		Domain:      d,
		Actions:     p.Actions,
		Instance:    p.Instance,
		Description: p.Description,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type CreatePermissionRequest struct {
	Domain      string `json:"domain" validate:"required,objectid"`
	Actions     string `json:"actions" validate:"required,min=1,max=200"`
	Instance    string `json:"instance" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"is_active"`
}

type UpdatePermissionRequest struct {
	Domain      *string `json:"domain,omitempty" validate:"omitempty,objectid"`
	Actions     *string `json:"actions,omitempty" validate:"omitempty,min=1,max=200"`
	Instance    *string `json:"instance,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type ListFilter struct {
	Domain   *primitive.ObjectID
	IsActive *bool
	Exclude  []primitive.ObjectID
}
