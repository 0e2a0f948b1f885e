package user

import (
	common_models "jmkresearch-backend/internal/common/models"
)

type CreateUserRequest struct {
	Name          string                 `json:"name" validate:"required,min=1,max=150"`
	Email         string                 `json:"email" validate:"required,email"`
	Phone         string                 `json:"phone,omitempty" validate:"max=30"`
	UserType      common_models.UserType `json:"user_type" validate:"required,oneof=super_admin main_dealer dealer user custom"`
	MainDealerRef string                 `json:"main_dealer_ref,omitempty" validate:"omitempty,objectid"`
	DealerRef     string                 `json:"dealer_ref,omitempty" validate:"omitempty,objectid"`
	CustomRoleRef string                 `json:"custom_role_ref,omitempty" validate:"omitempty,objectid"`
	Permissions   []string               `json:"permissions,omitempty" validate:"omitempty,dive,objectid"`
	LocationRef   string                 `json:"location_ref,omitempty" validate:"omitempty,objectid"`
	OEMRef        string                 `json:"oem_ref,omitempty" validate:"omitempty,objectid"`
	IsActive      *bool                  `json:"is_active,omitempty"`
}

// UpdateUserRequest is a partial update. An empty string clears a reference.
type UpdateUserRequest struct {
	Name          *string                 `json:"name,omitempty" validate:"omitempty,min=1,max=150"`
	Email         *string                 `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string                 `json:"phone,omitempty" validate:"omitempty,max=30"`
	UserType      *common_models.UserType `json:"user_type,omitempty" validate:"omitempty,oneof=super_admin main_dealer dealer user custom"`
	MainDealerRef *string                 `json:"main_dealer_ref,omitempty" validate:"omitempty,objectid|len=0"`
	DealerRef     *string                 `json:"dealer_ref,omitempty" validate:"omitempty,objectid|len=0"`
	CustomRoleRef *string                 `json:"custom_role_ref,omitempty" validate:"omitempty,objectid|len=0"`
	Permissions   []string                `json:"permissions,omitempty" validate:"omitempty,dive,objectid"`
	LocationRef   *string                 `json:"location_ref,omitempty" validate:"omitempty,objectid|len=0"`
	OEMRef        *string                 `json:"oem_ref,omitempty" validate:"omitempty,objectid|len=0"`
	IsActive      *bool                   `json:"is_active,omitempty"`
}

// touchesPlacement reports whether the update changes anything only
// administrators may change.
func (r UpdateUserRequest) touchesPlacement() bool {
	return r.UserType != nil || r.MainDealerRef != nil || r.DealerRef != nil ||
		r.CustomRoleRef != nil || r.Permissions != nil
}

type ListUsersResult struct {
	Users []common_models.User `json:"users"`
	Total int64                `json:"total"`
	Page  int64                `json:"page"`
	Limit int64                `json:"limit"`
}
