package authz

import (
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/permission"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SourceKind names how a permission reached a user.
type SourceKind string

const (
	SourceViaRole       SourceKind = "role"
	SourceViaCustomRole SourceKind = "custom_role"
	SourceDirect        SourceKind = "direct"
)

// PermissionSource records one path that granted a permission.
type PermissionSource struct {
	Kind SourceKind         `json:"kind"`
	Ref  primitive.ObjectID `json:"ref,omitempty"` // role or custom role id; zero for direct grants
}

func ViaRole(roleID primitive.ObjectID) PermissionSource {
	return PermissionSource{Kind: SourceViaRole, Ref: roleID}
}

func ViaCustomRole(customRoleID primitive.ObjectID) PermissionSource {
	return PermissionSource{Kind: SourceViaCustomRole, Ref: customRoleID}
}

func Direct() PermissionSource {
	return PermissionSource{Kind: SourceDirect}
}

// Grant is one active permission together with every source that granted it.
type Grant struct {
	Permission permission.View    `json:"permission"`
	Sources    []PermissionSource `json:"sources"`
}

// EffectivePermissionSet is the union of a user's permissions across all sources.
type EffectivePermissionSet struct {
	UserID   primitive.ObjectID `json:"user_id"`
	UserType models.UserType    `json:"user_type"`
	Admin    bool               `json:"admin"`
	Grants   []Grant            `json:"grants"`
	// Capabilities lists every name a grant satisfies, including the
	// user type's default grants.
	Capabilities []string `json:"capabilities"`

	index map[string]bool
}

// Has reports whether the set satisfies capability. Admin sets satisfy
// everything.
func (s *EffectivePermissionSet) Has(capability models.Capability) bool {
	if s == nil {
		return false
	}
	if s.Admin {
		return true
	}
	return s.index[string(capability)]
}

// Decision is the outcome of one authorization check.
type Decision struct {
	Allowed    bool              `json:"allowed"`
	Capability models.Capability `json:"capability"`
	Reason     string            `json:"reason"`
}

const (
	ReasonAdmin       = "admin"
	ReasonTypeGrant   = "user type grant"
	ReasonPermission  = "permission"
	ReasonAdminOnly   = "admin only"
	ReasonNotGranted  = "not granted"
	ReasonUnknownUser = "unknown user"
)
