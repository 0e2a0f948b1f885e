package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	CallerKey    ContextKey = "caller"
	RequestIDKey ContextKey = "request_id"
)

type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
	AuditActionAssign AuditAction = "ASSIGN"
	AuditActionRevoke AuditAction = "REVOKE"
	AuditActionSweep  AuditAction = "SWEEP"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`                       // collection the record lives in
	RecordID  string             `bson:"record_id" json:"record_id"`                 // id of the modified record
	ActorID   string             `bson:"actor_id" json:"actor_id"`                   // caller that performed the action
	ActorName string             `bson:"-" json:"actor_name,omitempty"`              // populated on read
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"` // field -> {old, new}
	RequestID string             `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// UserType places a user in the delegation hierarchy.
type UserType string

const (
	UserTypeSuperAdmin UserType = "super_admin"
	UserTypeMainDealer UserType = "main_dealer"
	UserTypeDealer     UserType = "dealer"
	UserTypeUser       UserType = "user"
	UserTypeCustom     UserType = "custom"
)

func (t UserType) Valid() bool {
	switch t {
	case UserTypeSuperAdmin, UserTypeMainDealer, UserTypeDealer, UserTypeUser, UserTypeCustom:
		return true
	}
	return false
}

// Caller is the authenticated identity every core operation receives explicitly.
type Caller struct {
	ID       primitive.ObjectID `json:"id"`
	UserType UserType           `json:"user_type"`
}

func (c *Caller) IsSuperAdmin() bool {
	return c != nil && c.UserType == UserTypeSuperAdmin
}

// IsAdmin reports whether the caller bypasses hierarchy and capability checks.
// Custom callers count only when customIsAdmin is set.
func (c *Caller) IsAdmin(customIsAdmin bool) bool {
	if c == nil {
		return false
	}
	return c.UserType == UserTypeSuperAdmin || (customIsAdmin && c.UserType == UserTypeCustom)
}

// WithCaller stores the caller on ctx so that audit records can attribute changes.
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

func CallerFromContext(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(*Caller)
	return caller, ok && caller != nil
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

type User struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Email         string               `bson:"email" json:"email"`
	Phone         string               `bson:"phone,omitempty" json:"phone,omitempty"`
	UserType      UserType             `bson:"user_type" json:"user_type"`
	MainDealerRef *primitive.ObjectID  `bson:"main_dealer_ref,omitempty" json:"main_dealer_ref,omitempty"`
	DealerRef     *primitive.ObjectID  `bson:"dealer_ref,omitempty" json:"dealer_ref,omitempty"`
	CustomRoleRef *primitive.ObjectID  `bson:"custom_role_ref,omitempty" json:"custom_role_ref,omitempty"`
	Permissions   []primitive.ObjectID `bson:"permissions,omitempty" json:"permissions,omitempty"` // direct grants
	LocationRef   *primitive.ObjectID  `bson:"location_ref,omitempty" json:"location_ref,omitempty"`
	OEMRef        *primitive.ObjectID  `bson:"oem_ref,omitempty" json:"oem_ref,omitempty"`
	IsActive      bool                 `bson:"is_active" json:"is_active"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updated_at"`
}

// UserSummary is the populated form of a user reference.
type UserSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	UserType UserType           `bson:"user_type" json:"user_type"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, UserType: u.UserType}
}

type Log struct {
	Message      string    `bson:"message" json:"message"`
	RequestID    string    `bson:"request_id,omitempty" json:"request_id,omitempty"`
	UserID       string    `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	AppID        string    `bson:"app_id" json:"app_id"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}

// CountResult reports the outcome of bulk mapping operations.
type CountResult struct {
	Added   int64 `json:"added"`
	Skipped int64 `json:"skipped,omitempty"`
	Removed int64 `json:"removed"`
}
