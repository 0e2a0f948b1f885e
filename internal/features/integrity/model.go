package integrity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"

	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Violation is a user whose stored placement breaks the hierarchy rules.
type Violation struct {
	UserID   primitive.ObjectID `json:"user_id" bson:"user_id"`
	UserType string             `json:"user_type" bson:"user_type"`
	Reason   string             `json:"reason" bson:"reason"`
}

// Report is one execution of the sweep. Reports are persisted so the last
// runs can be inspected.
type Report struct {
	ID                     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Trigger                string             `json:"trigger" bson:"trigger"`
	Status                 string             `json:"status" bson:"status"`
	StartTime              time.Time          `json:"start_time" bson:"start_time"`
	EndTime                *time.Time         `json:"end_time,omitempty" bson:"end_time,omitempty"`
	RolePermissionsRemoved int64              `json:"role_permissions_removed" bson:"role_permissions_removed"`
	UserRolesRemoved       int64              `json:"user_roles_removed" bson:"user_roles_removed"`
	UsersChecked           int                `json:"users_checked" bson:"users_checked"`
	Violations             []Violation        `json:"violations" bson:"violations"`
	Error                  string             `json:"error,omitempty" bson:"error,omitempty"`
}
