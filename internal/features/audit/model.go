package audit

import (
	"time"

	common_models "jmkresearch-backend/internal/common/models"
)

// LogFilter narrows an audit log listing. Empty fields match everything.
type LogFilter struct {
	Module   string `validate:"omitempty,max=64"`
	RecordID string `validate:"omitempty,objectid"`
	ActorID  string `validate:"omitempty,objectid|eq=system"`
	Action   string `validate:"omitempty,oneof=CREATE UPDATE DELETE ASSIGN REVOKE SWEEP"`
	Since    *time.Time
}

type LogPage struct {
	Logs  []common_models.AuditLog `json:"logs"`
	Total int64                    `json:"total"`
	Page  int64                    `json:"page"`
	Limit int64                    `json:"limit"`
}
