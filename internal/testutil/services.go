package testutil

import (
	"context"
	"sync"

	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditRecorder is an audit.AuditService that keeps entries in memory.
type AuditRecorder struct {
	mu      sync.Mutex
	Entries []models.AuditLog
}

func (a *AuditRecorder) LogChange(ctx context.Context, action models.AuditAction, module string, recordID string, changes map[string]models.Change) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, models.AuditLog{Action: action, Module: module, RecordID: recordID, Changes: changes})
	return nil
}

func (a *AuditRecorder) ListLogs(ctx context.Context, filter audit.LogFilter, page, limit int64) (*audit.LogPage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	logs := []models.AuditLog{}
	for _, e := range a.Entries {
		if filter.Module != "" && e.Module != filter.Module {
			continue
		}
		if filter.Action != "" && string(e.Action) != filter.Action {
			continue
		}
		logs = append(logs, e)
	}
	return &audit.LogPage{Logs: logs, Total: int64(len(logs)), Page: page, Limit: limit}, nil
}

var _ audit.AuditService = (*AuditRecorder)(nil)

// CacheSpy records cache invalidations.
type CacheSpy struct {
	mu          sync.Mutex
	Purges      int
	Invalidated []primitive.ObjectID
}

func (c *CacheSpy) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Purges++
}

func (c *CacheSpy) Invalidate(userID primitive.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidated = append(c.Invalidated, userID)
}
