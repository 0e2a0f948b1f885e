package audit

import (
	"context"
	"time"

	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

type UserFinder interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]common_models.User, error)
}

type AuditService interface {
	LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error
	ListLogs(ctx context.Context, filter LogFilter, page, limit int64) (*LogPage, error)
}

type AuditServiceImpl struct {
	Repo     AuditRepository
	UserRepo UserFinder
	Logger   *zap.Logger
}

func NewAuditService(repo AuditRepository, userRepo UserFinder, logger *zap.Logger) AuditService {
	return &AuditServiceImpl{
		Repo:     repo,
		UserRepo: userRepo,
		Logger:   logger,
	}
}

// LogChange records a change attributed to the caller on ctx. Failures are
// logged and returned; callers treat audit as best effort.
func (s *AuditServiceImpl) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	actorID := "system"
	if caller, ok := common_models.CallerFromContext(ctx); ok {
		actorID = caller.ID.Hex()
	}

	log := common_models.AuditLog{
		ID:        primitive.NewObjectID(),
		Action:    action,
		Module:    module,
		RecordID:  recordID,
		ActorID:   actorID,
		Changes:   changes,
		RequestID: common_models.RequestIDFromContext(ctx),
		Timestamp: time.Now(),
	}

	if err := s.Repo.Create(ctx, log); err != nil {
		s.Logger.Warn("Failed to write audit log",
			zap.String("module", module),
			zap.String("record_id", recordID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, filter LogFilter, page, limit int64) (*LogPage, error) {
	if err := validation.Struct(filter); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	logs, total, err := s.Repo.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	actorIDs := make([]primitive.ObjectID, 0)
	seen := make(map[string]bool)
	for _, log := range logs {
		if log.ActorID == "system" || log.ActorID == "" || seen[log.ActorID] {
			continue
		}
		seen[log.ActorID] = true
		if oid, err := primitive.ObjectIDFromHex(log.ActorID); err == nil {
			actorIDs = append(actorIDs, oid)
		}
	}

	names := make(map[string]string)
	if len(actorIDs) > 0 {
		users, err := s.UserRepo.FindByIDs(ctx, actorIDs)
		if err != nil {
			s.Logger.Warn("Failed to resolve audit actors", zap.Int("actors", len(actorIDs)), zap.Error(err))
		}
		for _, user := range users {
			names[user.ID.Hex()] = user.Name
		}
	}

	for i, log := range logs {
		switch {
		case log.ActorID == "system" || log.ActorID == "":
			logs[i].ActorName = "System"
		case names[log.ActorID] != "":
			logs[i].ActorName = names[log.ActorID]
		default:
			logs[i].ActorName = "Unknown User"
		}
	}

	return &LogPage{Logs: logs, Total: total, Page: page, Limit: limit}, nil
}
