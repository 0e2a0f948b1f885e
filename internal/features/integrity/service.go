package integrity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type RoleIDLister interface {
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type PermissionIDLister interface {
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type UserLister interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

type RolePermissionPruner interface {
	DeleteOrphans(ctx context.Context, roleIDs, permissionIDs []primitive.ObjectID, createdBefore time.Time) (int64, error)
}

type UserRolePruner interface {
	DeleteOrphans(ctx context.Context, userIDs, roleIDs []primitive.ObjectID, createdBefore time.Time) (int64, error)
}

// orphanGrace keeps mappings written shortly before a sweep starts out of the
// prune; it absorbs clock skew between instances.
const orphanGrace = time.Minute

type PlacementValidator interface {
	Validate(ctx context.Context, u *models.User) error
}

type CachePurger interface {
	Purge()
}

type IntegrityService interface {
	Sweep(ctx context.Context, trigger string) (*Report, error)
	ListReports(ctx context.Context, limit int64) ([]Report, error)
	InitializeScheduler() error
	StopScheduler()
}

type IntegrityServiceImpl struct {
	Repo            ReportRepository
	Roles           RoleIDLister
	Permissions     PermissionIDLister
	Users           UserLister
	RolePermissions RolePermissionPruner
	UserRoles       UserRolePruner
	Placement       PlacementValidator
	Cache           CachePurger
	AuditService    audit.AuditService
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
	Schedule        string

	scheduler *cron.Cron
	// running serializes sweeps so a manual run never overlaps a scheduled one.
	running sync.Mutex
}

func NewIntegrityService(
	repo ReportRepository,
	roles RoleIDLister,
	permissions PermissionIDLister,
	users UserLister,
	rolePermissions RolePermissionPruner,
	userRoles UserRolePruner,
	placement PlacementValidator,
	cache CachePurger,
	auditService audit.AuditService,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg *config.Config,
) IntegrityService {
	return &IntegrityServiceImpl{
		Repo:            repo,
		Roles:           roles,
		Permissions:     permissions,
		Users:           users,
		RolePermissions: rolePermissions,
		UserRoles:       userRoles,
		Placement:       placement,
		Cache:           cache,
		AuditService:    auditService,
		Metrics:         m,
		Logger:          logger,
		Schedule:        cfg.IntegritySchedule,
	}
}

// Sweep removes mapping rows that point at deleted roles, permissions or
// users, and reports users whose placement violates the hierarchy rules.
// Violations are reported only; fixing them needs a human decision.
func (s *IntegrityServiceImpl) Sweep(ctx context.Context, trigger string) (*Report, error) {
	s.running.Lock()
	defer s.running.Unlock()

	report := &Report{
		Trigger:    trigger,
		Status:     StatusRunning,
		StartTime:  time.Now(),
		Violations: []Violation{},
	}
	if err := s.Repo.Create(ctx, report); err != nil {
		s.Logger.Warn("Failed to persist integrity report", zap.Error(err))
	}

	sweepErr := s.sweep(ctx, report)

	end := time.Now()
	report.EndTime = &end
	report.Status = StatusSuccess
	if sweepErr != nil {
		report.Status = StatusFailed
		report.Error = sweepErr.Error()
	}
	if err := s.Repo.Update(ctx, report); err != nil {
		s.Logger.Warn("Failed to update integrity report", zap.String("report_id", report.ID.Hex()), zap.Error(err))
	}

	s.Logger.Info("Integrity sweep finished",
		zap.String("trigger", trigger),
		zap.String("status", report.Status),
		zap.Int64("role_permissions_removed", report.RolePermissionsRemoved),
		zap.Int64("user_roles_removed", report.UserRolesRemoved),
		zap.Int("violations", len(report.Violations)),
		zap.Duration("took", end.Sub(report.StartTime)),
	)
	if sweepErr != nil {
		return report, sweepErr
	}

	if report.RolePermissionsRemoved+report.UserRolesRemoved > 0 {
		s.Cache.Purge()
		_ = s.AuditService.LogChange(ctx, models.AuditActionSweep, "integrity", report.ID.Hex(), map[string]models.Change{
			"role_permissions_removed": {New: report.RolePermissionsRemoved},
			"user_roles_removed":       {New: report.UserRolesRemoved},
		})
	}
	return report, nil
}

func (s *IntegrityServiceImpl) sweep(ctx context.Context, report *Report) error {
	// Only rows older than the id snapshot are judged against it; a mapping
	// written after the snapshot may point at a role or user it lacks.
	cutoff := report.StartTime.Add(-orphanGrace)

	roleIDs, err := s.Roles.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	permissionIDs, err := s.Permissions.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list permissions: %w", err)
	}
	users, err := s.Users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	userIDs := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	if report.RolePermissionsRemoved, err = s.RolePermissions.DeleteOrphans(ctx, roleIDs, permissionIDs, cutoff); err != nil {
		return fmt.Errorf("prune role permissions: %w", err)
	}
	s.Metrics.IntegrityOrphansRemoved.WithLabelValues("role_permissions").Add(float64(report.RolePermissionsRemoved))

	if report.UserRolesRemoved, err = s.UserRoles.DeleteOrphans(ctx, userIDs, roleIDs, cutoff); err != nil {
		return fmt.Errorf("prune user roles: %w", err)
	}
	s.Metrics.IntegrityOrphansRemoved.WithLabelValues("user_roles").Add(float64(report.UserRolesRemoved))

	for i := range users {
		if v, ok := s.check(ctx, users[i]); ok {
			report.Violations = append(report.Violations, v)
		}
	}
	report.UsersChecked = len(users)
	s.Metrics.IntegrityViolations.Set(float64(len(report.Violations)))
	return nil
}

// check validates a copy of u; Validate fills in an inherited main dealer,
// which counts as a violation when the stored record lacks it.
func (s *IntegrityServiceImpl) check(ctx context.Context, u models.User) (Violation, bool) {
	stored := u.MainDealerRef
	candidate := u
	err := s.Placement.Validate(ctx, &candidate)
	v := Violation{UserID: u.ID, UserType: string(u.UserType)}
	switch {
	case err != nil:
		v.Reason = err.Error()
	case stored == nil && candidate.MainDealerRef != nil:
		v.Reason = "main_dealer_ref missing; dealer belongs to " + candidate.MainDealerRef.Hex()
	default:
		return Violation{}, false
	}
	s.Logger.Warn("Hierarchy violation", zap.String("user_id", u.ID.Hex()), zap.String("reason", v.Reason))
	return v, true
}

func (s *IntegrityServiceImpl) ListReports(ctx context.Context, limit int64) ([]Report, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.Repo.List(ctx, limit)
}

// InitializeScheduler registers the sweep on the configured schedule. An
// empty schedule disables it.
func (s *IntegrityServiceImpl) InitializeScheduler() error {
	if s.Schedule == "" {
		s.Logger.Info("Integrity sweep schedule disabled")
		return nil
	}
	s.scheduler = cron.New()
	_, err := s.scheduler.AddFunc(s.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx, TriggerSchedule); err != nil {
			s.Logger.Error("Scheduled integrity sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return errors.Join(fmt.Errorf("invalid integrity schedule %q", s.Schedule), err)
	}
	s.scheduler.Start()
	s.Logger.Info("Integrity sweep scheduled", zap.String("schedule", s.Schedule))
	return nil
}

func (s *IntegrityServiceImpl) StopScheduler() {
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}
}
