package plan

import (
	"context"
	"strings"
	"time"

	"jmkresearch-backend/internal/apperrors"
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserPlanCounter reports how many user plans reference a plan.
type UserPlanCounter interface {
	CountByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error)
}

type PlanService interface {
	CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
	ListPlans(ctx context.Context, filter ListFilter) ([]Plan, error)
	UpdatePlan(ctx context.Context, id string, req UpdatePlanRequest) (*Plan, error)
	DeletePlan(ctx context.Context, id string) error
}

type PlanServiceImpl struct {
	PlanRepo     PlanRepository
	UserPlans    UserPlanCounter
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewPlanService(planRepo PlanRepository, userPlans UserPlanCounter, auditService audit.AuditService, logger *zap.Logger) PlanService {
	return &PlanServiceImpl{
		PlanRepo:     planRepo,
		UserPlans:    userPlans,
		AuditService: auditService,
		Logger:       logger,
	}
}

func (s *PlanServiceImpl) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(req.Code)
	if err := s.ensureCodeFree(ctx, code, primitive.NilObjectID); err != nil {
		return nil, err
	}
	planFeatures, err := validation.ObjectIDs("plan_features", req.PlanFeatures)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	plan := &Plan{
		ID:           primitive.NewObjectID(),
		Name:         strings.TrimSpace(req.Name),
		Code:         code,
		Description:  req.Description,
		Features:     nonNilStrings(req.Features),
		PlanFeatures: planFeatures,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := s.PlanRepo.Create(ctx, plan); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "plan", plan.ID.Hex(), map[string]common_models.Change{
		"code": {New: plan.Code},
	})
	return plan, nil
}

func (s *PlanServiceImpl) GetPlan(ctx context.Context, id string) (*Plan, error) {
	oid, err := validation.ObjectID("plan id", id)
	if err != nil {
		return nil, err
	}
	return s.PlanRepo.FindByID(ctx, oid)
}

func (s *PlanServiceImpl) ListPlans(ctx context.Context, filter ListFilter) ([]Plan, error) {
	return s.PlanRepo.List(ctx, filter)
}

func (s *PlanServiceImpl) UpdatePlan(ctx context.Context, id string, req UpdatePlanRequest) (*Plan, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	oid, err := validation.ObjectID("plan id", id)
	if err != nil {
		return nil, err
	}
	plan, err := s.PlanRepo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]common_models.Change)
	if req.Code != nil {
		code := strings.TrimSpace(*req.Code)
		if code != plan.Code {
			if err := s.ensureCodeFree(ctx, code, plan.ID); err != nil {
				return nil, err
			}
			changes["code"] = common_models.Change{Old: plan.Code, New: code}
			plan.Code = code
		}
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != plan.Name {
		name := strings.TrimSpace(*req.Name)
		changes["name"] = common_models.Change{Old: plan.Name, New: name}
		plan.Name = name
	}
	if req.Description != nil && *req.Description != plan.Description {
		changes["description"] = common_models.Change{Old: plan.Description, New: *req.Description}
		plan.Description = *req.Description
	}
	if req.Features != nil {
		changes["features"] = common_models.Change{Old: plan.Features, New: req.Features}
		plan.Features = req.Features
	}
	if req.PlanFeatures != nil {
		if plan.PlanFeatures, err = validation.ObjectIDs("plan_features", req.PlanFeatures); err != nil {
			return nil, err
		}
		changes["plan_features"] = common_models.Change{New: len(plan.PlanFeatures)}
	}
	if req.IsActive != nil && *req.IsActive != plan.IsActive {
		changes["is_active"] = common_models.Change{Old: plan.IsActive, New: *req.IsActive}
		plan.IsActive = *req.IsActive
	}
	plan.UpdatedAt = time.Now()

	if err := s.PlanRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "plan", plan.ID.Hex(), changes)
	}
	return plan, nil
}

// DeletePlan refuses while user plans still reference the plan.
func (s *PlanServiceImpl) DeletePlan(ctx context.Context, id string) error {
	oid, err := validation.ObjectID("plan id", id)
	if err != nil {
		return err
	}
	plan, err := s.PlanRepo.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	refs, err := s.UserPlans.CountByPlan(ctx, oid)
	if err != nil {
		return err
	}
	if refs > 0 {
		return apperrors.Conflict("plan %q is assigned in %d user plan(s)", plan.Code, refs)
	}

	if err := s.PlanRepo.Delete(ctx, oid); err != nil {
		return err
	}

	s.Logger.Info("Plan deleted", zap.String("plan_id", id), zap.String("code", plan.Code))
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, "plan", id, map[string]common_models.Change{
		"code": {Old: plan.Code},
	})
	return nil
}

func (s *PlanServiceImpl) ensureCodeFree(ctx context.Context, code string, self primitive.ObjectID) error {
	existing, err := s.PlanRepo.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return apperrors.Conflict("plan with code %q already exists", code)
	}
	return nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
