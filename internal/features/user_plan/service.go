package user_plan

import (
	"context"
	"time"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/database"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/features/plan"
	"jmkresearch-backend/internal/metrics"
	"jmkresearch-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

type PlanFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*plan.Plan, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]plan.Plan, error)
}

type UserPlanService interface {
	Assign(ctx context.Context, caller *models.Caller, req AssignPlanRequest) (*UserPlan, error)
	AssignPlan(ctx context.Context, caller *models.Caller, req AssignPlanRequest) (*UserPlan, error)
	AssignPlanToUserByMainDealer(ctx context.Context, mainDealerID primitive.ObjectID, req AssignPlanRequest) (*UserPlan, error)
	GetUserPlan(ctx context.Context, caller *models.Caller, id string) (*View, error)
	ListUserPlans(ctx context.Context, caller *models.Caller, filter ListFilter) ([]View, error)
	UpdateUserPlanByID(ctx context.Context, caller *models.Caller, id string, req UpdateUserPlanRequest) (*UserPlan, error)
	UpdateUserPlanStatus(ctx context.Context, caller *models.Caller, id string, req UpdateStatusRequest) (*UserPlan, error)
	DeleteUserPlan(ctx context.Context, caller *models.Caller, id string) error
}

type UserPlanServiceImpl struct {
	Repo          UserPlanRepository
	Users         UserFinder
	Plans         PlanFinder
	Tx            database.TxManager
	Metrics       *metrics.Metrics
	AuditService  audit.AuditService
	Logger        *zap.Logger
	CustomIsAdmin bool
}

func NewUserPlanService(
	repo UserPlanRepository,
	users UserFinder,
	plans PlanFinder,
	tx database.TxManager,
	m *metrics.Metrics,
	auditService audit.AuditService,
	logger *zap.Logger,
	cfg *config.Config,
) UserPlanService {
	return &UserPlanServiceImpl{
		Repo:          repo,
		Users:         users,
		Plans:         plans,
		Tx:            tx,
		Metrics:       m,
		AuditService:  auditService,
		Logger:        logger,
		CustomIsAdmin: cfg.CustomIsAdmin,
	}
}

// Assign routes administrators to the direct assignment and everyone else
// through the main dealer checks.
func (s *UserPlanServiceImpl) Assign(ctx context.Context, caller *models.Caller, req AssignPlanRequest) (*UserPlan, error) {
	if caller.IsAdmin(s.CustomIsAdmin) {
		return s.AssignPlan(ctx, caller, req)
	}
	return s.AssignPlanToUserByMainDealer(ctx, caller.ID, req)
}

// AssignPlan is the direct administrative assignment.
func (s *UserPlanServiceImpl) AssignPlan(ctx context.Context, caller *models.Caller, req AssignPlanRequest) (*UserPlan, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !caller.IsAdmin(s.CustomIsAdmin) {
		return nil, apperrors.Forbidden("only administrators may assign plans directly")
	}
	userID, planID, err := parseRefs(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.Users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.Plans.FindByID(ctx, planID); err != nil {
		return nil, err
	}

	userPlan := newUserPlan(req, userID, planID, caller.ID)
	if req.IsActive != nil {
		userPlan.IsActive = *req.IsActive
	}
	return s.create(ctx, userPlan)
}

// AssignPlanToUserByMainDealer lets a main dealer sub-assign a plan it holds
// to a user placed under it.
func (s *UserPlanServiceImpl) AssignPlanToUserByMainDealer(ctx context.Context, mainDealerID primitive.ObjectID, req AssignPlanRequest) (*UserPlan, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	userID, planID, err := parseRefs(req)
	if err != nil {
		return nil, err
	}

	mainDealer, err := s.Users.FindByID(ctx, mainDealerID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Forbidden("caller is not a main dealer")
		}
		return nil, err
	}
	if mainDealer.UserType != models.UserTypeMainDealer {
		return nil, apperrors.Forbidden("caller is not a main dealer")
	}

	target, err := s.Users.FindByID(ctx, userID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if target == nil || target.MainDealerRef == nil || *target.MainDealerRef != mainDealerID {
		return nil, apperrors.Forbidden("user %s does not belong to this main dealer", userID.Hex())
	}

	held, err := s.Repo.FindActiveByUserAndPlan(ctx, mainDealerID, planID)
	if err != nil {
		return nil, err
	}
	if held == nil {
		return nil, apperrors.Forbidden("main dealer holds no active assignment of plan %s", planID.Hex())
	}

	return s.create(ctx, newUserPlan(req, userID, planID, mainDealerID))
}

func (s *UserPlanServiceImpl) GetUserPlan(ctx context.Context, caller *models.Caller, id string) (*View, error) {
	oid, err := validation.ObjectID("user plan id", id)
	if err != nil {
		return nil, err
	}
	userPlan, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin(s.CustomIsAdmin) && userPlan.UserRef != caller.ID && userPlan.AssignedBy != caller.ID {
		return nil, apperrors.Forbidden("user plan %s is not visible to you", id)
	}
	views, err := s.populate(ctx, []UserPlan{*userPlan})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListUserPlans returns every record to administrators; everyone else sees
// the records they hold or assigned.
func (s *UserPlanServiceImpl) ListUserPlans(ctx context.Context, caller *models.Caller, filter ListFilter) ([]View, error) {
	query := bson.M{}
	if filter.UserRef != nil {
		query["user_ref"] = *filter.UserRef
	}
	if filter.PlanRef != nil {
		query["plan_ref"] = *filter.PlanRef
	}
	if filter.AssignedBy != nil {
		query["assigned_by"] = *filter.AssignedBy
	}
	if filter.IsActive != nil {
		query["is_active"] = *filter.IsActive
	}

	if !caller.IsAdmin(s.CustomIsAdmin) {
		scope := bson.M{"$or": bson.A{
			bson.M{"user_ref": caller.ID},
			bson.M{"assigned_by": caller.ID},
		}}
		if len(query) == 0 {
			query = scope
		} else {
			query = bson.M{"$and": bson.A{query, scope}}
		}
	}

	userPlans, err := s.Repo.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, userPlans)
}

// UpdateUserPlanByID applies the patch. When mrp, dlp or is_active change,
// the same values are written to every assignment of the same plan made by
// this record's holder. The cascade goes one level down only.
func (s *UserPlanServiceImpl) UpdateUserPlanByID(ctx context.Context, caller *models.Caller, id string, req UpdateUserPlanRequest) (*UserPlan, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	oid, err := validation.ObjectID("user plan id", id)
	if err != nil {
		return nil, err
	}
	target, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin(s.CustomIsAdmin) && target.AssignedBy != caller.ID {
		return nil, apperrors.Forbidden("only the assigner may edit user plan %s", id)
	}

	now := time.Now()
	set := bson.M{"updated_at": now}
	cascade := bson.M{}
	changes := make(map[string]models.Change)
	if req.MRP != nil {
		set["mrp"], cascade["mrp"] = *req.MRP, *req.MRP
		changes["mrp"] = models.Change{Old: target.MRP, New: *req.MRP}
		target.MRP = *req.MRP
	}
	if req.DLP != nil {
		set["dlp"], cascade["dlp"] = *req.DLP, *req.DLP
		changes["dlp"] = models.Change{Old: target.DLP, New: *req.DLP}
		target.DLP = *req.DLP
	}
	if req.IsActive != nil {
		set["is_active"], cascade["is_active"] = *req.IsActive, *req.IsActive
		changes["is_active"] = models.Change{Old: target.IsActive, New: *req.IsActive}
		target.IsActive = *req.IsActive
	}
	if req.CanEditMRP != nil {
		set["can_edit_mrp"] = *req.CanEditMRP
		changes["can_edit_mrp"] = models.Change{Old: target.CanEditMRP, New: *req.CanEditMRP}
		target.CanEditMRP = *req.CanEditMRP
	}
	if len(changes) == 0 {
		return target, nil
	}
	target.UpdatedAt = now

	var cascaded int64
	err = s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.Repo.Update(txCtx, target.ID, set); err != nil {
			return err
		}
		if len(cascade) == 0 {
			return nil
		}
		cascade["updated_at"] = now
		var err error
		cascaded, err = s.Repo.UpdateAssignedBy(txCtx, target.UserRef, target.PlanRef, target.ID, cascade)
		return err
	})
	if err != nil {
		return nil, err
	}

	if cascaded > 0 {
		s.Metrics.UserPlanCascadeUpdates.Add(float64(cascaded))
		s.Logger.Info("User plan change cascaded",
			zap.String("user_plan_id", id),
			zap.String("holder", target.UserRef.Hex()),
			zap.String("plan_id", target.PlanRef.Hex()),
			zap.Int64("downstream_updated", cascaded),
		)
		changes["cascaded"] = models.Change{New: cascaded}
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "user_plan", id, changes)
	return target, nil
}

// UpdateUserPlanStatus flips is_active on a single record and never
// cascades. Administrators may flip any record, main dealers only records
// held by users under them.
func (s *UserPlanServiceImpl) UpdateUserPlanStatus(ctx context.Context, caller *models.Caller, id string, req UpdateStatusRequest) (*UserPlan, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	admin := caller.IsAdmin(s.CustomIsAdmin)
	if !admin && caller.UserType != models.UserTypeMainDealer {
		return nil, apperrors.Forbidden("%s users may not change plan status", caller.UserType)
	}
	oid, err := validation.ObjectID("user plan id", id)
	if err != nil {
		return nil, err
	}
	target, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	if !admin {
		holder, err := s.Users.FindByID(ctx, target.UserRef)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		if holder == nil || holder.MainDealerRef == nil || *holder.MainDealerRef != caller.ID {
			return nil, apperrors.Forbidden("user plan %s is not held by a user under you", id)
		}
	}

	old := target.IsActive
	target.IsActive = *req.IsActive
	target.UpdatedAt = time.Now()
	if err := s.Repo.Update(ctx, target.ID, bson.M{"is_active": target.IsActive, "updated_at": target.UpdatedAt}); err != nil {
		return nil, err
	}

	if old != target.IsActive {
		_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "user_plan", id, map[string]models.Change{
			"is_active": {Old: old, New: target.IsActive},
		})
	}
	return target, nil
}

// DeleteUserPlan hard deletes one record; downstream assignments stay.
func (s *UserPlanServiceImpl) DeleteUserPlan(ctx context.Context, caller *models.Caller, id string) error {
	oid, err := validation.ObjectID("user plan id", id)
	if err != nil {
		return err
	}
	target, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	if !caller.IsAdmin(s.CustomIsAdmin) && target.AssignedBy != caller.ID {
		return apperrors.Forbidden("only the assigner may delete user plan %s", id)
	}

	if err := s.Repo.Delete(ctx, oid); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionDelete, "user_plan", id, map[string]models.Change{
		"user_ref": {Old: target.UserRef.Hex()},
		"plan_ref": {Old: target.PlanRef.Hex()},
	})
	return nil
}

func (s *UserPlanServiceImpl) create(ctx context.Context, userPlan *UserPlan) (*UserPlan, error) {
	if err := s.Repo.Create(ctx, userPlan); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, models.AuditActionAssign, "user_plan", userPlan.ID.Hex(), map[string]models.Change{
		"user_ref":    {New: userPlan.UserRef.Hex()},
		"plan_ref":    {New: userPlan.PlanRef.Hex()},
		"assigned_by": {New: userPlan.AssignedBy.Hex()},
	})
	return userPlan, nil
}

func (s *UserPlanServiceImpl) populate(ctx context.Context, userPlans []UserPlan) ([]View, error) {
	planIDs := make([]primitive.ObjectID, 0, len(userPlans))
	userIDs := make([]primitive.ObjectID, 0, 2*len(userPlans))
	for _, up := range userPlans {
		planIDs = append(planIDs, up.PlanRef)
		userIDs = append(userIDs, up.UserRef, up.AssignedBy)
	}

	plans, err := s.Plans.FindByIDs(ctx, planIDs)
	if err != nil {
		return nil, err
	}
	users, err := s.Users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	planByID := make(map[primitive.ObjectID]*plan.Summary, len(plans))
	for i := range plans {
		planByID[plans[i].ID] = plans[i].Summary()
	}
	userByID := make(map[primitive.ObjectID]*models.UserSummary, len(users))
	for i := range users {
		userByID[users[i].ID] = users[i].Summary()
	}

	views := make([]View, 0, len(userPlans))
	for _, up := range userPlans {
		views = append(views, View{
			UserPlan:     up,
			Plan:         planByID[up.PlanRef],
			User:         userByID[up.UserRef],
			AssignedUser: userByID[up.AssignedBy],
		})
	}
	return views, nil
}

func parseRefs(req AssignPlanRequest) (userID, planID primitive.ObjectID, err error) {
	if userID, err = validation.ObjectID("user_ref", req.UserRef); err != nil {
		return
	}
	planID, err = validation.ObjectID("plan_ref", req.PlanRef)
	return
}

func newUserPlan(req AssignPlanRequest, userID, planID, assignedBy primitive.ObjectID) *UserPlan {
	now := time.Now()
	return &UserPlan{
		ID:         primitive.NewObjectID(),
		PlanRef:    planID,
		UserRef:    userID,
		AssignedBy: assignedBy,
		MRP:        req.MRP,
		DLP:        req.DLP,
		CanEditMRP: req.CanEditMRP,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
