package user

import (
	"context"
	"strings"
	"time"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/database"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/features/custom_role"
	"jmkresearch-backend/internal/features/hierarchy"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type FilterNarrower interface {
	NarrowFilter(ctx context.Context, caller *models.Caller, query hierarchy.Query) (bson.M, error)
}

type PlacementValidator interface {
	Validate(ctx context.Context, u *models.User) error
}

type CustomRoleFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*custom_role.CustomRole, error)
}

type PermissionFinder interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]permission.Permission, error)
}

// UserRoleCleaner drops the role assignments of a deleted user.
type UserRoleCleaner interface {
	DeleteByUserID(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type CacheInvalidator interface {
	Invalidate(userID primitive.ObjectID)
}

type UserService interface {
	ListUsers(ctx context.Context, caller *models.Caller, query hierarchy.Query, page, limit int64) (*ListUsersResult, error)
	GetUser(ctx context.Context, caller *models.Caller, id string) (*models.User, error)
	CreateUser(ctx context.Context, caller *models.Caller, req CreateUserRequest) (*models.User, error)
	UpdateUser(ctx context.Context, caller *models.Caller, id string, req UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, caller *models.Caller, id string) error
}

type UserServiceImpl struct {
	UserRepo      UserRepository
	Hierarchy     FilterNarrower
	Placement     PlacementValidator
	CustomRoles   CustomRoleFinder
	Permissions   PermissionFinder
	UserRoles     UserRoleCleaner
	Cache         CacheInvalidator
	Tx            database.TxManager
	AuditService  audit.AuditService
	Logger        *zap.Logger
	CustomIsAdmin bool
}

func NewUserService(
	userRepo UserRepository,
	narrower FilterNarrower,
	placement PlacementValidator,
	customRoles CustomRoleFinder,
	permissions PermissionFinder,
	userRoles UserRoleCleaner,
	cache CacheInvalidator,
	tx database.TxManager,
	auditService audit.AuditService,
	logger *zap.Logger,
	cfg *config.Config,
) UserService {
	return &UserServiceImpl{
		UserRepo:      userRepo,
		Hierarchy:     narrower,
		Placement:     placement,
		CustomRoles:   customRoles,
		Permissions:   permissions,
		UserRoles:     userRoles,
		Cache:         cache,
		Tx:            tx,
		AuditService:  auditService,
		Logger:        logger,
		CustomIsAdmin: cfg.CustomIsAdmin,
	}
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, caller *models.Caller, query hierarchy.Query, page, limit int64) (*ListUsersResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if query.UserType != "" && !query.UserType.Valid() {
		return nil, apperrors.Validation("invalid user_type %q", query.UserType)
	}

	filter, err := s.Hierarchy.NarrowFilter(ctx, caller, query)
	if err != nil {
		return nil, err
	}

	users, total, err := s.UserRepo.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return &ListUsersResult{Users: users, Total: total, Page: page, Limit: limit}, nil
}

// GetUser returns the user when it is the caller or lies inside the
// caller's visible set.
func (s *UserServiceImpl) GetUser(ctx context.Context, caller *models.Caller, id string) (*models.User, error) {
	oid, err := validation.ObjectID("user id", id)
	if err != nil {
		return nil, err
	}
	if oid != caller.ID {
		if err := s.ensureVisible(ctx, caller, oid); err != nil {
			return nil, err
		}
	}
	return s.UserRepo.FindByID(ctx, oid)
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, caller *models.Caller, req CreateUserRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     req.Phone,
		UserType:  req.UserType,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	var err error
	refs := []struct {
		field string
		raw   string
		dst   **primitive.ObjectID
	}{
		{"main_dealer_ref", req.MainDealerRef, &user.MainDealerRef},
		{"dealer_ref", req.DealerRef, &user.DealerRef},
		{"custom_role_ref", req.CustomRoleRef, &user.CustomRoleRef},
		{"location_ref", req.LocationRef, &user.LocationRef},
		{"oem_ref", req.OEMRef, &user.OEMRef},
	}
	for _, ref := range refs {
		if *ref.dst, err = validation.OptionalObjectID(ref.field, ref.raw); err != nil {
			return nil, err
		}
	}
	if user.Permissions, err = validation.ObjectIDs("permissions", req.Permissions); err != nil {
		return nil, err
	}

	if !caller.IsAdmin(s.CustomIsAdmin) {
		if err := s.placeUnderCaller(caller, user); err != nil {
			return nil, err
		}
	}

	if err := s.checkReferences(ctx, user); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, user.Email, primitive.NilObjectID); err != nil {
		return nil, err
	}

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionCreate, "user", user.ID.Hex(), map[string]models.Change{
		"email":     {New: user.Email},
		"user_type": {New: user.UserType},
	})
	return user, nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, caller *models.Caller, id string, req UpdateUserRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	oid, err := validation.ObjectID("user id", id)
	if err != nil {
		return nil, err
	}

	admin := caller.IsAdmin(s.CustomIsAdmin)
	if !admin {
		if req.touchesPlacement() {
			return nil, apperrors.Forbidden("only administrators may change user type, hierarchy references or grants")
		}
		if err := s.ensureVisible(ctx, caller, oid); err != nil {
			return nil, err
		}
	}

	user, err := s.UserRepo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]models.Change)
	if req.Name != nil && strings.TrimSpace(*req.Name) != user.Name {
		name := strings.TrimSpace(*req.Name)
		changes["name"] = models.Change{Old: user.Name, New: name}
		user.Name = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
			changes["email"] = models.Change{Old: user.Email, New: email}
			user.Email = email
		}
	}
	if req.Phone != nil && *req.Phone != user.Phone {
		changes["phone"] = models.Change{Old: user.Phone, New: *req.Phone}
		user.Phone = *req.Phone
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		changes["is_active"] = models.Change{Old: user.IsActive, New: *req.IsActive}
		user.IsActive = *req.IsActive
	}
	if req.UserType != nil && *req.UserType != user.UserType {
		changes["user_type"] = models.Change{Old: user.UserType, New: *req.UserType}
		user.UserType = *req.UserType
	}

	refs := []struct {
		field string
		raw   *string
		dst   **primitive.ObjectID
	}{
		{"main_dealer_ref", req.MainDealerRef, &user.MainDealerRef},
		{"dealer_ref", req.DealerRef, &user.DealerRef},
		{"custom_role_ref", req.CustomRoleRef, &user.CustomRoleRef},
		{"location_ref", req.LocationRef, &user.LocationRef},
		{"oem_ref", req.OEMRef, &user.OEMRef},
	}
	for _, ref := range refs {
		if ref.raw == nil {
			continue
		}
		next, err := validation.OptionalObjectID(ref.field, *ref.raw)
		if err != nil {
			return nil, err
		}
		if !sameRef(*ref.dst, next) {
			changes[ref.field] = models.Change{Old: hexOf(*ref.dst), New: hexOf(next)}
			*ref.dst = next
		}
	}
	if req.Permissions != nil {
		if user.Permissions, err = validation.ObjectIDs("permissions", req.Permissions); err != nil {
			return nil, err
		}
		changes["permissions"] = models.Change{New: len(user.Permissions)}
	}

	if req.touchesPlacement() {
		if err := s.checkReferences(ctx, user); err != nil {
			return nil, err
		}
	}
	_, typeChanged := changes["user_type"]
	_, mainDealerChanged := changes["main_dealer_ref"]
	if typeChanged || mainDealerChanged {
		// subordinates point at this user by type and main dealer
		subordinates, err := s.countSubordinates(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if subordinates > 0 {
			return nil, apperrors.Conflict("user %s has %d subordinate user(s); reassign them before changing its type or main dealer", user.Email, subordinates)
		}
	}
	user.UpdatedAt = time.Now()

	if err := s.UserRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.Cache.Invalidate(user.ID)
		_ = s.AuditService.LogChange(ctx, models.AuditActionUpdate, "user", user.ID.Hex(), changes)
	}
	return user, nil
}

// DeleteUser refuses while other users hang below the target in the
// hierarchy, and drops the target's role assignments.
func (s *UserServiceImpl) DeleteUser(ctx context.Context, caller *models.Caller, id string) error {
	oid, err := validation.ObjectID("user id", id)
	if err != nil {
		return err
	}
	if oid == caller.ID {
		return apperrors.Conflict("cannot delete your own user")
	}
	if !caller.IsAdmin(s.CustomIsAdmin) {
		if err := s.ensureVisible(ctx, caller, oid); err != nil {
			return err
		}
	}
	user, err := s.UserRepo.FindByID(ctx, oid)
	if err != nil {
		return err
	}

	subordinates, err := s.countSubordinates(ctx, oid)
	if err != nil {
		return err
	}
	if subordinates > 0 {
		return apperrors.Conflict("user %s has %d subordinate user(s)", user.Email, subordinates)
	}

	var roles int64
	err = s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.UserRepo.Delete(txCtx, oid); err != nil {
			return err
		}
		var err error
		roles, err = s.UserRoles.DeleteByUserID(txCtx, oid)
		return err
	})
	if err != nil {
		return err
	}

	s.Cache.Invalidate(oid)
	s.Logger.Info("User deleted", zap.String("user_id", id), zap.Int64("role_assignments_removed", roles))
	_ = s.AuditService.LogChange(ctx, models.AuditActionDelete, "user", id, map[string]models.Change{
		"email": {Old: user.Email},
	})
	return nil
}

func (s *UserServiceImpl) countSubordinates(ctx context.Context, id primitive.ObjectID) (int64, error) {
	return s.UserRepo.Count(ctx, bson.M{"$or": bson.A{
		bson.M{"main_dealer_ref": id},
		bson.M{"dealer_ref": id},
	}})
}

// placeUnderCaller forces a record created by a dealer-tier caller under
// that caller.
func (s *UserServiceImpl) placeUnderCaller(caller *models.Caller, user *models.User) error {
	if user.CustomRoleRef != nil || len(user.Permissions) > 0 {
		return apperrors.Forbidden("only administrators may grant custom roles or permissions")
	}

	switch caller.UserType {
	case models.UserTypeMainDealer:
		switch user.UserType {
		case models.UserTypeDealer:
			user.DealerRef = nil
		case models.UserTypeUser:
		default:
			return apperrors.Forbidden("main dealers may only create dealer or user accounts")
		}
		mainDealer := caller.ID
		user.MainDealerRef = &mainDealer
	case models.UserTypeDealer:
		if user.UserType != models.UserTypeUser {
			return apperrors.Forbidden("dealers may only create user accounts")
		}
		dealer := caller.ID
		user.DealerRef = &dealer
		user.MainDealerRef = nil
	default:
		return apperrors.Forbidden("%s users may not create users", caller.UserType)
	}
	return nil
}

// checkReferences validates hierarchy placement and resolves the custom role
// and direct permission references.
func (s *UserServiceImpl) checkReferences(ctx context.Context, user *models.User) error {
	if err := s.Placement.Validate(ctx, user); err != nil {
		return err
	}
	if user.CustomRoleRef != nil {
		if _, err := s.CustomRoles.FindByID(ctx, *user.CustomRoleRef); err != nil {
			return err
		}
	}
	if len(user.Permissions) > 0 {
		found, err := s.Permissions.FindByIDs(ctx, user.Permissions)
		if err != nil {
			return err
		}
		if len(found) != len(user.Permissions) {
			exists := make(map[primitive.ObjectID]bool, len(found))
			for _, p := range found {
				exists[p.ID] = true
			}
			var missing []string
			for _, id := range user.Permissions {
				if !exists[id] {
					missing = append(missing, id.Hex())
				}
			}
			return apperrors.NotFound("permission", strings.Join(missing, ", "))
		}
	}
	return nil
}

func (s *UserServiceImpl) ensureEmailFree(ctx context.Context, email string, self primitive.ObjectID) error {
	existing, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return apperrors.Conflict("user with email %q already exists", email)
	}
	return nil
}

func (s *UserServiceImpl) ensureVisible(ctx context.Context, caller *models.Caller, id primitive.ObjectID) error {
	if caller.IsAdmin(s.CustomIsAdmin) {
		return nil
	}
	filter, err := s.Hierarchy.NarrowFilter(ctx, caller, hierarchy.Query{})
	if err != nil {
		return err
	}
	n, err := s.UserRepo.Count(ctx, bson.M{"$and": bson.A{filter, bson.M{"_id": id}}})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.Forbidden("user %s is outside your hierarchy", id.Hex())
	}
	return nil
}

func sameRef(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func hexOf(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}
