package domain

import (
	"context"
	"strings"
	"time"

	"jmkresearch-backend/internal/apperrors"
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/validation"
	"jmkresearch-backend/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PermissionCounter reports how many permissions reference a domain.
type PermissionCounter interface {
	CountByDomain(ctx context.Context, domainID primitive.ObjectID) (int64, error)
}

type DomainService interface {
	CreateDomain(ctx context.Context, req CreateDomainRequest) (*Domain, error)
	GetDomain(ctx context.Context, id string) (*Domain, error)
	ListDomains(ctx context.Context, filter ListFilter) ([]Domain, error)
	UpdateDomain(ctx context.Context, id string, req UpdateDomainRequest) (*Domain, error)
	DeleteDomain(ctx context.Context, id string) error
}

type DomainServiceImpl struct {
	DomainRepo   DomainRepository
	Permissions  PermissionCounter
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewDomainService(domainRepo DomainRepository, permissions PermissionCounter, auditService audit.AuditService, logger *zap.Logger) DomainService {
	return &DomainServiceImpl{
		DomainRepo:   domainRepo,
		Permissions:  permissions,
		AuditService: auditService,
		Logger:       logger,
	}
}

func (s *DomainServiceImpl) CreateDomain(ctx context.Context, req CreateDomainRequest) (*Domain, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)

	existing, err := s.DomainRepo.FindByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("domain %q already exists", title)
	}

	now := time.Now()
	domain := &Domain{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Key:         utils.Slugify(title),
		Description: req.Description,
		Status:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Status != nil {
		domain.Status = *req.Status
	}

	if err := s.DomainRepo.Create(ctx, domain); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "domain", domain.ID.Hex(), map[string]common_models.Change{
		"title": {New: domain.Title},
	})

	return domain, nil
}

func (s *DomainServiceImpl) GetDomain(ctx context.Context, id string) (*Domain, error) {
	oid, err := validation.ObjectID("domain id", id)
	if err != nil {
		return nil, err
	}
	return s.DomainRepo.FindByID(ctx, oid)
}

func (s *DomainServiceImpl) ListDomains(ctx context.Context, filter ListFilter) ([]Domain, error) {
	return s.DomainRepo.List(ctx, filter)
}

func (s *DomainServiceImpl) UpdateDomain(ctx context.Context, id string, req UpdateDomainRequest) (*Domain, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	oid, err := validation.ObjectID("domain id", id)
	if err != nil {
		return nil, err
	}
	domain, err := s.DomainRepo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]common_models.Change)
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title != domain.Title {
			existing, err := s.DomainRepo.FindByTitle(ctx, title)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != domain.ID {
				return nil, apperrors.Conflict("domain %q already exists", title)
			}
			changes["title"] = common_models.Change{Old: domain.Title, New: title}
			domain.Title = title
			domain.Key = utils.Slugify(title)
		}
	}
	if req.Description != nil && *req.Description != domain.Description {
		changes["description"] = common_models.Change{Old: domain.Description, New: *req.Description}
		domain.Description = *req.Description
	}
	if req.Status != nil && *req.Status != domain.Status {
		changes["status"] = common_models.Change{Old: domain.Status, New: *req.Status}
		domain.Status = *req.Status
	}
	domain.UpdatedAt = time.Now()

	if err := s.DomainRepo.Update(ctx, domain); err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "domain", domain.ID.Hex(), changes)
	}
	return domain, nil
}

// DeleteDomain refuses while permissions still reference the domain.
func (s *DomainServiceImpl) DeleteDomain(ctx context.Context, id string) error {
	oid, err := validation.ObjectID("domain id", id)
	if err != nil {
		return err
	}
	domain, err := s.DomainRepo.FindByID(ctx, oid)
	if err != nil {
		return err
	}

	refs, err := s.Permissions.CountByDomain(ctx, oid)
	if err != nil {
		return err
	}
	if refs > 0 {
		return apperrors.Conflict("domain %q is referenced by %d permission(s)", domain.Title, refs)
	}

	if err := s.DomainRepo.Delete(ctx, oid); err != nil {
		return err
	}

	s.Logger.Info("Domain deleted", zap.String("domain_id", id), zap.String("title", domain.Title))
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, "domain", id, map[string]common_models.Change{
		"title": {Old: domain.Title},
	})
	return nil
}
