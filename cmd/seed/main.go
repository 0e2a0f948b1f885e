package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/database"
	"jmkresearch-backend/internal/features/custom_role"
	"jmkresearch-backend/internal/features/domain"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/features/plan"
	"jmkresearch-backend/internal/features/role"
	"jmkresearch-backend/internal/features/role_permission"
	"jmkresearch-backend/internal/features/user"
	"jmkresearch-backend/internal/features/user_plan"
	"jmkresearch-backend/internal/features/user_role"
	"jmkresearch-backend/internal/logger"
	"jmkresearch-backend/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const domainsPath = "cmd/seed/data/domains.json"

type seedParams struct {
	fx.In

	Config          *config.Config
	Domains         domain.DomainRepository
	Permissions     permission.PermissionRepository
	Roles           role.RoleRepository
	CustomRoles     custom_role.CustomRoleRepository
	RolePermissions role_permission.RolePermissionRepository
	UserRoles       user_role.UserRoleRepository
	Users           user.UserRepository
	Plans           plan.PlanRepository
	UserPlans       user_plan.UserPlanRepository
	Logger          *zap.Logger
	Shutdowner      fx.Shutdowner
}

// Seed creates the indexes, the default domains and the first super admin.
// Every step is idempotent.
func Seed(lc fx.Lifecycle, p seedParams) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := p.Shutdowner.Shutdown(); err != nil {
						p.Logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()

				p.Logger.Info("Starting database seeding")

				if err := database.EnsureAllIndexes(ctx, p.Logger,
					p.Domains, p.Permissions, p.Roles, p.CustomRoles, p.RolePermissions,
					p.UserRoles, p.Users, p.Plans, p.UserPlans,
				); err != nil {
					p.Logger.Error("Seeding aborted", zap.Error(err))
					return
				}

				if err := seedDomains(ctx, p); err != nil {
					p.Logger.Error("Failed to seed domains", zap.Error(err))
					return
				}

				admin, err := seedSuperAdmin(ctx, p)
				if err != nil {
					p.Logger.Error("Failed to seed super admin", zap.Error(err))
					return
				}

				if !p.Config.IsProduction() {
					utils.SetSecret(p.Config.JWTSecret)
					token, err := utils.GenerateToken(admin.ID, string(admin.UserType), 24*time.Hour)
					if err != nil {
						p.Logger.Error("Failed to sign development token", zap.Error(err))
						return
					}
					p.Logger.Info("Development token for super admin", zap.String("email", admin.Email), zap.String("token", token))
				}

				p.Logger.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func seedDomains(ctx context.Context, p seedParams) error {
	b, err := os.ReadFile(domainsPath)
	if err != nil {
		return err
	}
	var domains []domain.Domain
	if err := json.Unmarshal(b, &domains); err != nil {
		return err
	}

	for _, d := range domains {
		existing, err := p.Domains.FindByTitle(ctx, d.Title)
		if err != nil {
			return err
		}
		if existing != nil {
			p.Logger.Info("Domain exists, skipping", zap.String("domain", d.Title))
			continue
		}

		now := time.Now()
		d.ID = primitive.NewObjectID()
		d.Key = utils.Slugify(d.Title)
		d.Status = true
		d.CreatedAt = now
		d.UpdatedAt = now
		if err := p.Domains.Create(ctx, &d); err != nil {
			return err
		}
		p.Logger.Info("Domain created", zap.String("domain", d.Title), zap.String("key", d.Key))
	}
	return nil
}

func seedSuperAdmin(ctx context.Context, p seedParams) (*common_models.User, error) {
	email := strings.ToLower(envOr("SEED_ADMIN_EMAIL", "admin@jmkresearch.com"))
	existing, err := p.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		p.Logger.Info("Super admin exists, skipping", zap.String("email", email))
		return existing, nil
	}

	now := time.Now()
	admin := &common_models.User{
		ID:        primitive.NewObjectID(),
		Name:      envOr("SEED_ADMIN_NAME", "Super Admin"),
		Email:     email,
		UserType:  common_models.UserTypeSuperAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Users.Create(ctx, admin); err != nil {
		return nil, err
	}
	p.Logger.Info("Super admin created", zap.String("email", email), zap.String("id", admin.ID.Hex()))
	return admin, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			domain.NewDomainRepository,
			permission.NewPermissionRepository,
			role.NewRoleRepository,
			custom_role.NewCustomRoleRepository,
			role_permission.NewRolePermissionRepository,
			user_role.NewUserRoleRepository,
			user.NewUserRepository,
			plan.NewPlanRepository,
			user_plan.NewUserPlanRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}

	<-app.Done()
}
