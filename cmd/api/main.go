package main

import (
	"context"
	"fmt"
	"time"

	common_api "jmkresearch-backend/internal/common/api"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/database"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/features/authz"
	"jmkresearch-backend/internal/features/custom_role"
	"jmkresearch-backend/internal/features/domain"
	"jmkresearch-backend/internal/features/hierarchy"
	"jmkresearch-backend/internal/features/integrity"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/features/plan"
	"jmkresearch-backend/internal/features/role"
	"jmkresearch-backend/internal/features/role_permission"
	"jmkresearch-backend/internal/features/system"
	"jmkresearch-backend/internal/features/user"
	"jmkresearch-backend/internal/features/user_plan"
	"jmkresearch-backend/internal/features/user_role"
	"jmkresearch-backend/internal/logger"
	"jmkresearch-backend/internal/metrics"
	"jmkresearch-backend/internal/middleware"
	"jmkresearch-backend/pkg/utils"

	_ "jmkresearch-backend/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	app.Use(metrics.HTTPMiddleware(m))

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, logger *zap.Logger) {
	for _, route := range routes {
		logger.Debug("Setting up route", zap.String("route", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
	logger.Info("All routes registered", zap.Int("count", len(routes)))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, logger *zap.Logger) {
	utils.SetSecret(cfg.JWTSecret)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				logger.Info("Server listening", zap.String("addr", port))
				if err := app.Listen(port); err != nil {
					logger.Fatal("Server failed to start", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}

type indexParams struct {
	fx.In

	Audit           audit.AuditRepository
	Domains         domain.DomainRepository
	Permissions     permission.PermissionRepository
	Roles           role.RoleRepository
	CustomRoles     custom_role.CustomRoleRepository
	RolePermissions role_permission.RolePermissionRepository
	UserRoles       user_role.UserRoleRepository
	Users           user.UserRepository
	Plans           plan.PlanRepository
	UserPlans       user_plan.UserPlanRepository
	Reports         integrity.ReportRepository
}

// InitializeIndexes creates the unique indexes before the server accepts
// traffic; the mapping and assignment invariants rely on them.
func InitializeIndexes(lc fx.Lifecycle, p indexParams, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return database.EnsureAllIndexes(ctx, logger,
				p.Audit, p.Domains, p.Permissions, p.Roles, p.CustomRoles, p.RolePermissions,
				p.UserRoles, p.Users, p.Plans, p.UserPlans, p.Reports,
			)
		},
	})
}

// StartIntegrityScheduler runs the periodic orphan sweep.
func StartIntegrityScheduler(lc fx.Lifecycle, svc integrity.IntegrityService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.InitializeScheduler()
		},
		OnStop: func(ctx context.Context) error {
			svc.StopScheduler()
			return nil
		},
	})
}

// @title           JMK Research RBAC API
// @version         1.0
// @description     Roles, permissions, dealer hierarchy and plan assignment.

// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Database
			database.NewDatabase,
			database.NewTxManager,

			// Initialize Logger
			logger.NewLogger,

			// Metrics
			metrics.NewRegistry,
			metrics.NewMetrics,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Repository
			audit.NewAuditRepository,
			domain.NewDomainRepository,
			permission.NewPermissionRepository,
			role.NewRoleRepository,
			custom_role.NewCustomRoleRepository,
			role_permission.NewRolePermissionRepository,
			user_role.NewUserRoleRepository,
			user.NewUserRepository,
			plan.NewPlanRepository,
			user_plan.NewUserPlanRepository,
			integrity.NewReportRepository,

			// Authorization gate
			authz.NewResolver,
			authz.NewGate,
			hierarchy.NewResolver,
			hierarchy.NewValidator,

			audit.NewAuditService,
			domain.NewDomainService,
			permission.NewPermissionService,
			role.NewRoleService,
			custom_role.NewCustomRoleService,
			role_permission.NewRolePermissionService,
			user_role.NewUserRoleService,
			user.NewUserService,
			plan.NewPlanService,
			user_plan.NewUserPlanService,
			integrity.NewIntegrityService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(g *authz.Gate) middleware.Authorizer { return g },
			func(g *authz.Gate) permission.CachePurger { return g },
			func(g *authz.Gate) role.CachePurger { return g },
			func(g *authz.Gate) custom_role.CachePurger { return g },
			func(g *authz.Gate) role_permission.CachePurger { return g },
			func(g *authz.Gate) integrity.CachePurger { return g },
			func(g *authz.Gate) user_role.CacheInvalidator { return g },
			func(g *authz.Gate) user.CacheInvalidator { return g },
			func(r *authz.Resolver) authz.SetResolver { return r },
			func(r *hierarchy.Resolver) user.FilterNarrower { return r },
			func(v *hierarchy.Validator) user.PlacementValidator { return v },
			func(v *hierarchy.Validator) integrity.PlacementValidator { return v },
			func(db *database.MongodbDB) system.Pinger { return db },

			func(r domain.DomainRepository) permission.DomainFinder { return r },
			func(r permission.PermissionRepository) domain.PermissionCounter { return r },
			func(r permission.PermissionRepository) custom_role.PermissionFinder { return r },
			func(r permission.PermissionRepository) role_permission.PermissionFinder { return r },
			func(r permission.PermissionRepository) user_role.PermissionFinder { return r },
			func(r permission.PermissionRepository) user.PermissionFinder { return r },
			func(r permission.PermissionRepository) authz.PermissionFinder { return r },
			func(r permission.PermissionRepository) integrity.PermissionIDLister { return r },
			func(r role.RoleRepository) role_permission.RoleFinder { return r },
			func(r role.RoleRepository) user_role.RoleFinder { return r },
			func(r role.RoleRepository) authz.RoleFinder { return r },
			func(r role.RoleRepository) integrity.RoleIDLister { return r },
			func(r custom_role.CustomRoleRepository) permission.CustomRolePermissionPuller { return r },
			func(r custom_role.CustomRoleRepository) user.CustomRoleFinder { return r },
			func(r custom_role.CustomRoleRepository) authz.CustomRoleFinder { return r },
			func(r role_permission.RolePermissionRepository) permission.RolePermissionCleaner { return r },
			func(r role_permission.RolePermissionRepository) role.RolePermissionCleaner { return r },
			func(r role_permission.RolePermissionRepository) user_role.RolePermissionFinder { return r },
			func(r role_permission.RolePermissionRepository) authz.RolePermissionFinder { return r },
			func(r role_permission.RolePermissionRepository) integrity.RolePermissionPruner { return r },
			func(r user_role.UserRoleRepository) role.UserRoleCleaner { return r },
			func(r user_role.UserRoleRepository) user.UserRoleCleaner { return r },
			func(r user_role.UserRoleRepository) authz.UserRoleFinder { return r },
			func(r user_role.UserRoleRepository) integrity.UserRolePruner { return r },
			func(r user.UserRepository) audit.UserFinder { return r },
			func(r user.UserRepository) permission.UserPermissionPuller { return r },
			func(r user.UserRepository) custom_role.UserCounter { return r },
			func(r user.UserRepository) user_role.UserFinder { return r },
			func(r user.UserRepository) hierarchy.UserIDLookup { return r },
			func(r user.UserRepository) hierarchy.UserFinder { return r },
			func(r user.UserRepository) user_plan.UserFinder { return r },
			func(r user.UserRepository) authz.UserFinder { return r },
			func(r user.UserRepository) integrity.UserLister { return r },
			func(r plan.PlanRepository) user_plan.PlanFinder { return r },
			func(r user_plan.UserPlanRepository) plan.UserPlanCounter { return r },

			// Initialize Controller
			audit.NewAuditController,
			domain.NewDomainController,
			permission.NewPermissionController,
			role.NewRoleController,
			custom_role.NewCustomRoleController,
			role_permission.NewRolePermissionController,
			user_role.NewUserRoleController,
			user.NewUserController,
			plan.NewPlanController,
			user_plan.NewUserPlanController,
			authz.NewAuthzController,
			integrity.NewIntegrityController,
			system.NewHealthController,

			// Initialize API Routes
			AsRoute(audit.NewAuditApi),
			AsRoute(domain.NewDomainApi),
			AsRoute(permission.NewPermissionApi),
			AsRoute(role.NewRoleApi),
			AsRoute(custom_role.NewCustomRoleApi),
			AsRoute(role_permission.NewRolePermissionApi),
			AsRoute(user_role.NewUserRoleApi),
			AsRoute(user.NewUserApi),
			AsRoute(plan.NewPlanApi),
			AsRoute(user_plan.NewUserPlanApi),
			AsRoute(authz.NewAuthzApi),
			AsRoute(integrity.NewIntegrityApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			InitializeIndexes,
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartIntegrityScheduler,
		),
	)

	app.Run()
}
