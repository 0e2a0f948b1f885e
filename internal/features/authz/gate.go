package authz

import (
	"context"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SetResolver computes a user's effective permission set.
type SetResolver interface {
	Resolve(ctx context.Context, userID primitive.ObjectID, customIsAdmin bool) (*EffectivePermissionSet, error)
}

// Gate answers capability checks for callers. It satisfies the HTTP
// authorizer and the cache invalidation hooks of the mapping services.
type Gate struct {
	resolver      SetResolver
	cache         *expirable.LRU[primitive.ObjectID, *EffectivePermissionSet]
	customIsAdmin bool
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewGate builds the gate. A zero cache TTL or size disables caching.
func NewGate(resolver SetResolver, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *Gate {
	g := &Gate{
		resolver:      resolver,
		customIsAdmin: cfg.CustomIsAdmin,
		metrics:       m,
		logger:        logger,
	}
	if cfg.PermissionCacheSize > 0 && cfg.PermissionCacheTTL > 0 {
		g.cache = expirable.NewLRU[primitive.ObjectID, *EffectivePermissionSet](cfg.PermissionCacheSize, nil, cfg.PermissionCacheTTL)
	}
	return g
}

// Authorize decides whether caller holds capability.
func (g *Gate) Authorize(ctx context.Context, caller *models.Caller, capability models.Capability) (Decision, error) {
	if caller == nil {
		return Decision{}, apperrors.Unauthorized("authentication required")
	}

	decision := Decision{Capability: capability}
	switch {
	case caller.IsAdmin(g.customIsAdmin):
		decision.Allowed, decision.Reason = true, ReasonAdmin
	case capability.AdminOnly():
		decision.Reason = ReasonAdminOnly
	case hasTypeGrant(caller.UserType, capability):
		decision.Allowed, decision.Reason = true, ReasonTypeGrant
	default:
		set, err := g.EffectiveSet(ctx, caller.ID)
		if err != nil {
			return Decision{}, err
		}
		switch {
		case set.UserType == "":
			decision.Reason = ReasonUnknownUser
		case set.Has(capability):
			decision.Allowed, decision.Reason = true, ReasonPermission
		default:
			decision.Reason = ReasonNotGranted
		}
	}

	g.record(decision)
	return decision, nil
}

// Require is Authorize that turns a denial into Forbidden.
func (g *Gate) Require(ctx context.Context, caller *models.Caller, capability models.Capability) error {
	decision, err := g.Authorize(ctx, caller, capability)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		g.logger.Debug("Capability denied",
			zap.String("caller", caller.ID.Hex()),
			zap.String("user_type", string(caller.UserType)),
			zap.String("capability", string(capability)),
			zap.String("reason", decision.Reason),
		)
		return apperrors.Forbidden("missing capability %s", capability)
	}
	return nil
}

// EffectiveSet returns the cached set of userID, resolving it on a miss.
func (g *Gate) EffectiveSet(ctx context.Context, userID primitive.ObjectID) (*EffectivePermissionSet, error) {
	if g.cache != nil {
		if set, ok := g.cache.Get(userID); ok {
			g.metrics.PermissionCacheHits.Inc()
			return set, nil
		}
		g.metrics.PermissionCacheMiss.Inc()
	}

	set, err := g.resolver.Resolve(ctx, userID, g.customIsAdmin)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		g.cache.Add(userID, set)
	}
	return set, nil
}

// Invalidate drops the cached set of one user.
func (g *Gate) Invalidate(userID primitive.ObjectID) {
	if g.cache != nil {
		g.cache.Remove(userID)
	}
}

// Purge drops every cached set. Used when a role or permission changes
// since the affected users are not tracked.
func (g *Gate) Purge() {
	if g.cache != nil {
		g.cache.Purge()
	}
}

func (g *Gate) record(d Decision) {
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	g.metrics.AuthzDecisionsTotal.WithLabelValues(string(d.Capability), outcome).Inc()
}

func hasTypeGrant(userType models.UserType, capability models.Capability) bool {
	for _, c := range models.DefaultTypeGrants[userType] {
		if c == capability {
			return true
		}
	}
	return false
}
