package metrics

import (
	"strconv"
	"time"

	"jmkresearch-backend/internal/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AuthzDecisionsTotal *prometheus.CounterVec
	PermissionCacheHits prometheus.Counter
	PermissionCacheMiss prometheus.Counter

	UserPlanCascadeUpdates prometheus.Counter

	IntegrityOrphansRemoved *prometheus.CounterVec
	IntegrityViolations     prometheus.Gauge
}

// NewRegistry returns a registry carrying the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// NewMetrics creates and registers all collectors
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jmk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jmk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jmk_authz_decisions_total",
				Help: "Authorization gate decisions by capability",
			},
			[]string{"capability", "decision"},
		),
		PermissionCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "jmk_permission_cache_hits_total",
				Help: "Effective permission set cache hits",
			},
		),
		PermissionCacheMiss: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "jmk_permission_cache_misses_total",
				Help: "Effective permission set cache misses",
			},
		),
		UserPlanCascadeUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "jmk_user_plan_cascade_updates_total",
				Help: "Downstream user plans updated by a cascading edit",
			},
		),
		IntegrityOrphansRemoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jmk_integrity_orphans_removed_total",
				Help: "Dangling mapping rows removed by the integrity sweep",
			},
			[]string{"collection"},
		),
		IntegrityViolations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "jmk_integrity_hierarchy_violations",
				Help: "Users violating hierarchy placement rules at the last sweep",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.PermissionCacheHits,
		m.PermissionCacheMiss,
		m.UserPlanCascadeUpdates,
		m.IntegrityOrphansRemoved,
		m.IntegrityViolations,
	)

	return m
}

// HTTPMiddleware instruments requests. The route pattern is used as the path
// label to keep cardinality bounded.
func HTTPMiddleware(m *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status, _, _ = apperrors.Status(err)
			}
		}
		path := c.Route().Path
		m.HTTPRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
