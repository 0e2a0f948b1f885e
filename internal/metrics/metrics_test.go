package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"jmkresearch-backend/internal/apperrors"

	"github.com/gofiber/fiber/v2"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddlewareLabelsByRoutePattern(t *testing.T) {
	registry := NewRegistry()
	m := NewMetrics(registry)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status, _, msg := apperrors.Status(err)
			return c.Status(status).SendString(msg)
		},
	})
	app.Use(HTTPMiddleware(m))
	app.Get("/users/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "missing" {
			return apperrors.NotFound("user", "missing")
		}
		return c.SendString("ok")
	})
	app.Get("/metrics", Handler(registry))

	for _, id := range []string{"a", "b", "missing"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/users/"+id, nil))
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/users/:id", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/users/:id", "404")))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `jmk_http_requests_total{method="GET",path="/users/:id",status="404"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
