package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "CUSTOM_IS_ADMIN", "PERMISSION_CACHE_SIZE", "PERMISSION_CACHE_TTL", "INTEGRITY_SCHEDULE", "MONGO_TRANSACTIONS"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("CUSTOM_IS_ADMIN", "not-a-bool")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.CustomIsAdmin, "unparsable booleans fall back to the default")
	assert.Equal(t, 1024, cfg.PermissionCacheSize)
	assert.Equal(t, 30*time.Second, cfg.PermissionCacheTTL)
	assert.Equal(t, "", cfg.IntegritySchedule)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CUSTOM_IS_ADMIN", "false")
	t.Setenv("PERMISSION_CACHE_SIZE", "0")
	t.Setenv("PERMISSION_CACHE_TTL", "5m")
	t.Setenv("INTEGRITY_SCHEDULE", "@daily")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.CustomIsAdmin)
	assert.Zero(t, cfg.PermissionCacheSize)
	assert.Equal(t, 5*time.Minute, cfg.PermissionCacheTTL)
	assert.Equal(t, "@daily", cfg.IntegritySchedule)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadNumbers(t *testing.T) {
	t.Setenv("PERMISSION_CACHE_SIZE", "lots")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("PERMISSION_CACHE_SIZE", "8")
	t.Setenv("PERMISSION_CACHE_TTL", "soon")
	_, err = LoadConfig()
	assert.Error(t, err)
}
