package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gpportal/pkg/config"
)

func TestAppConfig_Caches(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		var cfg appConfig
		require.NoError(t, config.Load(&cfg, config.WithEnvironment(map[string]string{})))

		assert.Equal(t, 1000, cfg.FeatureCacheSize)
		assert.Equal(t, time.Minute, cfg.FeatureCacheTTL)
		assert.Equal(t, 1000, cfg.TenantCacheSize)
		assert.Equal(t, 5*time.Minute, cfg.TenantCacheTTL)
	})

	t.Run("tenant and feature caches are sized separately", func(t *testing.T) {
		t.Parallel()
		var cfg appConfig
		require.NoError(t, config.Load(&cfg, config.WithEnvironment(map[string]string{
			"FEATURE_CACHE_SIZE": "50",
			"TENANT_CACHE_SIZE":  "5000",
		})))

		assert.Equal(t, 50, cfg.FeatureCacheSize)
		assert.Equal(t, 5000, cfg.TenantCacheSize)
	})
}
