package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skytrails/trailmap/internal/lib/area"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, area.DefaultThresholds(), cfg.Area)
	assert.Equal(t, 10.0, cfg.Overlays.SearchWindowKm)
	assert.NotEmpty(t, cfg.Overlays.Locations)

	route, ok := cfg.Route("pacific-flyway-sample")
	require.True(t, ok)
	path, err := route.Path()
	require.NoError(t, err)
	assert.Len(t, path, 3)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("", nil)

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := Load("testdata/trailmap.yaml", nil)
	require.NoError(t, err)

	assert.Equal(t, "trailmap-test/0.1", cfg.Search.UserAgent)
	assert.Equal(t, 2.0, cfg.Search.RequestsPerSec)
	assert.Equal(t, 5*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Search.BaseURL, "Unset keys keep their defaults")

	assert.Equal(t, "localhost:6379", cfg.Cache.ValkeyAddr)
	assert.Equal(t, 12.0, cfg.Area.MaxCornerDistanceKm)
	assert.Equal(t, area.DefaultMaxRegionCenterKm, cfg.Area.MaxRegionCenterKm)

	assert.Equal(t, int64(2), cfg.Overlays.MaxConcurrentSearches)
	assert.Equal(t, 30*time.Minute, cfg.Overlays.RefreshInterval)
	require.Len(t, cfg.Overlays.Locations, 1)
	assert.Equal(t, "Bodega Head", cfg.Overlays.Locations[0].Name)
	assert.InDelta(t, -123.0656, cfg.Overlays.Locations[0].Point().Longitude, 1e-9)

	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, "coast", cfg.Routes[0].ID)
}

func TestLoad_EnvironmentAndOverrides(t *testing.T) {
	t.Setenv("TRAILMAP__SEARCH__USER_AGENT", "from-env")
	t.Setenv("TRAILMAP__OVERLAYS__REFRESH_INTERVAL", "2m")
	t.Setenv("TRAILMAP__AREA__FALLBACK_RADIUS_KM", "3.5")

	cfg, err := Load("testdata/trailmap.yaml", map[string]interface{}{
		"overlays.refresh_interval": "90s",
	})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Search.UserAgent)
	assert.Equal(t, 3.5, cfg.Area.FallbackRadiusKm)
	assert.Equal(t, 90*time.Second, cfg.Overlays.RefreshInterval, "Overrides win over the environment")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml", nil)
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load("testdata/invalid.yaml", nil)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "max_concurrent_searches")
	assert.Contains(t, msg, "overlays.locations[0]: name is required")
	assert.Contains(t, msg, "invalid coordinate")
	assert.Contains(t, msg, "route broken")
}

func TestValidate_DuplicateRoutes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Routes = append(cfg.Routes, cfg.Routes[0])

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id pacific-flyway-sample")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "overlays.refresh_interval", envKey("TRAILMAP__OVERLAYS__REFRESH_INTERVAL"))
	assert.Equal(t, "search.base_url", envKey("TRAILMAP__SEARCH__BASE_URL"))
}
