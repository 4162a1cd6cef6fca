package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/skytrails/trailmap/internal/clients/search"
	"github.com/skytrails/trailmap/internal/lib/area"
	"github.com/skytrails/trailmap/internal/lib/geo"
)

// EnvPrefix prefixes environment overrides, e.g. TRAILMAP__SEARCH__USER_AGENT
const EnvPrefix = "TRAILMAP__"

// Config represents the complete trailmap configuration
type Config struct {
	Search    search.Config   `koanf:"search"`
	Cache     CacheConfig     `koanf:"cache"`
	Area      area.Thresholds `koanf:"area"`
	Overlays  OverlaysConfig  `koanf:"overlays"`
	Animation AnimationConfig `koanf:"animation"`
	Routes    []RouteConfig   `koanf:"routes"`
}

// CacheConfig selects where search responses are cached. An empty ValkeyAddr
// keeps responses in process memory.
type CacheConfig struct {
	ValkeyAddr      string        `koanf:"valkey_addr"`
	KeyPrefix       string        `koanf:"key_prefix"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// OverlaysConfig holds prediction-area refresh settings
type OverlaysConfig struct {
	MaxConcurrentSearches int64         `koanf:"max_concurrent_searches"`
	SearchWindowKm        float64       `koanf:"search_window_km"`
	RefreshInterval       time.Duration `koanf:"refresh_interval"`
	Locations             []Location    `koanf:"locations"`
}

// Location is a named place whose prediction area is displayed
type Location struct {
	Name      string  `koanf:"name"`
	Latitude  float64 `koanf:"latitude"`
	Longitude float64 `koanf:"longitude"`
}

// Point returns the location's coordinate
func (l Location) Point() geo.Point {
	return geo.Point{Latitude: l.Latitude, Longitude: l.Longitude}
}

// AnimationConfig holds route progress animation settings
type AnimationConfig struct {
	Duration      time.Duration `koanf:"duration"`
	FrameInterval time.Duration `koanf:"frame_interval"`
}

// RouteConfig is a migration route stored as a Google encoded polyline
type RouteConfig struct {
	ID       string `koanf:"id"`
	Name     string `koanf:"name"`
	Polyline string `koanf:"polyline"`
}

// Path decodes the route's polyline
func (r RouteConfig) Path() (geo.Path, error) {
	path, err := geo.DecodePath(r.Polyline)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", r.ID, err)
	}
	return path, nil
}

// Route returns the configured route with the given ID
func (c *Config) Route(id string) (RouteConfig, bool) {
	for _, r := range c.Routes {
		if r.ID == id {
			return r, true
		}
	}
	return RouteConfig{}, false
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Search: search.Config{
			BaseURL:        "https://nominatim.openstreetmap.org",
			UserAgent:      "trailmap/1.0 (+https://github.com/skytrails/trailmap)",
			RequestsPerSec: 1,
			Timeout:        10 * time.Second,
			ResultLimit:    10,
			CacheTTL:       24 * time.Hour, // Place boundaries rarely move
		},
		Cache: CacheConfig{
			KeyPrefix:       "trailmap:",
			CleanupInterval: 10 * time.Minute,
		},
		Area: area.DefaultThresholds(),
		Overlays: OverlaysConfig{
			MaxConcurrentSearches: 4,
			SearchWindowKm:        search.DefaultWindowKm,
			RefreshInterval:       15 * time.Minute,
			Locations: []Location{
				{Name: "Lake Alpine", Latitude: 38.4780, Longitude: -120.0052},
				{Name: "New Melones Lake", Latitude: 37.9838, Longitude: -120.5166},
				{Name: "Calaveras Big Trees State Park", Latitude: 38.2772, Longitude: -120.3079},
			},
		},
		Animation: AnimationConfig{
			Duration:      3 * time.Second,
			FrameInterval: 50 * time.Millisecond,
		},
		Routes: []RouteConfig{
			{
				ID:       "pacific-flyway-sample",
				Name:     "Pacific Flyway sample leg",
				Polyline: "_p~iF~ps|U_ulLnnqC_mqNvxq`@",
			},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, TRAILMAP__
// environment variables and finally explicit overrides, later sources winning
func Load(path string, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps TRAILMAP__OVERLAYS__REFRESH_INTERVAL to overlays.refresh_interval
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate reports every invalid setting
func (c *Config) Validate() error {
	var errs []error

	if c.Search.BaseURL == "" {
		errs = append(errs, errors.New("search.base_url is required"))
	}
	if c.Search.RequestsPerSec <= 0 {
		errs = append(errs, errors.New("search.requests_per_sec must be positive"))
	}

	if c.Cache.CleanupInterval <= 0 {
		errs = append(errs, errors.New("cache.cleanup_interval must be positive"))
	}

	t := c.Area
	if t.MinSpanDegrees < 0 {
		errs = append(errs, errors.New("area.min_span_degrees must not be negative"))
	}
	if t.MaxRegionCenterKm <= 0 || t.MaxNearestResultKm <= 0 || t.MaxCornerDistanceKm <= 0 {
		errs = append(errs, errors.New("area distance thresholds must be positive"))
	}
	if t.MinCircleRadiusKm <= 0 || t.FallbackRadiusKm <= 0 {
		errs = append(errs, errors.New("area circle radii must be positive"))
	}

	if c.Overlays.MaxConcurrentSearches < 1 {
		errs = append(errs, errors.New("overlays.max_concurrent_searches must be at least 1"))
	}
	if c.Overlays.SearchWindowKm <= 0 {
		errs = append(errs, errors.New("overlays.search_window_km must be positive"))
	}
	if c.Overlays.RefreshInterval <= 0 {
		errs = append(errs, errors.New("overlays.refresh_interval must be positive"))
	}
	for i, loc := range c.Overlays.Locations {
		if loc.Name == "" {
			errs = append(errs, fmt.Errorf("overlays.locations[%d]: name is required", i))
		}
		if !geo.IsValid(loc.Point()) {
			errs = append(errs, fmt.Errorf("overlays.locations[%d]: %w", i, geo.ErrInvalidCoordinate))
		}
	}

	if c.Animation.Duration <= 0 || c.Animation.FrameInterval <= 0 {
		errs = append(errs, errors.New("animation duration and frame_interval must be positive"))
	}

	seen := make(map[string]bool)
	for _, r := range c.Routes {
		if r.ID == "" {
			errs = append(errs, errors.New("routes: id is required"))
			continue
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("routes: duplicate id %s", r.ID))
		}
		seen[r.ID] = true
		if _, err := r.Path(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
