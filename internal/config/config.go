// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ContactEmail is sent to Nominatim and embedded in the user agent.
	ContactEmail string `koanf:"contact_email"`
	// UserAgent overrides the derived user agent when set.
	UserAgent string `koanf:"user_agent"`

	NominatimURL string `koanf:"nominatim_url"`
	OverpassURL  string `koanf:"overpass_url"`

	// HTTP client timeouts for the upstream services.
	GeocodeTimeoutMS  int `koanf:"geocode_timeout_ms"`
	OverpassTimeoutMS int `koanf:"overpass_timeout_ms"`
	// OverpassQueryTimeoutS is the server-side [timeout:N] of the query.
	OverpassQueryTimeoutS int `koanf:"overpass_query_timeout_s"`
	// RetryBackoffMS is the wait before the single retry on HTTP 429.
	RetryBackoffMS int `koanf:"retry_backoff_ms"`

	GeocodeCacheTTLS int `koanf:"geocode_cache_ttl_s"`
	QueryCacheTTLS   int `koanf:"query_cache_ttl_s"`

	// CacheBackend is "memory" or "redis".
	CacheBackend  string `koanf:"cache_backend"`
	CacheCapacity int    `koanf:"cache_capacity"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	DefaultRadiusKM float64 `koanf:"default_radius_km"`
	MaxRadiusKM     float64 `koanf:"max_radius_km"`
	DedupEnabled    bool    `koanf:"dedup_enabled"`

	IncludeWorkshops     bool `koanf:"include_workshops"`
	IncludeGenericRepair bool `koanf:"include_generic_repair"`
	IncludeDealers       bool `koanf:"include_dealers"`
	IncludeTyres         bool `koanf:"include_tyres"`
	IncludeParts         bool `koanf:"include_parts"`

	// ExportSheetName names the worksheet of XLSX downloads.
	ExportSheetName string `koanf:"export_sheet_name"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		ContactEmail:          "ops@example.com",
		NominatimURL:          "https://nominatim.openstreetmap.org/search",
		OverpassURL:           "https://overpass-api.de/api/interpreter",
		GeocodeTimeoutMS:      30_000,
		OverpassTimeoutMS:     120_000,
		OverpassQueryTimeoutS: 60,
		RetryBackoffMS:        2_000,
		GeocodeCacheTTLS:      3600,
		QueryCacheTTLS:        1800,
		CacheBackend:          CacheMemory,
		CacheCapacity:         1024,
		RedisAddr:             "127.0.0.1:6379",
		DefaultRadiusKM:       25,
		MaxRadiusKM:           50,
		DedupEnabled:          true,
		IncludeWorkshops:      true,
		IncludeTyres:          true,
		IncludeParts:          true,
		ExportSheetName:       "Results",
	}
}

// EffectiveUserAgent returns UserAgent, or one derived from ContactEmail.
func (c *Config) EffectiveUserAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return fmt.Sprintf("de-workshop-finder/1.0 (mailto:%s)", c.ContactEmail)
}

// GeocodeTimeout returns the geocoder HTTP timeout.
func (c *Config) GeocodeTimeout() time.Duration {
	return time.Duration(c.GeocodeTimeoutMS) * time.Millisecond
}

// OverpassTimeout returns the Overpass HTTP timeout.
func (c *Config) OverpassTimeout() time.Duration {
	return time.Duration(c.OverpassTimeoutMS) * time.Millisecond
}

// RetryBackoff returns the wait before retrying a rate-limited request.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// GeocodeCacheTTL returns how long geocoding answers are cached.
func (c *Config) GeocodeCacheTTL() time.Duration {
	return time.Duration(c.GeocodeCacheTTLS) * time.Second
}

// QueryCacheTTL returns how long Overpass answers are cached.
func (c *Config) QueryCacheTTL() time.Duration {
	return time.Duration(c.QueryCacheTTLS) * time.Second
}
