package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix     = "WERKSTATT_"
	EnvConfigFile = "WERKSTATT_CONFIG"
)

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrLoadConfig, p, err)
		}
	}
	return nil
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if WERKSTATT_CONFIG is set
//  3. env (prefix WERKSTATT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// WERKSTATT_MAX_RADIUS_KM -> max_radius_km (flat keys matching koanf tags).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.NominatimURL == "" || c.OverpassURL == "" {
		errs = append(errs, errors.New("nominatim_url and overpass_url must not be empty"))
	}
	if !(c.MaxRadiusKM > 0) {
		errs = append(errs, errors.New("max_radius_km must be positive"))
	}
	if !(c.DefaultRadiusKM > 0 && c.DefaultRadiusKM <= c.MaxRadiusKM) {
		errs = append(errs, errors.New("default_radius_km must be within (0, max_radius_km]"))
	}
	if !c.IncludeWorkshops && !c.IncludeGenericRepair && !c.IncludeDealers && !c.IncludeTyres && !c.IncludeParts {
		errs = append(errs, errors.New("at least one include_* category must be enabled"))
	}
	switch c.CacheBackend {
	case CacheMemory:
	case CacheRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis_addr must not be empty for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache_backend %q", c.CacheBackend))
	}
	if c.RetryBackoffMS < 0 {
		errs = append(errs, errors.New("retry_backoff_ms must not be negative"))
	}
	if strings.TrimSpace(c.ExportSheetName) == "" {
		errs = append(errs, errors.New("export_sheet_name must not be empty"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
