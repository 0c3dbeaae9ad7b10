// Package cache stores upstream answers for a bounded time.
//
// Two backends share the Cache interface: an in-process LRU with per-entry
// expiry and a Redis client for deployments running several instances.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/werkstatt/internal/config"
)

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Cache is a byte-oriented key/value store with expiry.
// A failed lookup is reported as a miss; Set errors are returned so callers
// can log them, but a broken cache must never fail a search.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// New builds the backend selected by cfg.CacheBackend.
func New(cfg *config.Config) (Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheMemory, "":
		return NewMemory(WithCapacity(cfg.CacheCapacity)), nil
	case config.CacheRedis:
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.CacheBackend)
	}
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
