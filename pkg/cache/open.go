package cache

import (
	"context"
	"fmt"
	"strings"
)

// Backend names accepted by [Open].
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config selects and configures a cache backend.
type Config struct {
	Backend string      `toml:"backend"`
	Dir     string      `toml:"dir"`
	Prefix  string      `toml:"prefix"`
	Redis   RedisConfig `toml:"redis"`
}

// Open creates the configured cache. Redis connections are retried with backoff.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return NewNullCache(), nil
	case BackendMemory:
		return NewMemoryCache(), nil
	case BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file cache requires a directory")
		}
		fc, err := NewFileCache(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	case BackendRedis:
		var rc *RedisCache
		err := RetryWithBackoff(ctx, func() error {
			var err error
			rc, err = NewRedisCache(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Keyer returns the keyer implied by the configured prefix. A ":" separator
// is added when the prefix lacks one.
func (cfg Config) Keyer() Keyer {
	if cfg.Prefix == "" {
		return NewDefaultKeyer()
	}
	prefix := cfg.Prefix
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return NewScopedKeyer(NewDefaultKeyer(), prefix)
}
