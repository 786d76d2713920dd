// Package config loads the multinet service configuration.
//
// Configuration is read from a TOML file and layered over [Default]. Every
// field is optional; an empty file yields an in-memory store, no cache and
// a server on [DefaultAddr]. CLI flags override file values after loading.
//
// # Example
//
//	[server]
//	addr = ":8080"
//
//	[log]
//	level = "debug"
//
//	[store]
//	backend = "mongo"
//
//	[store.mongo]
//	uri = "mongodb://localhost:27017"
//	prefix = "multinet"
//
//	[cache]
//	backend = "redis"
//	prefix = "tenant-a"
//
//	[cache.redis]
//	addr = "localhost:6379"
//
// A file cache without cache.dir uses the user cache directory chosen by
// the CLI.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/multinet/pkg/cache"
	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/store"
)

// DefaultAddr is the default HTTP listen address.
const DefaultAddr = ":8080"

// Config is the top-level service configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Store    store.Config   `toml:"store"`
	Cache    cache.Config   `toml:"cache"`
	Metadata MetadataConfig `toml:"metadata"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
	// MaxUploadBytes caps request bodies on upload routes.
	MaxUploadBytes int64    `toml:"max_upload_bytes"`
	ShutdownGrace  Duration `toml:"shutdown_grace"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// MetadataConfig configures the metadata cache.
type MetadataConfig struct {
	CacheTTL Duration `toml:"cache_ttl"`
}

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           DefaultAddr,
			MaxUploadBytes: 64 << 20,
			ShutdownGrace:  Duration{10 * time.Second},
		},
		Log:      LogConfig{Level: "info"},
		Store:    store.Config{Backend: store.BackendMemory},
		Cache:    cache.Config{Backend: cache.BackendNone},
		Metadata: MetadataConfig{CacheTTL: Duration{10 * time.Minute}},
	}
}

// Load reads path over the defaults. An empty path returns [Default].
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errs.Wrap(errs.ErrCodeInvalidInput, err, "read config %s", path)
	}
	return Parse(data, cfg)
}

// Parse decodes TOML data over base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return base, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return base, errs.New(errs.ErrCodeInvalidInput, "unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no backend accepts.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errs.New(errs.ErrCodeInvalidInput, "server.addr cannot be empty")
	}
	if c.Server.MaxUploadBytes < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "server.max_upload_bytes cannot be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Store.Backend {
	case "", store.BackendMemory, store.BackendSQLite:
	case store.BackendMongo:
		if c.Store.Mongo.URI == "" {
			return errs.New(errs.ErrCodeInvalidInput, "store.mongo.uri is required for the mongo backend")
		}
	default:
		return errs.New(errs.ErrCodeUnsupported, "unknown store backend %q", c.Store.Backend)
	}
	switch c.Cache.Backend {
	case "", cache.BackendNone, cache.BackendMemory, cache.BackendFile:
	case cache.BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return errs.New(errs.ErrCodeInvalidInput, "cache.redis.addr is required for the redis backend")
		}
	default:
		return errs.New(errs.ErrCodeUnsupported, "unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// Level parses the configured log level. Empty means info.
func (c Config) Level() (log.Level, error) {
	if c.Log.Level == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel, errs.Wrap(errs.ErrCodeInvalidInput, err, "log.level")
	}
	return lvl, nil
}
