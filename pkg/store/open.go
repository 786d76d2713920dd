package store

import (
	"context"

	errs "github.com/matzehuels/multinet/pkg/errors"
)

// Backend names accepted by [Open].
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend string `toml:"backend"`
	// Path is the SQLite database file.
	Path  string      `toml:"path"`
	Mongo MongoConfig `toml:"mongo"`
}

// Open creates the configured backend. An empty backend means memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		path := cfg.Path
		if path == "" {
			path = "multinet.db"
		}
		s, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMongo:
		if cfg.Mongo.URI == "" {
			return nil, errs.New(errs.ErrCodeInvalidInput, "mongo backend requires a uri")
		}
		m, err := OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unknown store backend %q", cfg.Backend)
	}
}
