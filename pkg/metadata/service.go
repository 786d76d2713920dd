package metadata

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/matzehuels/multinet/pkg/cache"
	"github.com/matzehuels/multinet/pkg/observability"
)

// Backend persists metadata records. GetMetadata must create an empty record
// atomically when none exists.
type Backend interface {
	GetMetadata(ctx context.Context, workspace, table string) (*Record, error)
	SetMetadata(ctx context.Context, workspace, table string, rec *Record) (*Record, error)
}

// DefaultTTL bounds how long a cached record may outlive an update made by
// another process that shares the backend but not the cache.
const DefaultTTL = 10 * time.Minute

const cacheKeyType = "metadata"

// Service reads and writes table metadata through a cache.
type Service struct {
	Backend Backend
	Cache   cache.Cache
	Keyer   cache.Keyer
	TTL     time.Duration
	Logger  *log.Logger
}

// NewService creates a service with the given backend and cache.
// A nil cache disables caching.
func NewService(backend Backend, c cache.Cache, logger *log.Logger) *Service {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		Backend: backend,
		Cache:   c,
		Keyer:   cache.NewDefaultKeyer(),
		TTL:     DefaultTTL,
		Logger:  logger,
	}
}

// Get returns the metadata of a table, creating an empty record on first use.
// Cache failures are logged and fall through to the backend.
func (s *Service) Get(ctx context.Context, workspace, table string) (*Record, error) {
	key := s.Keyer.MetadataKey(workspace, table)
	if data, ok, err := s.Cache.Get(ctx, key); err != nil {
		s.Logger.Warn("metadata cache read failed", "key", key, "err", err)
	} else if ok {
		var rec Record
		if err := msgpack.Unmarshal(data, &rec); err == nil {
			if rec.Columns == nil {
				rec.Columns = []Column{}
			}
			observability.Cache().OnCacheHit(ctx, cacheKeyType)
			return &rec, nil
		}
		_ = s.Cache.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, cacheKeyType)

	rec, err := s.Backend.GetMetadata(ctx, workspace, table)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rec)
	return rec, nil
}

// Set validates and persists rec as the table's metadata, replacing any
// previous record. The cache entry is dropped rather than rewritten so a
// concurrent Get never caches a stale value past this call.
func (s *Service) Set(ctx context.Context, workspace, table string, rec *Record) (*Record, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	stored, err := s.Backend.SetMetadata(ctx, workspace, table, rec)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, workspace, table)
	s.Logger.Debug("metadata updated", "workspace", workspace, "table", table, "columns", len(stored.Columns))
	return stored, nil
}

// Invalidate drops the cached record of one table.
func (s *Service) Invalidate(ctx context.Context, workspace, table string) {
	key := s.Keyer.MetadataKey(workspace, table)
	if err := s.Cache.Delete(ctx, key); err != nil {
		s.Logger.Warn("metadata cache delete failed", "key", key, "err", err)
	}
}

// InvalidateAll drops every cached record of a workspace.
func (s *Service) InvalidateAll(ctx context.Context, workspace string) {
	prefix := s.Keyer.WorkspacePrefix(workspace)
	if err := s.Cache.Clear(ctx, prefix); err != nil {
		s.Logger.Warn("metadata cache clear failed", "prefix", prefix, "err", err)
	}
}

func (s *Service) store(ctx context.Context, key string, rec *Record) {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		s.Logger.Warn("metadata encode failed", "key", key, "err", err)
		return
	}
	if err := s.Cache.Set(ctx, key, data, s.TTL); err != nil {
		s.Logger.Warn("metadata cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
}
