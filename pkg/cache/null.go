package cache

import (
	"context"
	"time"
)

// NullCache disables caching: writes are dropped and every read misses.
// It is what [Open] returns for the "none" backend.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error                     { return nil }
func (*NullCache) Clear(context.Context, string) error                      { return nil }
func (*NullCache) Close() error                                             { return nil }

var _ Cache = (*NullCache)(nil)
