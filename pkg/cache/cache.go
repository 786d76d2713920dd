// Package cache provides the byte cache placed in front of metadata lookups.
//
// Backends:
//   - [NullCache]: caching disabled
//   - [MemoryCache]: in-process, per server instance
//   - [FileCache]: a directory of entries, for the CLI
//   - [RedisCache]: shared between server instances
//
// Values are opaque bytes; callers choose the encoding. Keys are produced by
// a [Keyer] so that a whole workspace can be dropped with one [Cache.Clear].
package cache

import (
	"context"
	"time"
)

// Cache stores byte values under string keys.
type Cache interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key starting with prefix. An empty prefix clears all.
	Clear(ctx context.Context, prefix string) error
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// MetadataKey addresses the metadata record of one table.
	MetadataKey(workspace, table string) string
	// WorkspacePrefix is a prefix shared by every key of a workspace.
	WorkspacePrefix(workspace string) string
	// Prefix is shared by every key the keyer produces.
	Prefix() string
}

// DefaultKeyer produces keys of the form "meta:<workspace>:<table>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) MetadataKey(workspace, table string) string {
	return "meta:" + workspace + ":" + table
}

func (DefaultKeyer) WorkspacePrefix(workspace string) string {
	return "meta:" + workspace + ":"
}

func (DefaultKeyer) Prefix() string { return "meta:" }
