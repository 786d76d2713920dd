// Package observability lets a process attach instrumentation to uploads,
// graph creation, metadata cache lookups and API requests without the core
// packages depending on a metrics or tracing backend.
//
// Core packages emit events through the accessors:
//
//	observability.Ingest().OnUploadStart(ctx, "csv", workspace, table)
//
// The binary decides what receives them, usually once at startup:
//
//	observability.NewLogHooks(logger).Register()
//
// Unregistered categories fall back to no-ops.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// IngestHooks receives events from the upload pipeline.
type IngestHooks interface {
	OnUploadStart(ctx context.Context, format, workspace, table string)
	// OnUploadComplete reports the number of inserted rows, zero on failure.
	OnUploadComplete(ctx context.Context, format, workspace, table string, rows int, duration time.Duration, err error)
}

// GraphHooks receives events from graph creation.
type GraphHooks interface {
	OnGraphCheck(ctx context.Context, workspace, edgeTable string, problems int)
	OnGraphCreate(ctx context.Context, workspace, graph string, duration time.Duration, err error)
}

// CacheHooks receives metadata cache events. keyType names the cached record kind.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives one event per served request. route is the matched pattern.
type HTTPHooks interface {
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// Noop implements every hook interface and does nothing.
type Noop struct{}

func (Noop) OnUploadStart(context.Context, string, string, string) {}
func (Noop) OnUploadComplete(context.Context, string, string, string, int, time.Duration, error) {
}
func (Noop) OnGraphCheck(context.Context, string, string, int)                    {}
func (Noop) OnGraphCreate(context.Context, string, string, time.Duration, error) {}
func (Noop) OnCacheHit(context.Context, string)                                   {}
func (Noop) OnCacheMiss(context.Context, string)                                  {}
func (Noop) OnCacheSet(context.Context, string, int)                              {}
func (Noop) OnResponse(context.Context, string, string, int, time.Duration)       {}

// registry is replaced wholesale on every change, so readers never lock.
type registry struct {
	ingest IngestHooks
	graph  GraphHooks
	cache  CacheHooks
	http   HTTPHooks
}

var current atomic.Pointer[registry]

func init() { Reset() }

func update(fn func(r *registry)) {
	for {
		old := current.Load()
		next := *old
		fn(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetIngestHooks registers h for upload events. nil is ignored.
func SetIngestHooks(h IngestHooks) {
	if h != nil {
		update(func(r *registry) { r.ingest = h })
	}
}

// SetGraphHooks registers h for graph events. nil is ignored.
func SetGraphHooks(h GraphHooks) {
	if h != nil {
		update(func(r *registry) { r.graph = h })
	}
}

// SetCacheHooks registers h for cache events. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(r *registry) { r.cache = h })
	}
}

// SetHTTPHooks registers h for request events. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(r *registry) { r.http = h })
	}
}

func Ingest() IngestHooks { return current.Load().ingest }
func Graph() GraphHooks   { return current.Load().graph }
func Cache() CacheHooks   { return current.Load().cache }
func HTTP() HTTPHooks     { return current.Load().http }

// Reset restores the no-op hooks. Tests use it as a cleanup.
func Reset() {
	current.Store(&registry{ingest: Noop{}, graph: Noop{}, cache: Noop{}, http: Noop{}})
}
