package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing debug-level log lines.
// The server registers it when verbose logging is enabled.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks creates hooks that log through logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

// Register installs h for every hook category.
func (h *LogHooks) Register() {
	SetIngestHooks(h)
	SetGraphHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnUploadStart(_ context.Context, format, workspace, table string) {
	h.logger.Debug("upload started", "format", format, "workspace", workspace, "table", table)
}

func (h *LogHooks) OnUploadComplete(_ context.Context, format, workspace, table string, rows int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("upload failed", "format", format, "workspace", workspace, "table", table, "duration", d, "err", err)
		return
	}
	h.logger.Debug("upload complete", "format", format, "workspace", workspace, "table", table, "rows", rows, "duration", d)
}

func (h *LogHooks) OnGraphCheck(_ context.Context, workspace, edgeTable string, problems int) {
	h.logger.Debug("graph check", "workspace", workspace, "edge_table", edgeTable, "problems", problems)
}

func (h *LogHooks) OnGraphCreate(_ context.Context, workspace, graph string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("graph creation failed", "workspace", workspace, "graph", graph, "err", err)
		return
	}
	h.logger.Debug("graph created", "workspace", workspace, "graph", graph, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.logger.Debug("request", "method", method, "route", route, "status", status, "duration", d)
}
