package ingest

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/observability"
	"github.com/matzehuels/multinet/pkg/store"
	"github.com/matzehuels/multinet/pkg/table"
)

// TableWriter is the storage the uploader writes to.
type TableWriter interface {
	TableExists(ctx context.Context, workspace, name string) (bool, error)
	CreateTable(ctx context.Context, workspace, name string, edge bool) (store.TableInfo, error)
	InsertRows(ctx context.Context, workspace, name string, rows table.Rows) ([]store.Inserted, error)
	DeleteTable(ctx context.Context, workspace, name string) error
}

// MetadataWriter persists table metadata.
type MetadataWriter interface {
	Set(ctx context.Context, workspace, table string, rec *metadata.Record) (*metadata.Record, error)
	Invalidate(ctx context.Context, workspace, table string)
}

// Uploader runs payloads through decode, parse and validation and writes the
// resulting tables.
//
// The Uploader holds no per-upload state; one instance serves concurrent
// requests.
type Uploader struct {
	Store    TableWriter
	Metadata MetadataWriter
	Logger   *log.Logger
}

// NewUploader creates an uploader. A nil logger uses the default logger.
func NewUploader(s TableWriter, meta MetadataWriter, logger *log.Logger) *Uploader {
	if logger == nil {
		logger = log.Default()
	}
	return &Uploader{Store: s, Metadata: meta, Logger: logger}
}

// TableResult describes one written table.
type TableResult struct {
	Name     string           `json:"name"`
	Edge     bool             `json:"edge"`
	Inserted []store.Inserted `json:"inserted"`
}

// Result describes a completed upload.
type Result struct {
	Format string        `json:"format"`
	Tables []TableResult `json:"tables"`
}

// RowCount returns the number of inserted rows.
func (r *Result) RowCount() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Inserted)
	}
	return n
}

// UploadCSV stores a CSV payload as table name.
func (u *Uploader) UploadCSV(ctx context.Context, workspace, name string, data []byte, opts CSVOptions) (*Result, error) {
	return u.upload(ctx, FormatCSV, workspace, name, data, opts)
}

// UploadD3 stores a D3 node-link document as <name>_nodes and <name>_links.
func (u *Uploader) UploadD3(ctx context.Context, workspace, name string, data []byte) (*Result, error) {
	return u.upload(ctx, FormatD3, workspace, name, data, CSVOptions{})
}

// UploadNewick stores a Newick tree as <name>_nodes and <name>_edges.
func (u *Uploader) UploadNewick(ctx context.Context, workspace, name string, data []byte) (*Result, error) {
	return u.upload(ctx, FormatNewick, workspace, name, data, CSVOptions{})
}

// UploadNestedJSON stores a nested-JSON tree as <name>_internal_nodes,
// <name>_leaf_nodes and <name>_edges.
func (u *Uploader) UploadNestedJSON(ctx context.Context, workspace, name string, data []byte) (*Result, error) {
	return u.upload(ctx, FormatNestedJSON, workspace, name, data, CSVOptions{})
}

// Prepare decodes, parses, validates and processes a payload without
// writing anything. opts only applies to CSV.
func Prepare(format, name string, data []byte, opts CSVOptions) (*Upload, error) {
	if err := errs.ValidateName("table", name); err != nil {
		return nil, err
	}
	text, err := Decode(data)
	if err != nil {
		return nil, err
	}
	var up *Upload
	switch format {
	case FormatCSV:
		up, err = ParseCSV(text, name, opts)
	case FormatD3:
		up, err = ParseD3(text, name)
	case FormatNewick:
		up, err = ParseNewick(text, name)
	case FormatNestedJSON:
		up, err = ParseNestedJSON(text, name)
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unknown upload format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if err := up.Validate(); err != nil {
		return nil, err
	}
	if err := up.Process(); err != nil {
		return nil, err
	}
	return up, nil
}

func (u *Uploader) upload(ctx context.Context, format, workspace, name string, data []byte, opts CSVOptions) (res *Result, err error) {
	start := time.Now()
	observability.Ingest().OnUploadStart(ctx, format, workspace, name)
	defer func() {
		rows := 0
		if res != nil {
			rows = res.RowCount()
		}
		observability.Ingest().OnUploadComplete(ctx, format, workspace, name, rows, time.Since(start), err)
	}()

	up, err := Prepare(format, name, data, opts)
	if err != nil {
		return nil, err
	}
	res, err = u.write(ctx, workspace, up)
	if err != nil {
		return nil, err
	}
	u.Logger.Info("upload stored",
		"format", format,
		"workspace", workspace,
		"tables", len(res.Tables),
		"rows", res.RowCount(),
		"duration", time.Since(start))
	return res, nil
}

// write creates every table of a validated upload. All target names are
// checked first so a multi-table upload does not stop halfway on a name
// that was already taken; a concurrent creator can still win the race, and
// that surfaces as ALREADY_EXISTS from CreateTable. If any later step fails,
// the tables created by this call are dropped again.
func (u *Uploader) write(ctx context.Context, workspace string, up *Upload) (res *Result, err error) {
	for _, t := range up.Tables {
		exists, err := u.Store.TableExists(ctx, workspace, t.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errs.New(errs.ErrCodeAlreadyExists, "table %q already exists in workspace %q", t.Name, workspace)
		}
	}

	var created []string
	defer func() {
		if err != nil {
			u.rollback(ctx, workspace, created)
		}
	}()

	res = &Result{Format: up.Format, Tables: make([]TableResult, 0, len(up.Tables))}
	for _, t := range up.Tables {
		if _, err := u.Store.CreateTable(ctx, workspace, t.Name, t.Edge); err != nil {
			return nil, err
		}
		created = append(created, t.Name)
		inserted, err := u.Store.InsertRows(ctx, workspace, t.Name, t.Rows)
		if err != nil {
			return nil, err
		}
		if t.Metadata != nil && u.Metadata != nil {
			if _, err := u.Metadata.Set(ctx, workspace, t.Name, t.Metadata); err != nil {
				return nil, err
			}
		}
		u.Logger.Debug("table written", "workspace", workspace, "table", t.Name, "edge", t.Edge, "rows", len(inserted))
		res.Tables = append(res.Tables, TableResult{Name: t.Name, Edge: t.Edge, Inserted: inserted})
	}
	return res, nil
}

// rollback drops tables created by a failed upload. It runs even when ctx
// was cancelled; failures are logged because the upload error is already
// being returned.
func (u *Uploader) rollback(ctx context.Context, workspace string, tables []string) {
	ctx = context.WithoutCancel(ctx)
	for _, name := range tables {
		if err := u.Store.DeleteTable(ctx, workspace, name); err != nil {
			u.Logger.Error("drop table after failed upload", "workspace", workspace, "table", name, "err", err)
			continue
		}
		if u.Metadata != nil {
			u.Metadata.Invalidate(ctx, workspace, name)
		}
		u.Logger.Debug("dropped table after failed upload", "workspace", workspace, "table", name)
	}
}
