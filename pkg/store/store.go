// Package store defines the storage boundary of the ingestion engine and
// provides its backends.
//
// The engine treats storage as a black-box document/graph store. Workspaces
// namespace tables and graphs; tables hold rows keyed by "_key"; graphs name
// one edge table plus the node tables it references. Backends:
//   - [Memory]: in-process maps, for tests and local development
//   - [SQLite]: an embedded database file (modernc.org/sqlite)
//   - [Mongo]: one MongoDB database per workspace
//
// # Concurrency
//
// Every backend relies on its own create-if-absent atomicity for workspace,
// table, graph and metadata creation. A losing concurrent creator receives an
// ALREADY_EXISTS error; no distributed locking is attempted.
//
// # Errors
//
// Unknown workspaces, tables and graphs are reported with NOT_FOUND; name
// collisions with ALREADY_EXISTS; backend failures with STORAGE_ERROR.
package store

import (
	"context"
	"sort"

	"github.com/google/uuid"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/table"
)

// TableInfo describes a stored table.
type TableInfo struct {
	Name string `json:"name" bson:"_id"`
	Edge bool   `json:"edge" bson:"edge"`
}

// Inserted identifies one inserted row.
type Inserted struct {
	ID  string `json:"_id"`
	Key string `json:"_key"`
}

// Graph is a stored graph definition.
type Graph struct {
	Name       string   `json:"name" bson:"_id"`
	EdgeTable  string   `json:"edge_table" bson:"edge_table"`
	FromTables []string `json:"from_tables" bson:"from_tables"`
	ToTables   []string `json:"to_tables" bson:"to_tables"`
}

// NodeTables returns the sorted union of from and to tables.
func (g *Graph) NodeTables() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range append(append([]string{}, g.FromTables...), g.ToTables...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// KeySet is a set of row keys.
type KeySet map[string]struct{}

// Has reports whether key is in the set.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Store is the storage interface consumed by the engine and the API.
type Store interface {
	CreateWorkspace(ctx context.Context, name string) error
	DeleteWorkspace(ctx context.Context, name string) error
	ListWorkspaces(ctx context.Context) ([]string, error)
	WorkspaceExists(ctx context.Context, name string) (bool, error)

	TableExists(ctx context.Context, workspace, name string) (bool, error)
	// CreateTable fails with ALREADY_EXISTS when the name is taken.
	CreateTable(ctx context.Context, workspace, name string, edge bool) (TableInfo, error)
	ListTables(ctx context.Context, workspace string) ([]TableInfo, error)
	DeleteTable(ctx context.Context, workspace, name string) error
	// ReadAllRows returns every row in insertion order.
	ReadAllRows(ctx context.Context, workspace, name string) (table.Rows, error)
	InsertRows(ctx context.Context, workspace, name string, rows table.Rows) ([]Inserted, error)
	TableKeys(ctx context.Context, workspace, name string) (KeySet, error)

	GraphExists(ctx context.Context, workspace, name string) (bool, error)
	// CreateGraph fails with ALREADY_EXISTS when the name is taken.
	CreateGraph(ctx context.Context, workspace, name, edgeTable string, fromTables, toTables []string) (*Graph, error)
	GetGraph(ctx context.Context, workspace, name string) (*Graph, error)
	ListGraphs(ctx context.Context, workspace string) ([]*Graph, error)
	DeleteGraph(ctx context.Context, workspace, name string) error

	// GetMetadata returns the table's metadata, atomically creating an empty
	// record when none exists yet.
	GetMetadata(ctx context.Context, workspace, table string) (*metadata.Record, error)
	SetMetadata(ctx context.Context, workspace, table string, rec *metadata.Record) (*metadata.Record, error)

	Close() error
}

// prepareRows assigns keys and ids for insertion into table name. Rows
// without a usable _key receive a generated one. The input is not modified.
func prepareRows(name string, rows table.Rows) (table.Rows, []Inserted, error) {
	out := make(table.Rows, len(rows))
	ins := make([]Inserted, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, r := range rows {
		row := r.Clone()
		key, ok := table.KeyString(row[table.KeyField])
		if !ok || key == "" {
			key = uuid.NewString()
		}
		if seen[key] {
			return nil, nil, errs.New(errs.ErrCodeAlreadyExists, "duplicate key %q in insert batch for %s", key, name)
		}
		seen[key] = true
		id := table.NewRef(name, key)
		row[table.KeyField] = key
		row[table.IDField] = id
		out[i] = row
		ins[i] = Inserted{ID: id, Key: key}
	}
	return out, ins, nil
}

func notFoundWorkspace(name string) error {
	return errs.New(errs.ErrCodeNotFound, "workspace %q not found", name)
}

func notFoundTable(workspace, name string) error {
	return errs.New(errs.ErrCodeNotFound, "table %q not found in workspace %q", name, workspace)
}

func notFoundGraph(workspace, name string) error {
	return errs.New(errs.ErrCodeNotFound, "graph %q not found in workspace %q", name, workspace)
}

func existsTable(workspace, name string) error {
	return errs.New(errs.ErrCodeAlreadyExists, "table %q already exists in workspace %q", name, workspace)
}

func existsGraph(workspace, name string) error {
	return errs.New(errs.ErrCodeAlreadyExists, "graph %q already exists in workspace %q", name, workspace)
}
