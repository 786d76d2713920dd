package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/table"
)

// sqliteSchema is applied statement by statement when the store opens.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS workspaces (
		name TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS collections (
		workspace TEXT NOT NULL,
		name TEXT NOT NULL,
		edge INTEGER NOT NULL,
		PRIMARY KEY (workspace, name)
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		workspace TEXT NOT NULL,
		collection TEXT NOT NULL,
		key TEXT NOT NULL,
		body TEXT NOT NULL,
		UNIQUE (workspace, collection, key)
	)`,
	`CREATE TABLE IF NOT EXISTS graphs (
		workspace TEXT NOT NULL,
		name TEXT NOT NULL,
		edge_table TEXT NOT NULL,
		from_tables TEXT NOT NULL,
		to_tables TEXT NOT NULL,
		PRIMARY KEY (workspace, name)
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		workspace TEXT NOT NULL,
		collection TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (workspace, collection)
	)`,
}

// SQLite stores workspaces in a single SQLite database. Rows are kept as
// JSON documents, so JSON numbers read back as float64.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "open sqlite %s", path)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	s, err := NewSQLite(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an open database and applies the schema.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, errs.Wrap(errs.ErrCodeStorage, err, "apply schema")
		}
	}
	return &SQLite{db: db}, nil
}

func storageErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errs.GetCode(err) != "" {
		return err
	}
	return errs.Wrap(errs.ErrCodeStorage, err, format, args...)
}

func (s *SQLite) CreateWorkspace(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (name, created_at) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return storageErr(err, "create workspace %s", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.ErrCodeAlreadyExists, "workspace %q already exists", name)
	}
	return nil
}

func (s *SQLite) DeleteWorkspace(ctx context.Context, name string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM workspaces WHERE name = ?`, name)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFoundWorkspace(name)
		}
		for _, q := range []string{
			`DELETE FROM collections WHERE workspace = ?`,
			`DELETE FROM documents WHERE workspace = ?`,
			`DELETE FROM graphs WHERE workspace = ?`,
			`DELETE FROM metadata WHERE workspace = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) ListWorkspaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM workspaces ORDER BY name`)
	if err != nil {
		return nil, storageErr(err, "list workspaces")
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr(err, "list workspaces")
		}
		out = append(out, name)
	}
	return out, storageErr(rows.Err(), "list workspaces")
}

func (s *SQLite) WorkspaceExists(ctx context.Context, name string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM workspaces WHERE name = ?`, name)
}

func (s *SQLite) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr(err, "lookup")
	}
	return true, nil
}

func (s *SQLite) requireWorkspace(ctx context.Context, name string) error {
	ok, err := s.WorkspaceExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundWorkspace(name)
	}
	return nil
}

func (s *SQLite) requireTable(ctx context.Context, workspace, name string) error {
	ok, err := s.TableExists(ctx, workspace, name)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundTable(workspace, name)
	}
	return nil
}

func (s *SQLite) TableExists(ctx context.Context, workspace, name string) (bool, error) {
	if err := s.requireWorkspace(ctx, workspace); err != nil {
		return false, err
	}
	return s.exists(ctx, `SELECT 1 FROM collections WHERE workspace = ? AND name = ?`, workspace, name)
}

func (s *SQLite) CreateTable(ctx context.Context, workspace, name string, edge bool) (TableInfo, error) {
	if err := s.requireWorkspace(ctx, workspace); err != nil {
		return TableInfo{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (workspace, name, edge) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		workspace, name, edge)
	if err != nil {
		return TableInfo{}, storageErr(err, "create table %s", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return TableInfo{}, existsTable(workspace, name)
	}
	return TableInfo{Name: name, Edge: edge}, nil
}

func (s *SQLite) ListTables(ctx context.Context, workspace string) ([]TableInfo, error) {
	if err := s.requireWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, edge FROM collections WHERE workspace = ? ORDER BY name`, workspace)
	if err != nil {
		return nil, storageErr(err, "list tables")
	}
	defer rows.Close()
	out := []TableInfo{}
	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Name, &t.Edge); err != nil {
			return nil, storageErr(err, "list tables")
		}
		out = append(out, t)
	}
	return out, storageErr(rows.Err(), "list tables")
}

func (s *SQLite) DeleteTable(ctx context.Context, workspace, name string) error {
	if err := s.requireTable(ctx, workspace, name); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM collections WHERE workspace = ? AND name = ?`,
			`DELETE FROM documents WHERE workspace = ? AND collection = ?`,
			`DELETE FROM metadata WHERE workspace = ? AND collection = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, workspace, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) ReadAllRows(ctx context.Context, workspace, name string) (table.Rows, error) {
	if err := s.requireTable(ctx, workspace, name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE workspace = ? AND collection = ? ORDER BY seq`,
		workspace, name)
	if err != nil {
		return nil, storageErr(err, "read rows from %s", name)
	}
	defer rows.Close()
	out := table.Rows{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, storageErr(err, "read rows from %s", name)
		}
		var row table.Row
		if err := json.Unmarshal([]byte(body), &row); err != nil {
			return nil, errs.Wrap(errs.ErrCodeStorage, err, "decode row in %s", name)
		}
		out = append(out, row)
	}
	return out, storageErr(rows.Err(), "read rows from %s", name)
}

func (s *SQLite) InsertRows(ctx context.Context, workspace, name string, rows table.Rows) ([]Inserted, error) {
	if err := s.requireTable(ctx, workspace, name); err != nil {
		return nil, err
	}
	prepared, ins, err := prepareRows(name, rows)
	if err != nil {
		return nil, err
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO documents (workspace, collection, key, body) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, row := range prepared {
			body, err := json.Marshal(row)
			if err != nil {
				return errs.Wrap(errs.ErrCodeInvalidInput, err, "encode row %d", i)
			}
			res, err := stmt.ExecContext(ctx, workspace, name, ins[i].Key, string(body))
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return errs.New(errs.ErrCodeAlreadyExists, "key %q already exists in table %q", ins[i].Key, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ins, nil
}

func (s *SQLite) TableKeys(ctx context.Context, workspace, name string) (KeySet, error) {
	if err := s.requireTable(ctx, workspace, name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM documents WHERE workspace = ? AND collection = ?`, workspace, name)
	if err != nil {
		return nil, storageErr(err, "read keys of %s", name)
	}
	defer rows.Close()
	out := make(KeySet)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, storageErr(err, "read keys of %s", name)
		}
		out[key] = struct{}{}
	}
	return out, storageErr(rows.Err(), "read keys of %s", name)
}

func (s *SQLite) GraphExists(ctx context.Context, workspace, name string) (bool, error) {
	if err := s.requireWorkspace(ctx, workspace); err != nil {
		return false, err
	}
	return s.exists(ctx, `SELECT 1 FROM graphs WHERE workspace = ? AND name = ?`, workspace, name)
}

func (s *SQLite) CreateGraph(ctx context.Context, workspace, name, edgeTable string, fromTables, toTables []string) (*Graph, error) {
	if err := s.requireWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	from, _ := json.Marshal(nonNil(fromTables))
	to, _ := json.Marshal(nonNil(toTables))
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO graphs (workspace, name, edge_table, from_tables, to_tables) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		workspace, name, edgeTable, string(from), string(to))
	if err != nil {
		return nil, storageErr(err, "create graph %s", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, existsGraph(workspace, name)
	}
	return &Graph{Name: name, EdgeTable: edgeTable, FromTables: nonNil(fromTables), ToTables: nonNil(toTables)}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

func scanGraph(scan func(...any) error) (*Graph, error) {
	var g Graph
	var from, to string
	if err := scan(&g.Name, &g.EdgeTable, &from, &to); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(from), &g.FromTables); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(to), &g.ToTables); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *SQLite) GetGraph(ctx context.Context, workspace, name string) (*Graph, error) {
	if err := s.requireWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT name, edge_table, from_tables, to_tables FROM graphs WHERE workspace = ? AND name = ?`,
		workspace, name)
	g, err := scanGraph(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundGraph(workspace, name)
	}
	if err != nil {
		return nil, storageErr(err, "get graph %s", name)
	}
	return g, nil
}

func (s *SQLite) ListGraphs(ctx context.Context, workspace string) ([]*Graph, error) {
	if err := s.requireWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, edge_table, from_tables, to_tables FROM graphs WHERE workspace = ? ORDER BY name`,
		workspace)
	if err != nil {
		return nil, storageErr(err, "list graphs")
	}
	defer rows.Close()
	out := []*Graph{}
	for rows.Next() {
		g, err := scanGraph(rows.Scan)
		if err != nil {
			return nil, storageErr(err, "list graphs")
		}
		out = append(out, g)
	}
	return out, storageErr(rows.Err(), "list graphs")
}

func (s *SQLite) DeleteGraph(ctx context.Context, workspace, name string) error {
	if err := s.requireWorkspace(ctx, workspace); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE workspace = ? AND name = ?`, workspace, name)
	if err != nil {
		return storageErr(err, "delete graph %s", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundGraph(workspace, name)
	}
	return nil
}

func (s *SQLite) GetMetadata(ctx context.Context, workspace, name string) (*metadata.Record, error) {
	if err := s.requireTable(ctx, workspace, name); err != nil {
		return nil, err
	}
	empty, _ := json.Marshal(metadata.Empty(name))
	// Insert-if-absent keeps concurrent first reads from creating two records.
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (workspace, collection, body) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		workspace, name, string(empty)); err != nil {
		return nil, storageErr(err, "create metadata for %s", name)
	}
	var body string
	if err := s.db.QueryRowContext(ctx,
		`SELECT body FROM metadata WHERE workspace = ? AND collection = ?`, workspace, name).Scan(&body); err != nil {
		return nil, storageErr(err, "read metadata for %s", name)
	}
	var rec metadata.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "decode metadata for %s", name)
	}
	return &rec, nil
}

func (s *SQLite) SetMetadata(ctx context.Context, workspace, name string, rec *metadata.Record) (*metadata.Record, error) {
	if err := s.requireTable(ctx, workspace, name); err != nil {
		return nil, err
	}
	stored := rec.Clone()
	stored.Table = name
	body, err := json.Marshal(stored)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidMetadata, err, "encode metadata")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (workspace, collection, body) VALUES (?, ?, ?)
		 ON CONFLICT (workspace, collection) DO UPDATE SET body = excluded.body`,
		workspace, name, string(body)); err != nil {
		return nil, storageErr(err, "write metadata for %s", name)
	}
	return stored, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return storageErr(err, "transaction")
	}
	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit")
	}
	return nil
}

var _ Store = (*SQLite)(nil)
