package store

import (
	"context"
	"sort"
	"sync"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/table"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	workspaces map[string]*memWorkspace
}

type memWorkspace struct {
	tables   map[string]*memTable
	graphs   map[string]*Graph
	metadata map[string]*metadata.Record
}

type memTable struct {
	edge bool
	rows table.Rows
	keys KeySet
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{workspaces: make(map[string]*memWorkspace)}
}

func (m *Memory) CreateWorkspace(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[name]; ok {
		return errs.New(errs.ErrCodeAlreadyExists, "workspace %q already exists", name)
	}
	m.workspaces[name] = &memWorkspace{
		tables:   make(map[string]*memTable),
		graphs:   make(map[string]*Graph),
		metadata: make(map[string]*metadata.Record),
	}
	return nil
}

func (m *Memory) DeleteWorkspace(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[name]; !ok {
		return notFoundWorkspace(name)
	}
	delete(m.workspaces, name)
	return nil
}

func (m *Memory) ListWorkspaces(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.workspaces))
	for name := range m.workspaces {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) WorkspaceExists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.workspaces[name]
	return ok, nil
}

// workspace must be called with m.mu held.
func (m *Memory) workspace(name string) (*memWorkspace, error) {
	ws, ok := m.workspaces[name]
	if !ok {
		return nil, notFoundWorkspace(name)
	}
	return ws, nil
}

// table must be called with m.mu held.
func (m *Memory) table(workspace, name string) (*memWorkspace, *memTable, error) {
	ws, err := m.workspace(workspace)
	if err != nil {
		return nil, nil, err
	}
	t, ok := ws.tables[name]
	if !ok {
		return nil, nil, notFoundTable(workspace, name)
	}
	return ws, t, nil
}

func (m *Memory) TableExists(ctx context.Context, workspace, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, err := m.workspace(workspace)
	if err != nil {
		return false, err
	}
	_, ok := ws.tables[name]
	return ok, nil
}

func (m *Memory) CreateTable(ctx context.Context, workspace, name string, edge bool) (TableInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, err := m.workspace(workspace)
	if err != nil {
		return TableInfo{}, err
	}
	if _, ok := ws.tables[name]; ok {
		return TableInfo{}, existsTable(workspace, name)
	}
	ws.tables[name] = &memTable{edge: edge, keys: make(KeySet)}
	return TableInfo{Name: name, Edge: edge}, nil
}

func (m *Memory) ListTables(ctx context.Context, workspace string) ([]TableInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, err := m.workspace(workspace)
	if err != nil {
		return nil, err
	}
	out := make([]TableInfo, 0, len(ws.tables))
	for name, t := range ws.tables {
		out = append(out, TableInfo{Name: name, Edge: t.edge})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteTable(ctx context.Context, workspace, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, _, err := m.table(workspace, name)
	if err != nil {
		return err
	}
	delete(ws.tables, name)
	delete(ws.metadata, name)
	return nil
}

func (m *Memory) ReadAllRows(ctx context.Context, workspace, name string) (table.Rows, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, t, err := m.table(workspace, name)
	if err != nil {
		return nil, err
	}
	out := t.rows.Clone()
	if out == nil {
		out = table.Rows{}
	}
	return out, nil
}

func (m *Memory) InsertRows(ctx context.Context, workspace, name string, rows table.Rows) ([]Inserted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, t, err := m.table(workspace, name)
	if err != nil {
		return nil, err
	}
	prepared, ins, err := prepareRows(name, rows)
	if err != nil {
		return nil, err
	}
	for _, in := range ins {
		if t.keys.Has(in.Key) {
			return nil, errs.New(errs.ErrCodeAlreadyExists, "key %q already exists in table %q", in.Key, name)
		}
	}
	for i, row := range prepared {
		t.rows = append(t.rows, row)
		t.keys[ins[i].Key] = struct{}{}
	}
	return ins, nil
}

func (m *Memory) TableKeys(ctx context.Context, workspace, name string) (KeySet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, t, err := m.table(workspace, name)
	if err != nil {
		return nil, err
	}
	out := make(KeySet, len(t.keys))
	for k := range t.keys {
		out[k] = struct{}{}
	}
	return out, nil
}

func (m *Memory) GraphExists(ctx context.Context, workspace, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, err := m.workspace(workspace)
	if err != nil {
		return false, err
	}
	_, ok := ws.graphs[name]
	return ok, nil
}

func (m *Memory) CreateGraph(ctx context.Context, workspace, name, edgeTable string, fromTables, toTables []string) (*Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, err := m.workspace(workspace)
	if err != nil {
		return nil, err
	}
	if _, ok := ws.graphs[name]; ok {
		return nil, existsGraph(workspace, name)
	}
	g := &Graph{
		Name:       name,
		EdgeTable:  edgeTable,
		FromTables: append([]string{}, fromTables...),
		ToTables:   append([]string{}, toTables...),
	}
	ws.graphs[name] = g
	out := *g
	return &out, nil
}

func (m *Memory) GetGraph(ctx context.Context, workspace, name string) (*Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, err := m.workspace(workspace)
	if err != nil {
		return nil, err
	}
	g, ok := ws.graphs[name]
	if !ok {
		return nil, notFoundGraph(workspace, name)
	}
	out := *g
	return &out, nil
}

func (m *Memory) ListGraphs(ctx context.Context, workspace string) ([]*Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, err := m.workspace(workspace)
	if err != nil {
		return nil, err
	}
	out := make([]*Graph, 0, len(ws.graphs))
	for _, g := range ws.graphs {
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteGraph(ctx context.Context, workspace, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, err := m.workspace(workspace)
	if err != nil {
		return err
	}
	if _, ok := ws.graphs[name]; !ok {
		return notFoundGraph(workspace, name)
	}
	delete(ws.graphs, name)
	return nil
}

func (m *Memory) GetMetadata(ctx context.Context, workspace, name string) (*metadata.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, _, err := m.table(workspace, name)
	if err != nil {
		return nil, err
	}
	rec, ok := ws.metadata[name]
	if !ok {
		rec = metadata.Empty(name)
		ws.metadata[name] = rec
	}
	return rec.Clone(), nil
}

func (m *Memory) SetMetadata(ctx context.Context, workspace, name string, rec *metadata.Record) (*metadata.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, _, err := m.table(workspace, name)
	if err != nil {
		return nil, err
	}
	stored := rec.Clone()
	stored.Table = name
	ws.metadata[name] = stored
	return stored.Clone(), nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
