// Package graphbuild creates graph definitions from edge tables.
//
// A graph is only created once every _from and _to reference of its edge
// table resolves to an existing row. The check reads the edge table once,
// groups referenced keys by table, then fetches each table's key set
// concurrently. Any unresolved reference fails the whole operation and
// nothing is written.
package graphbuild

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/observability"
	"github.com/matzehuels/multinet/pkg/store"
	"github.com/matzehuels/multinet/pkg/table"
	"github.com/matzehuels/multinet/pkg/validation"
)

// DefaultConcurrency bounds parallel key-set fetches.
const DefaultConcurrency = 8

// GraphStore is the storage the builder reads and writes.
type GraphStore interface {
	GraphExists(ctx context.Context, workspace, name string) (bool, error)
	TableExists(ctx context.Context, workspace, name string) (bool, error)
	ReadAllRows(ctx context.Context, workspace, name string) (table.Rows, error)
	TableKeys(ctx context.Context, workspace, name string) (store.KeySet, error)
	CreateGraph(ctx context.Context, workspace, name, edgeTable string, fromTables, toTables []string) (*store.Graph, error)
}

// Builder validates edge tables and creates graphs.
type Builder struct {
	Store       GraphStore
	Logger      *log.Logger
	Concurrency int
}

// NewBuilder creates a builder. A nil logger uses the default logger.
func NewBuilder(s GraphStore, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{Store: s, Logger: logger, Concurrency: DefaultConcurrency}
}

// Plan is the outcome of a successful check.
type Plan struct {
	EdgeTable  string   `json:"edge_table"`
	FromTables []string `json:"from_tables"`
	ToTables   []string `json:"to_tables"`
	Edges      int      `json:"edges"`
}

// Create validates edgeTable and stores graph name over it.
//
// It fails with ALREADY_EXISTS when the graph name is taken, NOT_FOUND when
// the edge table is missing, a [validation.Failed] listing every unresolved
// reference, or GRAPH_CREATION when the backend rejects the definition.
func (b *Builder) Create(ctx context.Context, workspace, name, edgeTable string) (g *store.Graph, err error) {
	start := time.Now()
	defer func() {
		observability.Graph().OnGraphCreate(ctx, workspace, name, time.Since(start), err)
	}()

	if err := errs.ValidateName("graph", name); err != nil {
		return nil, err
	}
	exists, err := b.Store.GraphExists(ctx, workspace, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.New(errs.ErrCodeAlreadyExists, "graph %q already exists in workspace %q", name, workspace)
	}

	plan, err := b.Check(ctx, workspace, edgeTable)
	if err != nil {
		return nil, err
	}

	g, err = b.Store.CreateGraph(ctx, workspace, name, plan.EdgeTable, plan.FromTables, plan.ToTables)
	if err != nil {
		if errs.Is(err, errs.ErrCodeAlreadyExists) {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrCodeGraphCreation, err, "create graph %q", name)
	}
	b.Logger.Info("graph created",
		"workspace", workspace,
		"graph", name,
		"edges", plan.Edges,
		"node_tables", len(g.NodeTables()),
		"duration", time.Since(start))
	return g, nil
}

// refs holds the references of one edge table.
type refs struct {
	keys map[string]map[string]struct{}
	from map[string]struct{}
	to   map[string]struct{}
}

// Check validates edgeTable without writing anything.
func (b *Builder) Check(ctx context.Context, workspace, edgeTable string) (*Plan, error) {
	exists, err := b.Store.TableExists(ctx, workspace, edgeTable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.New(errs.ErrCodeNotFound, "edge table %q not found in workspace %q", edgeTable, workspace)
	}
	rows, err := b.Store.ReadAllRows(ctx, workspace, edgeTable)
	if err != nil {
		return nil, err
	}

	r, problems := collectRefs(rows)
	missing, err := b.resolve(ctx, workspace, r.keys)
	if err != nil {
		return nil, err
	}
	problems = append(problems, missing...)
	observability.Graph().OnGraphCheck(ctx, workspace, edgeTable, len(problems))
	if err := validation.Fail(problems); err != nil {
		return nil, err
	}

	return &Plan{
		EdgeTable:  edgeTable,
		FromTables: sortedSet(r.from),
		ToTables:   sortedSet(r.to),
		Edges:      len(rows),
	}, nil
}

// collectRefs groups referenced keys by table. Rows whose endpoints are not
// table/key references are reported as InvalidRow.
func collectRefs(rows table.Rows) (refs, []validation.Error) {
	r := refs{
		keys: make(map[string]map[string]struct{}),
		from: make(map[string]struct{}),
		to:   make(map[string]struct{}),
	}
	var problems []validation.Error
	for i, row := range rows {
		var bad []string
		for _, side := range []struct {
			field string
			set   map[string]struct{}
		}{{table.FromField, r.from}, {table.ToField, r.to}} {
			s, _ := row.String(side.field)
			ref, err := table.ParseRef(s)
			if err != nil {
				bad = append(bad, side.field)
				continue
			}
			side.set[ref.Table] = struct{}{}
			if r.keys[ref.Table] == nil {
				r.keys[ref.Table] = make(map[string]struct{})
			}
			r.keys[ref.Table][ref.Key] = struct{}{}
		}
		if len(bad) > 0 {
			problems = append(problems, validation.InvalidRow(table.FileRow(i), bad...))
		}
	}
	return r, problems
}

// resolve checks every referenced table concurrently and returns one error
// per missing table or per table with missing keys, ordered by table name.
func (b *Builder) resolve(ctx context.Context, workspace string, wanted map[string]map[string]struct{}) ([]validation.Error, error) {
	names := make([]string, 0, len(wanted))
	for name := range wanted {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]*validation.Error, len(names))
	g, gctx := errgroup.WithContext(ctx)
	limit := b.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)
	for i, name := range names {
		g.Go(func() error {
			exists, err := b.Store.TableExists(gctx, workspace, name)
			if err != nil {
				return err
			}
			if !exists {
				e := validation.UndefinedTable(name)
				results[i] = &e
				return nil
			}
			have, err := b.Store.TableKeys(gctx, workspace, name)
			if err != nil {
				return err
			}
			var absent []string
			for key := range wanted[name] {
				if !have.Has(key) {
					absent = append(absent, key)
				}
			}
			if len(absent) > 0 {
				sort.Strings(absent)
				e := validation.UndefinedKeys(name, absent)
				results[i] = &e
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []validation.Error
	for _, e := range results {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
