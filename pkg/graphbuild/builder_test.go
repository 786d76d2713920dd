package graphbuild

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/store"
	"github.com/matzehuels/multinet/pkg/table"
	"github.com/matzehuels/multinet/pkg/validation"
)

// fixture creates a workspace with the given tables and rows.
func fixture(t *testing.T, tables map[string]table.Rows, edges map[string]table.Rows) *store.Memory {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.CreateWorkspace(ctx, "ws"))
	for name, rows := range tables {
		_, err := s.CreateTable(ctx, "ws", name, false)
		require.NoError(t, err)
		if len(rows) > 0 {
			_, err = s.InsertRows(ctx, "ws", name, rows)
			require.NoError(t, err)
		}
	}
	for name, rows := range edges {
		_, err := s.CreateTable(ctx, "ws", name, true)
		require.NoError(t, err)
		if len(rows) > 0 {
			_, err = s.InsertRows(ctx, "ws", name, rows)
			require.NoError(t, err)
		}
	}
	return s
}

func TestCreateGraph(t *testing.T) {
	ctx := context.Background()
	s := fixture(t,
		map[string]table.Rows{
			"people": {{"_key": "1"}, {"_key": "2"}},
			"places": {{"_key": "9"}},
		},
		map[string]table.Rows{
			"visits": {
				{"_from": "people/1", "_to": "places/9"},
				{"_from": "people/2", "_to": "places/9"},
				{"_from": "people/1", "_to": "people/2"},
			},
		})
	b := NewBuilder(s, nil)

	g, err := b.Create(ctx, "ws", "travel", "visits")
	require.NoError(t, err)
	assert.Equal(t, "visits", g.EdgeTable)
	assert.Equal(t, []string{"people"}, g.FromTables)
	assert.Equal(t, []string{"people", "places"}, g.ToTables)

	_, err = b.Create(ctx, "ws", "travel", "visits")
	assert.True(t, errs.Is(err, errs.ErrCodeAlreadyExists), "got %v", err)
}

func TestUndefinedKeys(t *testing.T) {
	ctx := context.Background()
	s := fixture(t,
		map[string]table.Rows{
			"people": {{"_key": "1"}},
			"places": {{"_key": "3"}},
		},
		map[string]table.Rows{
			"visits": {{"_from": "people/1", "_to": "places/9"}},
		})
	b := NewBuilder(s, nil)

	_, err := b.Create(ctx, "ws", "travel", "visits")
	list, ok := validation.Errors(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, []validation.Error{validation.UndefinedKeys("places", []string{"9"})}, list)

	exists, err := s.GraphExists(ctx, "ws", "travel")
	require.NoError(t, err)
	assert.False(t, exists, "no graph may be created when validation fails")
}

func TestUndefinedTable(t *testing.T) {
	ctx := context.Background()
	s := fixture(t,
		map[string]table.Rows{"people": {{"_key": "1"}}},
		map[string]table.Rows{"visits": {
			{"_from": "people/1", "_to": "places/9"},
			{"_from": "people/1", "_to": "places/8"},
		}})
	b := NewBuilder(s, nil)

	_, err := b.Create(ctx, "ws", "travel", "visits")
	list, ok := validation.Errors(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, []validation.Error{validation.UndefinedTable("places")}, list)
}

func TestCheckAggregates(t *testing.T) {
	ctx := context.Background()
	s := fixture(t,
		map[string]table.Rows{
			"a": {{"_key": "1"}},
			"b": {{"_key": "1"}},
		},
		map[string]table.Rows{"e": {
			{"_from": "a/1", "_to": "b/3"},
			{"_from": "a/2", "_to": "b/4"},
			{"_from": "a/1", "_to": "c/1"},
			{"_from": "a/1", "_to": "b/4"},
		}})
	b := NewBuilder(s, nil)

	_, err := b.Check(ctx, "ws", "e")
	list, ok := validation.Errors(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, []validation.Error{
		validation.UndefinedKeys("a", []string{"2"}),
		validation.UndefinedKeys("b", []string{"3", "4"}),
		validation.UndefinedTable("c"),
	}, list)
}

func TestCheckInvalidReferences(t *testing.T) {
	ctx := context.Background()
	s := fixture(t,
		map[string]table.Rows{"people": {{"_key": "1"}}},
		map[string]table.Rows{"bad": {
			{"_from": "people/1", "_to": "people/1"},
			{"_from": "badvalue", "_to": "people/1"},
		}})
	b := NewBuilder(s, nil)

	_, err := b.Check(ctx, "ws", "bad")
	list, ok := validation.Errors(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, []validation.Error{validation.InvalidRow(3, "_from")}, list)
}

func TestCheckPlan(t *testing.T) {
	s := fixture(t,
		map[string]table.Rows{"n": {{"_key": "x"}}},
		map[string]table.Rows{"e": {{"_from": "n/x", "_to": "n/x"}}})
	plan, err := NewBuilder(s, nil).Check(context.Background(), "ws", "e")
	require.NoError(t, err)
	assert.Equal(t, &Plan{EdgeTable: "e", FromTables: []string{"n"}, ToTables: []string{"n"}, Edges: 1}, plan)
}

func TestCreateMissingEdgeTable(t *testing.T) {
	s := fixture(t, nil, nil)
	_, err := NewBuilder(s, nil).Create(context.Background(), "ws", "g", "ghost")
	assert.True(t, errs.Is(err, errs.ErrCodeNotFound), "got %v", err)
}

func TestCreateInvalidName(t *testing.T) {
	s := fixture(t, nil, nil)
	_, err := NewBuilder(s, nil).Create(context.Background(), "ws", "a/b", "e")
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidName), "got %v", err)
}

// failingStore lets CreateGraph fail after a successful check.
type failingStore struct {
	*store.Memory
	err error
}

func (f failingStore) CreateGraph(ctx context.Context, workspace, name, edgeTable string, from, to []string) (*store.Graph, error) {
	return nil, f.err
}

func TestCreateStorageFailure(t *testing.T) {
	mem := fixture(t,
		map[string]table.Rows{"n": {{"_key": "x"}}},
		map[string]table.Rows{"e": {{"_from": "n/x", "_to": "n/x"}}})

	b := NewBuilder(failingStore{Memory: mem, err: errors.New("write conflict")}, nil)
	_, err := b.Create(context.Background(), "ws", "g", "e")
	assert.True(t, errs.Is(err, errs.ErrCodeGraphCreation), "got %v", err)
	_, isValidation := validation.Errors(err)
	assert.False(t, isValidation)

	b = NewBuilder(failingStore{Memory: mem, err: errs.New(errs.ErrCodeAlreadyExists, "raced")}, nil)
	_, err = b.Create(context.Background(), "ws", "g", "e")
	assert.True(t, errs.Is(err, errs.ErrCodeAlreadyExists), "got %v", err)
}
