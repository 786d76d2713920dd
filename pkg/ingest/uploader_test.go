package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/multinet/pkg/cache"
	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/store"
	"github.com/matzehuels/multinet/pkg/table"
	"github.com/matzehuels/multinet/pkg/validation"
)

func newTestUploader(t *testing.T) (*Uploader, *store.Memory, *metadata.Service) {
	t.Helper()
	s := store.NewMemory()
	require.NoError(t, s.CreateWorkspace(context.Background(), "ws"))
	meta := metadata.NewService(s, cache.NewMemoryCache(), nil)
	return NewUploader(s, meta, nil), s, meta
}

func TestUploadCSV(t *testing.T) {
	ctx := context.Background()
	u, s, meta := newTestUploader(t)

	cols := []metadata.Column{{Key: "age", Type: metadata.TypeNumber}}
	res, err := u.UploadCSV(ctx, "ws", "people", []byte("_key,age\na,1\nb,2\n"), CSVOptions{Columns: cols})
	require.NoError(t, err)
	require.Len(t, res.Tables, 1)
	assert.Equal(t, 2, res.RowCount())
	assert.Equal(t, store.Inserted{ID: "people/a", Key: "a"}, res.Tables[0].Inserted[0])

	rows, err := s.ReadAllRows(ctx, "ws", "people")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows[1]["age"])

	rec, err := meta.Get(ctx, "ws", "people")
	require.NoError(t, err)
	assert.Equal(t, cols, rec.Columns)

	_, err = u.UploadCSV(ctx, "ws", "people", []byte("_key\nc\n"), CSVOptions{})
	assert.True(t, errs.Is(err, errs.ErrCodeAlreadyExists), "got %v", err)
	_, isValidation := validation.Errors(err)
	assert.False(t, isValidation, "name collision must not be a validation error")
}

func TestUploadValidationWritesNothing(t *testing.T) {
	ctx := context.Background()
	u, s, _ := newTestUploader(t)

	_, err := u.UploadCSV(ctx, "ws", "people", []byte("_key\na\na\n"), CSVOptions{})
	list, ok := validation.Errors(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, []validation.Error{validation.DuplicateKey("a")}, list)

	exists, err := s.TableExists(ctx, "ws", "people")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = u.UploadCSV(ctx, "ws", "people", []byte("_key,age\na,x\n"),
		CSVOptions{Columns: []metadata.Column{{Key: "age", Type: metadata.TypeNumber}}})
	list, ok = validation.Errors(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, validation.KindIncompatibleMetadata, list[0].Kind)

	exists, err = s.TableExists(ctx, "ws", "people")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUploadD3(t *testing.T) {
	ctx := context.Background()
	u, s, _ := newTestUploader(t)

	doc := `{"nodes": [{"id": "a"}, {"id": "b"}], "links": [{"source": "a", "target": "b"}]}`
	res, err := u.UploadD3(ctx, "ws", "net", []byte(doc))
	require.NoError(t, err)
	require.Len(t, res.Tables, 2)

	tables, err := s.ListTables(ctx, "ws")
	require.NoError(t, err)
	assert.Equal(t, []store.TableInfo{{Name: "net_links", Edge: true}, {Name: "net_nodes"}}, tables)

	links, err := s.ReadAllRows(ctx, "ws", "net_links")
	require.NoError(t, err)
	assert.Equal(t, "net_nodes/a", links[0][table.FromField])
}

func TestUploadNewickAndNested(t *testing.T) {
	ctx := context.Background()
	u, s, _ := newTestUploader(t)

	_, err := u.UploadNewick(ctx, "ws", "phylo", []byte("((A,B)C,D)E;"))
	require.NoError(t, err)
	keys, err := s.TableKeys(ctx, "ws", "phylo_nodes")
	require.NoError(t, err)
	assert.Len(t, keys, 5)

	_, err = u.UploadNestedJSON(ctx, "ws", "org", []byte(`{"children": [{}, {}]}`))
	require.NoError(t, err)
	leaves, err := s.ReadAllRows(ctx, "ws", "org_leaf_nodes")
	require.NoError(t, err)
	assert.Len(t, leaves, 2)
}

func TestUploadDecodeError(t *testing.T) {
	u, _, _ := newTestUploader(t)
	_, err := u.UploadD3(context.Background(), "ws", "net", []byte{0xff, 0x00, 0x7b})
	assert.True(t, errs.Is(err, errs.ErrCodeDecode), "got %v", err)
}

func TestUploadPrecheckStopsBeforeWrites(t *testing.T) {
	ctx := context.Background()
	u, s, _ := newTestUploader(t)

	_, err := s.CreateTable(ctx, "ws", "net_links", true)
	require.NoError(t, err)

	doc := `{"nodes": [{"id": "a"}], "links": [{"source": "a", "target": "a"}]}`
	_, err = u.UploadD3(ctx, "ws", "net", []byte(doc))
	assert.True(t, errs.Is(err, errs.ErrCodeAlreadyExists), "got %v", err)

	exists, err := s.TableExists(ctx, "ws", "net_nodes")
	require.NoError(t, err)
	assert.False(t, exists, "node table must not be created when the link table name is taken")
}

func TestUploadUnknownWorkspace(t *testing.T) {
	u, _, _ := newTestUploader(t)
	_, err := u.UploadCSV(context.Background(), "nope", "people", []byte("_key\na\n"), CSVOptions{})
	assert.True(t, errs.Is(err, errs.ErrCodeNotFound), "got %v", err)
}

// failingInserts rejects InsertRows for one table.
type failingInserts struct {
	*store.Memory
	table string
}

func (f failingInserts) InsertRows(ctx context.Context, workspace, name string, rows table.Rows) ([]store.Inserted, error) {
	if name == f.table {
		return nil, errs.New(errs.ErrCodeStorage, "insert into %s refused", name)
	}
	return f.Memory.InsertRows(ctx, workspace, name, rows)
}

type failingMetadata struct{ invalidated []string }

func (f *failingMetadata) Set(context.Context, string, string, *metadata.Record) (*metadata.Record, error) {
	return nil, errs.New(errs.ErrCodeStorage, "metadata write refused")
}

func (f *failingMetadata) Invalidate(_ context.Context, _, table string) {
	f.invalidated = append(f.invalidated, table)
}

func TestUploadRollsBackCreatedTables(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.CreateWorkspace(ctx, "ws"))
	u := NewUploader(failingInserts{Memory: mem, table: "tree_edges"}, nil, nil)

	tree := `{"node_data": {"_key": "root"}, "children": [{"node_data": {"_key": "leaf"}}]}`
	_, err := u.UploadNestedJSON(ctx, "ws", "tree", []byte(tree))
	assert.True(t, errs.Is(err, errs.ErrCodeStorage), "got %v", err)

	tables, err := mem.ListTables(ctx, "ws")
	require.NoError(t, err)
	assert.Empty(t, tables, "tables created before the failure must be dropped")
}

func TestUploadRollsBackOnMetadataFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.CreateWorkspace(ctx, "ws"))
	meta := &failingMetadata{}
	u := NewUploader(mem, meta, nil)

	cols := []metadata.Column{{Key: "age", Type: metadata.TypeNumber}}
	_, err := u.UploadCSV(ctx, "ws", "people", []byte("_key,age\na,1\n"), CSVOptions{Columns: cols})
	require.Error(t, err)

	exists, err := mem.TableExists(ctx, "ws", "people")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, []string{"people"}, meta.invalidated)
}

func TestUploadNonFiniteNumberIntoSQLite(t *testing.T) {
	ctx := context.Background()
	lite, err := store.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })
	require.NoError(t, lite.CreateWorkspace(ctx, "ws"))
	u := NewUploader(lite, metadata.NewService(lite, nil, nil), nil)

	cols := []metadata.Column{{Key: "x", Type: metadata.TypeNumber}}
	_, err = u.UploadCSV(ctx, "ws", "people", []byte("_key,x\na,NaN\nb,+Inf\n"), CSVOptions{Columns: cols})
	list, ok := validation.Errors(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 2, validation.Count(list, validation.KindIncompatibleMetadata))

	exists, err := lite.TableExists(ctx, "ws", "people")
	require.NoError(t, err)
	assert.False(t, exists)
}
