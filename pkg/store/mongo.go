package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/table"
)

// System collections inside each workspace database. Table names must start
// with a letter, so they never collide with these.
const (
	mongoTablesColl   = "_tables"
	mongoGraphsColl   = "_graphs"
	mongoMetadataColl = "_metadata"

	mongoWorkspacesColl = "workspaces"

	// mongoNamespaceExists is the server code for creating an existing collection.
	mongoNamespaceExists = 48
)

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI string `toml:"uri"`
	// Prefix names the registry database and prefixes every workspace database.
	Prefix string `toml:"prefix"`
}

// Mongo maps each workspace to its own database and each table to a
// collection. Row keys are stored as the document _id, so key uniqueness is
// enforced by the server.
type Mongo struct {
	client *mongo.Client
	prefix string
}

// OpenMongo connects to MongoDB and verifies the connection.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "multinet"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "connect to mongodb")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "ping mongodb")
	}
	return &Mongo{client: client, prefix: cfg.Prefix}, nil
}

func (m *Mongo) registry() *mongo.Collection {
	return m.client.Database(m.prefix).Collection(mongoWorkspacesColl)
}

func (m *Mongo) db(workspace string) *mongo.Database {
	return m.client.Database(m.prefix + "_" + workspace)
}

func mongoErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(errs.ErrCodeStorage, err, format, args...)
}

func (m *Mongo) CreateWorkspace(ctx context.Context, name string) error {
	_, err := m.registry().InsertOne(ctx, bson.M{"_id": name, "created_at": time.Now().UTC()})
	if mongo.IsDuplicateKeyError(err) {
		return errs.New(errs.ErrCodeAlreadyExists, "workspace %q already exists", name)
	}
	return mongoErr(err, "create workspace %s", name)
}

func (m *Mongo) DeleteWorkspace(ctx context.Context, name string) error {
	res, err := m.registry().DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return mongoErr(err, "delete workspace %s", name)
	}
	if res.DeletedCount == 0 {
		return notFoundWorkspace(name)
	}
	return mongoErr(m.db(name).Drop(ctx), "drop workspace %s", name)
}

func (m *Mongo) ListWorkspaces(ctx context.Context) ([]string, error) {
	cur, err := m.registry().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mongoErr(err, "list workspaces")
	}
	var docs []struct {
		Name string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr(err, "list workspaces")
	}
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out, nil
}

func (m *Mongo) WorkspaceExists(ctx context.Context, name string) (bool, error) {
	n, err := m.registry().CountDocuments(ctx, bson.M{"_id": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, mongoErr(err, "lookup workspace %s", name)
	}
	return n > 0, nil
}

func (m *Mongo) requireWorkspace(ctx context.Context, name string) error {
	ok, err := m.WorkspaceExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundWorkspace(name)
	}
	return nil
}

func (m *Mongo) requireTable(ctx context.Context, workspace, name string) error {
	ok, err := m.TableExists(ctx, workspace, name)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundTable(workspace, name)
	}
	return nil
}

func (m *Mongo) TableExists(ctx context.Context, workspace, name string) (bool, error) {
	if err := m.requireWorkspace(ctx, workspace); err != nil {
		return false, err
	}
	n, err := m.db(workspace).Collection(mongoTablesColl).CountDocuments(ctx, bson.M{"_id": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, mongoErr(err, "lookup table %s", name)
	}
	return n > 0, nil
}

func (m *Mongo) CreateTable(ctx context.Context, workspace, name string, edge bool) (TableInfo, error) {
	if err := m.requireWorkspace(ctx, workspace); err != nil {
		return TableInfo{}, err
	}
	info := TableInfo{Name: name, Edge: edge}
	db := m.db(workspace)
	// The registry insert is the create-if-absent point; _id is unique.
	if _, err := db.Collection(mongoTablesColl).InsertOne(ctx, info); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return TableInfo{}, existsTable(workspace, name)
		}
		return TableInfo{}, mongoErr(err, "register table %s", name)
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		var ce mongo.CommandError
		if !errors.As(err, &ce) || ce.Code != mongoNamespaceExists {
			return TableInfo{}, mongoErr(err, "create collection %s", name)
		}
	}
	return info, nil
}

func (m *Mongo) ListTables(ctx context.Context, workspace string) ([]TableInfo, error) {
	if err := m.requireWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	cur, err := m.db(workspace).Collection(mongoTablesColl).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mongoErr(err, "list tables")
	}
	out := []TableInfo{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr(err, "list tables")
	}
	return out, nil
}

func (m *Mongo) DeleteTable(ctx context.Context, workspace, name string) error {
	if err := m.requireTable(ctx, workspace, name); err != nil {
		return err
	}
	db := m.db(workspace)
	if err := db.Collection(name).Drop(ctx); err != nil {
		return mongoErr(err, "drop table %s", name)
	}
	if _, err := db.Collection(mongoMetadataColl).DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return mongoErr(err, "delete metadata of %s", name)
	}
	_, err := db.Collection(mongoTablesColl).DeleteOne(ctx, bson.M{"_id": name})
	return mongoErr(err, "unregister table %s", name)
}

func (m *Mongo) ReadAllRows(ctx context.Context, workspace, name string) (table.Rows, error) {
	if err := m.requireTable(ctx, workspace, name); err != nil {
		return nil, err
	}
	cur, err := m.db(workspace).Collection(name).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_seq", Value: 1}}))
	if err != nil {
		return nil, mongoErr(err, "read rows from %s", name)
	}
	defer cur.Close(ctx)
	out := table.Rows{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, mongoErr(err, "decode row in %s", name)
		}
		out = append(out, fromDocument(name, doc))
	}
	return out, mongoErr(cur.Err(), "read rows from %s", name)
}

// fromDocument converts a stored document back into a row. The Mongo _id
// holds the row key; the row's _id is the canonical reference.
func fromDocument(name string, doc bson.M) table.Row {
	row := make(table.Row, len(doc))
	for k, v := range doc {
		switch k {
		case "_id", "_seq":
			continue
		}
		row[k] = plain(v)
	}
	if key, ok := doc["_id"].(string); ok {
		row[table.KeyField] = key
		row[table.IDField] = table.NewRef(name, key)
	}
	return row
}

// plain converts driver container types into plain maps and slices.
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case int32:
		return int64(t)
	default:
		return v
	}
}

func (m *Mongo) InsertRows(ctx context.Context, workspace, name string, rows table.Rows) ([]Inserted, error) {
	if err := m.requireTable(ctx, workspace, name); err != nil {
		return nil, err
	}
	prepared, ins, err := prepareRows(name, rows)
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return ins, nil
	}
	coll := m.db(workspace).Collection(name)
	base, err := coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return nil, mongoErr(err, "count rows in %s", name)
	}
	docs := make([]any, len(prepared))
	for i, row := range prepared {
		doc := bson.M{}
		for k, v := range row {
			if k == table.IDField {
				continue
			}
			doc[k] = v
		}
		doc["_id"] = ins[i].Key
		doc["_seq"] = base + int64(i)
		docs[i] = doc
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errs.Wrap(errs.ErrCodeAlreadyExists, err, "duplicate key in table %q", name)
		}
		return nil, mongoErr(err, "insert rows into %s", name)
	}
	return ins, nil
}

func (m *Mongo) TableKeys(ctx context.Context, workspace, name string) (KeySet, error) {
	if err := m.requireTable(ctx, workspace, name); err != nil {
		return nil, err
	}
	cur, err := m.db(workspace).Collection(name).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, mongoErr(err, "read keys of %s", name)
	}
	defer cur.Close(ctx)
	out := make(KeySet)
	for cur.Next(ctx) {
		var doc struct {
			Key string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, mongoErr(err, "decode key in %s", name)
		}
		out[doc.Key] = struct{}{}
	}
	return out, mongoErr(cur.Err(), "read keys of %s", name)
}

func (m *Mongo) GraphExists(ctx context.Context, workspace, name string) (bool, error) {
	if err := m.requireWorkspace(ctx, workspace); err != nil {
		return false, err
	}
	n, err := m.db(workspace).Collection(mongoGraphsColl).CountDocuments(ctx, bson.M{"_id": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, mongoErr(err, "lookup graph %s", name)
	}
	return n > 0, nil
}

func (m *Mongo) CreateGraph(ctx context.Context, workspace, name, edgeTable string, fromTables, toTables []string) (*Graph, error) {
	if err := m.requireWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	g := &Graph{Name: name, EdgeTable: edgeTable, FromTables: nonNil(fromTables), ToTables: nonNil(toTables)}
	if _, err := m.db(workspace).Collection(mongoGraphsColl).InsertOne(ctx, g); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, existsGraph(workspace, name)
		}
		return nil, mongoErr(err, "create graph %s", name)
	}
	return g, nil
}

func (m *Mongo) GetGraph(ctx context.Context, workspace, name string) (*Graph, error) {
	if err := m.requireWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	var g Graph
	err := m.db(workspace).Collection(mongoGraphsColl).FindOne(ctx, bson.M{"_id": name}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFoundGraph(workspace, name)
	}
	if err != nil {
		return nil, mongoErr(err, "get graph %s", name)
	}
	return &g, nil
}

func (m *Mongo) ListGraphs(ctx context.Context, workspace string) ([]*Graph, error) {
	if err := m.requireWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	cur, err := m.db(workspace).Collection(mongoGraphsColl).Find(ctx, bson.M{})
	if err != nil {
		return nil, mongoErr(err, "list graphs")
	}
	out := []*Graph{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr(err, "list graphs")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Mongo) DeleteGraph(ctx context.Context, workspace, name string) error {
	if err := m.requireWorkspace(ctx, workspace); err != nil {
		return err
	}
	res, err := m.db(workspace).Collection(mongoGraphsColl).DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return mongoErr(err, "delete graph %s", name)
	}
	if res.DeletedCount == 0 {
		return notFoundGraph(workspace, name)
	}
	return nil
}

// mongoMetadata is the stored shape of a metadata record.
type mongoMetadata struct {
	Table   string            `bson:"_id"`
	Columns []metadata.Column `bson:"columns"`
}

func (m *Mongo) GetMetadata(ctx context.Context, workspace, name string) (*metadata.Record, error) {
	if err := m.requireTable(ctx, workspace, name); err != nil {
		return nil, err
	}
	// Upsert with $setOnInsert is an atomic get-or-create on the unique _id.
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc mongoMetadata
	err := m.db(workspace).Collection(mongoMetadataColl).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$setOnInsert": bson.M{"columns": bson.A{}}},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, mongoErr(err, "get metadata of %s", name)
	}
	if doc.Columns == nil {
		doc.Columns = []metadata.Column{}
	}
	return &metadata.Record{Table: name, Columns: doc.Columns}, nil
}

func (m *Mongo) SetMetadata(ctx context.Context, workspace, name string, rec *metadata.Record) (*metadata.Record, error) {
	if err := m.requireTable(ctx, workspace, name); err != nil {
		return nil, err
	}
	stored := rec.Clone()
	stored.Table = name
	_, err := m.db(workspace).Collection(mongoMetadataColl).ReplaceOne(ctx,
		bson.M{"_id": name},
		mongoMetadata{Table: name, Columns: stored.Columns},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return nil, mongoErr(err, "set metadata of %s", name)
	}
	return stored, nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

var _ Store = (*Mongo)(nil)
