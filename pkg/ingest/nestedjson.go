package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/table"
	"github.com/matzehuels/multinet/pkg/validation"
)

// KeySeed is the first key assigned to tree nodes without an explicit _key.
// It sits above any key a user is likely to have numbered by hand.
const KeySeed = 1_000_000

// Table names created from a nested-JSON upload.
func InternalNodeTable(name string) string { return name + "_internal_nodes" }
func LeafNodeTable(name string) string     { return name + "_leaf_nodes" }
func TreeEdgeTable(name string) string     { return name + "_edges" }

// treeRecord is one node of a nested-JSON tree.
type treeRecord struct {
	NodeData map[string]any `json:"node_data"`
	EdgeData map[string]any `json:"edge_data"`
	Children []treeRecord   `json:"children"`
}

// ParseNestedJSON parses a rooted tree of {node_data, edge_data, children}
// records. Nodes with children go to the internal-node table and the rest to
// the leaf table. Edges run from child to parent and carry the child's
// edge_data.
func ParseNestedJSON(data []byte, name string) (*Upload, error) {
	var root treeRecord
	if err := unmarshalJSON(data, &root); err != nil {
		var typ *json.UnmarshalTypeError
		if errors.As(err, &typ) {
			return nil, validation.Fail([]validation.Error{
				validation.InvalidStructure(fmt.Sprintf("field %q has the wrong type", typ.Field)),
			})
		}
		return nil, errs.Wrap(errs.ErrCodeDecode, err, "parse nested JSON")
	}
	if root.NodeData == nil && len(root.Children) == 0 {
		return nil, validation.Fail([]validation.Error{
			validation.InvalidStructure("root has neither node_data nor children"),
		})
	}

	acc := &treeAcc{
		internalTable: InternalNodeTable(name),
		leafTable:     LeafNodeTable(name),
		internal:      table.Rows{},
		leaves:        table.Rows{},
		edges:         table.Rows{},
		next:          KeySeed,
	}
	acc.walk(&root, "")

	return &Upload{
		Format: FormatNestedJSON,
		Tables: []Table{
			{Name: acc.internalTable, Rows: acc.internal},
			{Name: acc.leafTable, Rows: acc.leaves},
			{Name: TreeEdgeTable(name), Edge: true, Rows: acc.edges},
		},
	}, nil
}

// treeAcc carries the output rows and the key counter through the walk.
type treeAcc struct {
	internalTable string
	leafTable     string
	internal      table.Rows
	leaves        table.Rows
	edges         table.Rows
	next          int
}

// walk adds n and its subtree, returning n's reference.
func (a *treeAcc) walk(n *treeRecord, parentRef string) string {
	row := make(table.Row, len(n.NodeData)+1)
	for k, v := range n.NodeData {
		row[k] = normalizeNumbers(v)
	}
	key, ok := table.KeyString(row[table.KeyField])
	if !ok || key == "" {
		key = strconv.Itoa(a.next)
		a.next++
	}
	row[table.KeyField] = key

	var ref string
	if len(n.Children) > 0 {
		ref = table.NewRef(a.internalTable, key)
		a.internal = append(a.internal, row)
	} else {
		ref = table.NewRef(a.leafTable, key)
		a.leaves = append(a.leaves, row)
	}

	if parentRef != "" {
		edge := make(table.Row, len(n.EdgeData)+2)
		for k, v := range n.EdgeData {
			edge[k] = normalizeNumbers(v)
		}
		edge[table.FromField] = ref
		edge[table.ToField] = parentRef
		a.edges = append(a.edges, edge)
	}

	for i := range n.Children {
		a.walk(&n.Children[i], ref)
	}
	return ref
}
