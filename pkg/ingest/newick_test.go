package ingest

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/table"
	"github.com/matzehuels/multinet/pkg/validation"
)

func TestNewickNamedTree(t *testing.T) {
	up, err := Prepare(FormatNewick, "tree", []byte("((A:0.1,B:0.2)C:0.3,D)R;"), CSVOptions{})
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	nodes, edges := up.Tables[0], up.Tables[1]
	if nodes.Name != "tree_nodes" || edges.Name != "tree_edges" || !edges.Edge {
		t.Fatalf("tables = %s, %s", nodes.Name, edges.Name)
	}

	var keys []string
	for _, r := range nodes.Rows {
		keys = append(keys, r["_key"].(string))
	}
	if want := []string{"R", "C", "A", "B", "D"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("node keys = %v, want %v (depth-first)", keys, want)
	}

	want := table.Rows{
		{"_from": "tree_nodes/R", "_to": "tree_nodes/C", "length": 0.3},
		{"_from": "tree_nodes/C", "_to": "tree_nodes/A", "length": 0.1},
		{"_from": "tree_nodes/C", "_to": "tree_nodes/B", "length": 0.2},
		{"_from": "tree_nodes/R", "_to": "tree_nodes/D", "length": nil},
	}
	if !reflect.DeepEqual(edges.Rows, want) {
		t.Errorf("edges = %v, want %v", edges.Rows, want)
	}
}

func TestNewickUnnamedNodes(t *testing.T) {
	up, err := Prepare(FormatNewick, "tree", []byte("(,(A,));"), CSVOptions{})
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	nodes := up.Tables[0].Rows
	if len(nodes) != 5 {
		t.Fatalf("got %d nodes, want 5", len(nodes))
	}
	for _, r := range nodes {
		key := r["_key"].(string)
		if key == "A" {
			continue
		}
		if _, err := uuid.Parse(key); err != nil {
			t.Errorf("unnamed node key %q is not a UUID", key)
		}
		if r["name"] != nil {
			t.Errorf("unnamed node has name %v", r["name"])
		}
	}
	if len(up.Tables[1].Rows) != 4 {
		t.Errorf("got %d edges, want 4", len(up.Tables[1].Rows))
	}
}

func TestNewickSyntax(t *testing.T) {
	tests := []struct {
		name  string
		input string
		nodes int
	}{
		{"single node", "A;", 1},
		{"no semicolon", "(A,B)C", 3},
		{"whitespace", " ( A : 1 , B : 2 ) ; \n", 3},
		{"comments", "(A[comment],B[&&NHX:S=x])C;", 3},
		{"quoted", "('x y':1,'it''s')root;", 3},
		{"scientific length", "(A:1e-3,B:2.5E2);", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, err := Prepare(FormatNewick, "tree", []byte(tt.input), CSVOptions{})
			if err != nil {
				t.Fatalf("Prepare error: %v", err)
			}
			if got := len(up.Tables[0].Rows); got != tt.nodes {
				t.Errorf("got %d nodes, want %d", got, tt.nodes)
			}
		})
	}
}

func TestNewickQuotedLabel(t *testing.T) {
	up, err := Prepare(FormatNewick, "tree", []byte("('it''s a leaf')"), CSVOptions{})
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	if got := up.Tables[0].Rows[1]["name"]; got != "it's a leaf" {
		t.Errorf("name = %v", got)
	}
}

func TestNewickDecodeErrors(t *testing.T) {
	for _, input := range []string{"", "((A,B);", "(A,B)C;extra", "(A:x,B);", "('open"} {
		t.Run(input, func(t *testing.T) {
			_, err := Prepare(FormatNewick, "tree", []byte(input), CSVOptions{})
			if !errs.Is(err, errs.ErrCodeDecode) {
				t.Errorf("error = %v, want DECODE_ERROR", err)
			}
		})
	}
}

func TestNewickDuplicateNames(t *testing.T) {
	_, err := Prepare(FormatNewick, "tree", []byte("((A,B)A,(B,C)D);"), CSVOptions{})
	list, ok := validation.Errors(err)
	if !ok {
		t.Fatalf("expected validation failure, got %v", err)
	}
	want := []validation.Error{validation.DuplicateKey("A"), validation.DuplicateKey("B")}
	if !reflect.DeepEqual(list, want) {
		t.Errorf("errors = %v, want %v", list, want)
	}
}
