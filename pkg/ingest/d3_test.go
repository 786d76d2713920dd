package ingest

import (
	"reflect"
	"testing"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/table"
	"github.com/matzehuels/multinet/pkg/validation"
)

func TestD3Conversion(t *testing.T) {
	doc := `{
		"nodes": [{"id": "a", "group": 1}, {"id": 2}],
		"links": [{"source": "a", "target": 2, "value": 5}]
	}`
	up, err := Prepare(FormatD3, "miserables", []byte(doc), CSVOptions{})
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	if len(up.Tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(up.Tables))
	}
	nodes, links := up.Tables[0], up.Tables[1]
	if nodes.Name != "miserables_nodes" || nodes.Edge {
		t.Errorf("nodes table = %s edge=%v", nodes.Name, nodes.Edge)
	}
	if links.Name != "miserables_links" || !links.Edge {
		t.Errorf("links table = %s edge=%v", links.Name, links.Edge)
	}

	wantNodes := table.Rows{{"_key": "a", "group": int64(1)}, {"_key": "2"}}
	if !reflect.DeepEqual(nodes.Rows, wantNodes) {
		t.Errorf("nodes = %v, want %v", nodes.Rows, wantNodes)
	}
	wantLinks := table.Rows{{"_from": "miserables_nodes/a", "_to": "miserables_nodes/2", "value": int64(5)}}
	if !reflect.DeepEqual(links.Rows, wantLinks) {
		t.Errorf("links = %v, want %v", links.Rows, wantLinks)
	}
}

func TestD3StructureErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []validation.Kind
	}{
		{"missing links", `{"nodes": []}`, []validation.Kind{validation.KindInvalidStructure}},
		{"not an object", `[1, 2]`, []validation.Kind{validation.KindInvalidStructure}},
		{"nodes not array", `{"nodes": 3, "links": []}`, []validation.Kind{validation.KindInvalidStructure}},
		{"node without id", `{"nodes": [{"name": "x"}], "links": []}`, []validation.Kind{validation.KindInvalidStructure}},
		{"link without target", `{"nodes": [{"id": "a"}], "links": [{"source": "a"}]}`, []validation.Kind{validation.KindInvalidStructure}},
		{"inconsistent link keys", `{"nodes": [{"id": "a"}, {"id": "b"}], "links": [
			{"source": "a", "target": "b", "w": 1},
			{"source": "b", "target": "a"}
		]}`, []validation.Kind{validation.KindInconsistentLinkKeys}},
		{"duplicates together", `{"nodes": [{"id": "a"}, {"id": "a"}, {"id": "b"}], "links": [
			{"source": "a", "target": "b"},
			{"source": "a", "target": "b"}
		]}`, []validation.Kind{validation.KindNodeDuplicates, validation.KindDuplicateLinks}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(FormatD3, "g", []byte(tt.doc), CSVOptions{})
			list, ok := validation.Errors(err)
			if !ok {
				t.Fatalf("expected validation failure, got %v", err)
			}
			var kinds []validation.Kind
			for _, e := range list {
				kinds = append(kinds, e.Kind)
			}
			if !reflect.DeepEqual(kinds, tt.want) {
				t.Errorf("kinds = %v, want %v", kinds, tt.want)
			}
		})
	}
}

func TestD3DuplicateDetails(t *testing.T) {
	doc := `{"nodes": [{"id": "a"}, {"id": "b"}, {"id": "a"}, {"id": "b"}, {"id": "a"}], "links": [
		{"source": "a", "target": "b", "w": 1},
		{"source": "a", "target": "b", "w": 1},
		{"source": "a", "target": "b", "w": 2},
		{"source": "a", "target": "b", "w": 1}
	]}`
	_, err := Prepare(FormatD3, "g", []byte(doc), CSVOptions{})
	list, _ := validation.Errors(err)
	want := []validation.Error{
		validation.NodeDuplicates([]string{"a", "b"}),
		validation.DuplicateLinks(2),
	}
	if !reflect.DeepEqual(list, want) {
		t.Errorf("errors = %v, want %v", list, want)
	}
}

func TestD3DistinctParallelLinksAllowed(t *testing.T) {
	doc := `{"nodes": [{"id": "a"}, {"id": "b"}], "links": [
		{"source": "a", "target": "b", "w": 1},
		{"source": "a", "target": "b", "w": 2}
	]}`
	if _, err := Prepare(FormatD3, "g", []byte(doc), CSVOptions{}); err != nil {
		t.Errorf("parallel links with different attributes rejected: %v", err)
	}
}

func TestD3SyntaxError(t *testing.T) {
	_, err := Prepare(FormatD3, "g", []byte(`{"nodes": [`), CSVOptions{})
	if !errs.Is(err, errs.ErrCodeDecode) {
		t.Errorf("error = %v, want DECODE_ERROR", err)
	}
}

func TestD3LargeIntegerIDs(t *testing.T) {
	doc := `{"nodes": [{"id": 9007199254740992}, {"id": 9007199254740993}],
		"links": [{"source": 9007199254740992, "target": 9007199254740993}]}`
	up, err := Prepare(FormatD3, "g", []byte(doc), CSVOptions{})
	if err != nil {
		t.Fatalf("distinct ids above 2^53 rejected: %v", err)
	}
	wantNodes := table.Rows{{"_key": "9007199254740992"}, {"_key": "9007199254740993"}}
	if !reflect.DeepEqual(up.Tables[0].Rows, wantNodes) {
		t.Errorf("nodes = %v, want %v", up.Tables[0].Rows, wantNodes)
	}
	if got := up.Tables[1].Rows[0]["_to"]; got != "g_nodes/9007199254740993" {
		t.Errorf("_to = %v", got)
	}
}

func TestD3TrailingData(t *testing.T) {
	_, err := Prepare(FormatD3, "g", []byte(`{"nodes": [], "links": []} {}`), CSVOptions{})
	if !errs.Is(err, errs.ErrCodeDecode) {
		t.Errorf("error = %v, want DECODE_ERROR", err)
	}
}
