package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/table"
	"github.com/matzehuels/multinet/pkg/validation"
)

// D3 link and node fields.
const (
	d3ID     = "id"
	d3Source = "source"
	d3Target = "target"
)

// D3NodeTable and D3LinkTable name the tables created from a D3 upload.
func D3NodeTable(name string) string { return name + "_nodes" }
func D3LinkTable(name string) string { return name + "_links" }

// ParseD3 parses a node-link document of the form
// {"nodes": [{"id": ...}, ...], "links": [{"source": ..., "target": ...}, ...]}.
//
// Structure is checked before conversion: both arrays must exist, every node
// needs an id and every link a source and target, all links must share one
// attribute set, node ids must be unique and no two links may be identical.
// The duplicate checks are reported together.
func ParseD3(data []byte, name string) (*Upload, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		var typ *json.UnmarshalTypeError
		if errors.As(err, &typ) {
			return nil, validation.Fail([]validation.Error{validation.InvalidStructure("document must be a JSON object")})
		}
		return nil, errs.Wrap(errs.ErrCodeDecode, err, "parse D3 JSON")
	}

	rawNodes, hasNodes := doc["nodes"]
	rawLinks, hasLinks := doc["links"]
	var missing []string
	if !hasNodes {
		missing = append(missing, "nodes")
	}
	if !hasLinks {
		missing = append(missing, "links")
	}
	if len(missing) > 0 {
		return nil, validation.Fail([]validation.Error{
			validation.InvalidStructure("missing top-level key: " + strings.Join(missing, ", ")),
		})
	}

	var nodes, links []map[string]any
	if err := unmarshalJSON(rawNodes, &nodes); err != nil {
		return nil, validation.Fail([]validation.Error{validation.InvalidStructure("nodes must be an array of objects")})
	}
	if err := unmarshalJSON(rawLinks, &links); err != nil {
		return nil, validation.Fail([]validation.Error{validation.InvalidStructure("links must be an array of objects")})
	}
	for _, n := range nodes {
		normalizeNumbers(n)
	}
	for _, l := range links {
		normalizeNumbers(l)
	}

	if problems := checkD3(nodes, links); len(problems) > 0 {
		return nil, validation.Fail(problems)
	}

	nodeTable := D3NodeTable(name)
	nodeRows := make(table.Rows, len(nodes))
	for i, n := range nodes {
		key, _ := table.KeyString(n[d3ID])
		row := make(table.Row, len(n))
		for k, v := range n {
			if k != d3ID {
				row[k] = v
			}
		}
		row[table.KeyField] = key
		nodeRows[i] = row
	}

	linkRows := make(table.Rows, len(links))
	for i, l := range links {
		src, _ := table.KeyString(l[d3Source])
		dst, _ := table.KeyString(l[d3Target])
		row := make(table.Row, len(l))
		for k, v := range l {
			if k != d3Source && k != d3Target {
				row[k] = v
			}
		}
		row[table.FromField] = table.NewRef(nodeTable, src)
		row[table.ToField] = table.NewRef(nodeTable, dst)
		linkRows[i] = row
	}

	return &Upload{
		Format: FormatD3,
		Tables: []Table{
			{Name: nodeTable, Rows: nodeRows},
			{Name: D3LinkTable(name), Edge: true, Rows: linkRows},
		},
	}, nil
}

// checkD3 runs the structural checks. Missing fields stop the duplicate
// checks, which need ids and endpoints to be meaningful.
func checkD3(nodes, links []map[string]any) []validation.Error {
	var problems []validation.Error
	for i, n := range nodes {
		if _, ok := table.KeyString(n[d3ID]); !ok {
			problems = append(problems, validation.InvalidStructure(fmt.Sprintf("node %d has no id", i)))
		}
	}
	for i, l := range links {
		var absent []string
		if _, ok := table.KeyString(l[d3Source]); !ok {
			absent = append(absent, d3Source)
		}
		if _, ok := table.KeyString(l[d3Target]); !ok {
			absent = append(absent, d3Target)
		}
		if len(absent) > 0 {
			problems = append(problems, validation.InvalidStructure(
				fmt.Sprintf("link %d has no %s", i, strings.Join(absent, " or "))))
		}
	}
	if len(problems) > 0 {
		return problems
	}

	if !sameKeySets(links) {
		problems = append(problems, validation.InconsistentLinkKeys())
	}
	if dups := duplicateNodeIDs(nodes); len(dups) > 0 {
		problems = append(problems, validation.NodeDuplicates(dups))
	}
	if n := duplicateLinks(links); n > 0 {
		problems = append(problems, validation.DuplicateLinks(n))
	}
	return problems
}

func keySet(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, "\x00")
}

func sameKeySets(links []map[string]any) bool {
	if len(links) == 0 {
		return true
	}
	want := keySet(links[0])
	for _, l := range links[1:] {
		if keySet(l) != want {
			return false
		}
	}
	return true
}

// duplicateNodeIDs returns each repeated id once, in first-appearance order.
func duplicateNodeIDs(nodes []map[string]any) []string {
	counts := make(map[string]int, len(nodes))
	var order []string
	for _, n := range nodes {
		id, _ := table.KeyString(n[d3ID])
		counts[id]++
		if counts[id] == 2 {
			order = append(order, id)
		}
	}
	return order
}

// duplicateLinks counts links identical to an earlier one. encoding/json
// sorts map keys, so equal attribute sets marshal to equal bytes.
func duplicateLinks(links []map[string]any) int {
	seen := make(map[string]bool, len(links))
	n := 0
	for _, l := range links {
		b, err := json.Marshal(l)
		if err != nil {
			continue
		}
		if seen[string(b)] {
			n++
			continue
		}
		seen[string(b)] = true
	}
	return n
}
