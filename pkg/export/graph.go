package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/multinet/pkg/store"
	"github.com/matzehuels/multinet/pkg/table"
)

// GraphReader reads a graph definition and its tables.
type GraphReader interface {
	GetGraph(ctx context.Context, workspace, name string) (*store.Graph, error)
	ReadAllRows(ctx context.Context, workspace, name string) (table.Rows, error)
}

// GraphData is a graph with the rows of its tables.
type GraphData struct {
	Graph *store.Graph          `json:"graph"`
	Nodes map[string]table.Rows `json:"nodes"`
	Edges table.Rows            `json:"edges"`
}

// LoadGraph reads a graph definition, its node tables and its edge table.
func LoadGraph(ctx context.Context, r GraphReader, workspace, name string) (*GraphData, error) {
	g, err := r.GetGraph(ctx, workspace, name)
	if err != nil {
		return nil, err
	}
	data := &GraphData{Graph: g, Nodes: make(map[string]table.Rows)}
	for _, t := range g.NodeTables() {
		rows, err := r.ReadAllRows(ctx, workspace, t)
		if err != nil {
			return nil, err
		}
		data.Nodes[t] = rows
	}
	data.Edges, err = r.ReadAllRows(ctx, workspace, g.EdgeTable)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteGraphJSON writes the graph with all of its rows.
func WriteGraphJSON(w io.Writer, data *GraphData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Options configures DOT output.
type Options struct {
	// Detailed adds row attributes to node labels.
	// When false, only the key is shown.
	Detailed bool
}

// ToDOT converts a graph to Graphviz DOT. Each node table becomes a
// cluster; node ids are the rows' "table/key" references.
func ToDOT(data *GraphData, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")

	for i, t := range slices.Sorted(maps.Keys(data.Nodes)) {
		fmt.Fprintf(&buf, "\n  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", t)
		buf.WriteString("    style=dashed;\n")
		for _, row := range data.Nodes[t] {
			key, ok := table.KeyString(row[table.KeyField])
			if !ok {
				continue
			}
			fmt.Fprintf(&buf, "    %q [label=%q];\n", table.NewRef(t, key), fmtLabel(key, row, opts.Detailed))
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, e := range data.Edges {
		from, _ := e.String(table.FromField)
		to, _ := e.String(table.ToField)
		fmt.Fprintf(&buf, "  %q -> %q;\n", from, to)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(key string, row table.Row, detailed bool) string {
	if !detailed {
		return key
	}
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(row)) {
		if strings.HasPrefix(k, "_") {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, Cell(row[k])))
	}
	if len(parts) == 0 {
		return key
	}
	return key + "\n" + strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg tag with one sized
// from the viewBox, so browsers scale the image.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
