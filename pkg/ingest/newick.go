package ingest

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/table"
)

// Fields of Newick node and edge rows.
const (
	NewickNameField   = "name"
	NewickLengthField = "length"
)

// NewickNodeTable and NewickEdgeTable name the tables created from a Newick upload.
func NewickNodeTable(name string) string { return name + "_nodes" }
func NewickEdgeTable(name string) string { return name + "_edges" }

// newickNode is one parsed tree node.
type newickNode struct {
	name     string
	length   *float64
	children []*newickNode
}

// ParseNewick parses a Newick tree such as "((A:0.1,B:0.2)C:0.3,D);".
//
// Quoted labels, [bracketed] comments and branch lengths are supported; the
// trailing semicolon is optional. Named nodes are keyed by their name,
// unnamed ones by a generated UUID. Every non-root node yields one edge from
// its parent.
func ParseNewick(data []byte, name string) (*Upload, error) {
	p := &newickParser{src: string(data)}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}

	acc := &newickAcc{nodeTable: NewickNodeTable(name), nodes: table.Rows{}, edges: table.Rows{}}
	acc.walk(root, "")

	return &Upload{
		Format: FormatNewick,
		Tables: []Table{
			{Name: acc.nodeTable, Rows: acc.nodes},
			{Name: NewickEdgeTable(name), Edge: true, Rows: acc.edges},
		},
	}, nil
}

// newickAcc collects rows during the depth-first walk.
type newickAcc struct {
	nodeTable string
	nodes     table.Rows
	edges     table.Rows
}

func (a *newickAcc) walk(n *newickNode, parentKey string) {
	key := n.name
	var label any
	if key == "" {
		key = uuid.NewString()
	} else {
		label = n.name
	}
	a.nodes = append(a.nodes, table.Row{table.KeyField: key, NewickNameField: label})

	if parentKey != "" {
		var length any
		if n.length != nil {
			length = *n.length
		}
		a.edges = append(a.edges, table.Row{
			table.FromField:   table.NewRef(a.nodeTable, parentKey),
			table.ToField:     table.NewRef(a.nodeTable, key),
			NewickLengthField: length,
		})
	}
	for _, c := range n.children {
		a.walk(c, key)
	}
}

type newickParser struct {
	src string
	pos int
}

func (p *newickParser) fail(format string, args ...any) error {
	return errs.New(errs.ErrCodeDecode, "newick: "+format+" at offset %d", append(args, p.pos)...)
}

func (p *newickParser) parse() (*newickNode, error) {
	p.skip()
	if p.eof() {
		return nil, p.fail("empty tree")
	}
	root, err := p.subtree()
	if err != nil {
		return nil, err
	}
	p.skip()
	if !p.eof() && p.peek() == ';' {
		p.pos++
		p.skip()
	}
	if !p.eof() {
		return nil, p.fail("unexpected %q", p.peek())
	}
	return root, nil
}

// subtree parses "(children)label:length" or "label:length".
func (p *newickParser) subtree() (*newickNode, error) {
	n := &newickNode{}
	p.skip()
	if !p.eof() && p.peek() == '(' {
		p.pos++
		for {
			child, err := p.subtree()
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
			p.skip()
			if p.eof() {
				return nil, p.fail("unclosed '('")
			}
			c := p.peek()
			p.pos++
			if c == ')' {
				break
			}
			if c != ',' {
				return nil, p.fail("expected ',' or ')', got %q", c)
			}
		}
	}

	label, err := p.label()
	if err != nil {
		return nil, err
	}
	n.name = label

	p.skip()
	if !p.eof() && p.peek() == ':' {
		p.pos++
		p.skip()
		l, err := p.length()
		if err != nil {
			return nil, err
		}
		n.length = &l
	}
	return n, nil
}

func (p *newickParser) label() (string, error) {
	p.skip()
	if p.eof() {
		return "", nil
	}
	if p.peek() == '\'' {
		return p.quoted()
	}
	start := p.pos
	for !p.eof() && !isNewickDelim(p.peek()) {
		p.pos++
	}
	return p.src[start:p.pos], nil
}

// quoted reads a single-quoted label; a doubled quote is a literal quote.
func (p *newickParser) quoted() (string, error) {
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.fail("unterminated quoted label")
		}
		c := p.peek()
		p.pos++
		if c == '\'' {
			if !p.eof() && p.peek() == '\'' {
				b.WriteByte('\'')
				p.pos++
				continue
			}
			return b.String(), nil
		}
		b.WriteByte(c)
	}
}

func (p *newickParser) length() (float64, error) {
	start := p.pos
	for !p.eof() && !isNewickDelim(p.peek()) {
		p.pos++
	}
	text := p.src[start:p.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return 0, p.fail("invalid branch length %q", text)
	}
	return v, nil
}

// skip advances past whitespace and [comments].
func (p *newickParser) skip() {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '[':
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += end + 1
		default:
			return
		}
	}
}

func (p *newickParser) eof() bool  { return p.pos >= len(p.src) }
func (p *newickParser) peek() byte { return p.src[p.pos] }

func isNewickDelim(c byte) bool {
	switch c {
	case '(', ')', ',', ':', ';', '[', ']', '\'', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
