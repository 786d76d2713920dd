package table

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	errs "github.com/matzehuels/multinet/pkg/errors"
)

// Reserved field names.
const (
	KeyField  = "_key"
	FromField = "_from"
	ToField   = "_to"
	IDField   = "_id"
)

// Row maps column names to cell values.
// Cells are strings at ingestion time and typed after processing.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	return maps.Clone(r)
}

// String returns the cell as a string, and whether it was a string.
func (r Row) String(field string) (string, bool) {
	v, ok := r[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Has reports whether the row carries field.
func (r Row) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Rows is an ordered batch of rows.
type Rows []Row

// Clone copies every row, so the result never aliases rs.
func (rs Rows) Clone() Rows {
	if rs == nil {
		return nil
	}
	out := make(Rows, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}

// FileRow converts a zero-based row index into the line number it has in a
// file with one header line.
func FileRow(index int) int { return index + 2 }

// Ref is a canonical row reference "<table>/<key>".
type Ref struct {
	Table string
	Key   string
}

// String formats the reference.
func (r Ref) String() string { return r.Table + "/" + r.Key }

// NewRef builds a reference to key in table.
func NewRef(table, key string) string { return Ref{Table: table, Key: key}.String() }

// ParseRef splits a reference into table and key. It requires exactly one
// "/" with non-empty text on both sides.
func ParseRef(s string) (Ref, error) {
	table, key, ok := strings.Cut(s, "/")
	if !ok || table == "" || key == "" || strings.Contains(key, "/") {
		return Ref{}, errs.New(errs.ErrCodeInvalidInput, "invalid row reference %q", s)
	}
	return Ref{Table: table, Key: key}, nil
}

// ValidRef reports whether s is a well-formed reference.
func ValidRef(s string) bool {
	_, err := ParseRef(s)
	return err == nil
}

// KeyString renders a key cell as the string stored in "_key".
// JSON numbers with integral values render without a fraction.
func KeyString(v any) (string, bool) {
	switch k := v.(type) {
	case string:
		return k, true
	case float64:
		if k == float64(int64(k)) {
			return strconv.FormatInt(int64(k), 10), true
		}
		return strconv.FormatFloat(k, 'f', -1, 64), true
	case int:
		return strconv.Itoa(k), true
	case int64:
		return strconv.FormatInt(k, 10), true
	case json.Number:
		return k.String(), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(k), true
	}
}
