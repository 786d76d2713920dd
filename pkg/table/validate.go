package table

import (
	"github.com/matzehuels/multinet/pkg/validation"
)

// Shape is the structural kind of a table.
type Shape int

const (
	// ShapeUnsupported has neither a key field nor _from/_to columns.
	ShapeUnsupported Shape = iota
	// ShapeNode is keyed by _key or a nominated key field.
	ShapeNode
	// ShapeEdge carries _from and _to references.
	ShapeEdge
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeNode:
		return "node"
	case ShapeEdge:
		return "edge"
	default:
		return "unsupported"
	}
}

// Classify determines the table shape from the first row's fields.
// keyField is the key column the caller nominated ("_key" when none).
func Classify(rows Rows, keyField string) Shape {
	if len(rows) == 0 {
		return ShapeUnsupported
	}
	first := rows[0]
	if first.Has(FromField) && first.Has(ToField) {
		return ShapeEdge
	}
	if keyField != KeyField || first.Has(KeyField) {
		return ShapeNode
	}
	return ShapeUnsupported
}

// Validate checks a row batch against the structural invariants of its shape
// and returns every violation found. An empty result means the batch is valid.
//
// Edge tables require every _from and _to cell to be a "<table>/<key>"
// reference. Node tables require unique keys; when keyField names a column
// other than _key, that column must exist, and an existing _key column may
// only be replaced when overwrite is set.
//
// Key uniqueness is checked within the batch only; stored rows are not consulted.
func Validate(rows Rows, keyField string, overwrite bool) []validation.Error {
	if len(rows) == 0 {
		return []validation.Error{validation.MissingBody()}
	}
	if keyField == "" {
		keyField = KeyField
	}

	switch Classify(rows, keyField) {
	case ShapeEdge:
		return validateEdges(rows)
	case ShapeNode:
		return validateNodes(rows, keyField, overwrite)
	default:
		return []validation.Error{validation.UnsupportedTable()}
	}
}

func validateEdges(rows Rows) []validation.Error {
	var out []validation.Error
	for i, row := range rows {
		var bad []string
		for _, field := range []string{FromField, ToField} {
			if s, ok := row.String(field); !ok || !ValidRef(s) {
				bad = append(bad, field)
			}
		}
		if len(bad) > 0 {
			out = append(out, validation.InvalidRow(FileRow(i), bad...))
		}
	}
	return out
}

func validateNodes(rows Rows, keyField string, overwrite bool) []validation.Error {
	first := rows[0]
	if keyField != KeyField {
		if !first.Has(keyField) {
			return []validation.Error{validation.KeyFieldDoesNotExist(keyField)}
		}
		if first.Has(KeyField) && !overwrite {
			return []validation.Error{validation.KeyFieldAlreadyExists(keyField)}
		}
	}

	var out []validation.Error
	counts := make(map[string]int, len(rows))
	var order []string
	for i, row := range rows {
		key, ok := KeyString(row[keyField])
		if !ok {
			out = append(out, validation.InvalidRow(FileRow(i), keyField))
			continue
		}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}
	for _, key := range order {
		if counts[key] > 1 {
			out = append(out, validation.DuplicateKey(key))
		}
	}
	return out
}
