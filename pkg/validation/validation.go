// Package validation defines the semantic validation errors reported by the
// ingestion and graph-construction engine.
//
// Validation errors are collected exhaustively rather than returned one at a
// time, so a client can fix every problem in a payload in a single round trip.
// A non-empty list is carried as a [*Failed] error, which reports the
// VALIDATION_FAILED code through [errs.GetCode].
//
// Each [Error] serializes as a flat JSON object whose "type" field names the
// kind and whose remaining fields are kind specific:
//
//	{"type": "InvalidRow", "row": 3, "columns": ["_from"]}
//	{"type": "UndefinedKeys", "table": "places", "keys": ["9"]}
package validation

import (
	"errors"
	"fmt"
	"strings"

	errs "github.com/matzehuels/multinet/pkg/errors"
)

// Kind names a class of validation failure.
type Kind string

// Table and graph validation kinds.
const (
	KindMissingBody           Kind = "MissingBody"
	KindUnsupportedTable      Kind = "UnsupportedTable"
	KindInvalidRow            Kind = "InvalidRow"
	KindDuplicateKey          Kind = "DuplicateKey"
	KindKeyFieldAlreadyExists Kind = "KeyFieldAlreadyExists"
	KindKeyFieldDoesNotExist  Kind = "KeyFieldDoesNotExist"
	KindUndefinedTable        Kind = "UndefinedTable"
	KindUndefinedKeys         Kind = "UndefinedKeys"
)

// Row processing kinds.
const (
	KindIncompatibleMetadata Kind = "IncompatibleMetadata"
	KindColumnNotFound       Kind = "ColumnNotFound"
)

// Format adapter kinds.
const (
	KindInvalidStructure     Kind = "InvalidStructure"
	KindInconsistentLinkKeys Kind = "InconsistentLinkKeys"
	KindNodeDuplicates       Kind = "NodeDuplicates"
	KindDuplicateLinks       Kind = "DuplicateLinks"
)

// Error is a single validation failure.
// Only the fields relevant to Kind are set.
type Error struct {
	Kind    Kind     `json:"type"`
	Row     int      `json:"row,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Column  string   `json:"column,omitempty"`
	Type    string   `json:"column_type,omitempty"`
	Key     string   `json:"key,omitempty"`
	Table   string   `json:"table,omitempty"`
	Keys    []string `json:"keys,omitempty"`
	Count   int      `json:"count,omitempty"`
	Detail  string   `json:"detail,omitempty"`
}

// MissingBody reports an empty row set.
func MissingBody() Error { return Error{Kind: KindMissingBody} }

// UnsupportedTable reports a table that is neither node- nor edge-shaped.
func UnsupportedTable() Error { return Error{Kind: KindUnsupportedTable} }

// InvalidRow reports a row whose named columns are malformed.
// row uses file numbering: the header is line 1, the first data row line 2.
func InvalidRow(row int, columns ...string) Error {
	return Error{Kind: KindInvalidRow, Row: row, Columns: columns}
}

// DuplicateKey reports a key value that appears more than once.
func DuplicateKey(key string) Error { return Error{Kind: KindDuplicateKey, Key: key} }

// KeyFieldAlreadyExists reports a nominated key field colliding with an existing _key.
func KeyFieldAlreadyExists(key string) Error {
	return Error{Kind: KindKeyFieldAlreadyExists, Key: key}
}

// KeyFieldDoesNotExist reports a nominated key field missing from the rows.
func KeyFieldDoesNotExist(key string) Error {
	return Error{Kind: KindKeyFieldDoesNotExist, Key: key}
}

// UndefinedTable reports a referenced table that does not exist.
func UndefinedTable(table string) Error { return Error{Kind: KindUndefinedTable, Table: table} }

// UndefinedKeys reports referenced keys missing from an existing table.
func UndefinedKeys(table string, keys []string) Error {
	return Error{Kind: KindUndefinedKeys, Table: table, Keys: keys}
}

// IncompatibleMetadata reports a cell that cannot be cast to its declared column type.
func IncompatibleMetadata(row int, column, typ string) Error {
	return Error{Kind: KindIncompatibleMetadata, Row: row, Column: column, Type: typ}
}

// ColumnNotFound reports a declared column that is absent from a row.
func ColumnNotFound(row int, column string) Error {
	return Error{Kind: KindColumnNotFound, Row: row, Column: column}
}

// InvalidStructure reports a payload whose overall shape is wrong.
func InvalidStructure(detail string) Error {
	return Error{Kind: KindInvalidStructure, Detail: detail}
}

// InconsistentLinkKeys reports links that do not share one attribute-key set.
func InconsistentLinkKeys() Error { return Error{Kind: KindInconsistentLinkKeys} }

// NodeDuplicates reports node ids that appear more than once.
func NodeDuplicates(keys []string) Error { return Error{Kind: KindNodeDuplicates, Keys: keys} }

// DuplicateLinks reports links that are exact copies of an earlier link.
func DuplicateLinks(count int) Error { return Error{Kind: KindDuplicateLinks, Count: count} }

// Error returns a human-readable description.
func (e Error) Error() string {
	switch e.Kind {
	case KindMissingBody:
		return "missing body"
	case KindUnsupportedTable:
		return "unsupported table: rows have neither a key field nor _from/_to columns"
	case KindInvalidRow:
		return fmt.Sprintf("invalid row %d: malformed %s", e.Row, strings.Join(e.Columns, ", "))
	case KindDuplicateKey:
		return fmt.Sprintf("duplicate key %q", e.Key)
	case KindKeyFieldAlreadyExists:
		return fmt.Sprintf("key field %q cannot replace existing _key without overwrite", e.Key)
	case KindKeyFieldDoesNotExist:
		return fmt.Sprintf("key field %q does not exist", e.Key)
	case KindUndefinedTable:
		return fmt.Sprintf("undefined table %q", e.Table)
	case KindUndefinedKeys:
		return fmt.Sprintf("undefined keys in table %q: %s", e.Table, strings.Join(e.Keys, ", "))
	case KindIncompatibleMetadata:
		return fmt.Sprintf("row %d: column %q is not a valid %s", e.Row, e.Column, e.Type)
	case KindColumnNotFound:
		return fmt.Sprintf("row %d: column %q not found", e.Row, e.Column)
	case KindInvalidStructure:
		return "invalid structure: " + e.Detail
	case KindInconsistentLinkKeys:
		return "links do not share the same attribute keys"
	case KindNodeDuplicates:
		return fmt.Sprintf("duplicate node ids: %s", strings.Join(e.Keys, ", "))
	case KindDuplicateLinks:
		return fmt.Sprintf("%d duplicate links", e.Count)
	default:
		return string(e.Kind)
	}
}

// Failed aggregates the validation errors of one operation.
type Failed struct {
	Errors []Error
}

// Fail returns a *Failed for a non-empty list, or nil.
func Fail(list []Error) error {
	if len(list) == 0 {
		return nil
	}
	return &Failed{Errors: list}
}

// Error implements the error interface.
func (f *Failed) Error() string {
	switch len(f.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + f.Errors[0].Error()
	default:
		return fmt.Sprintf("validation failed: %s (and %d more)", f.Errors[0].Error(), len(f.Errors)-1)
	}
}

// Code reports the VALIDATION_FAILED code.
func (f *Failed) Code() errs.Code { return errs.ErrCodeValidation }

// Errors extracts the validation list from err, if it carries one.
func Errors(err error) ([]Error, bool) {
	var f *Failed
	if errors.As(err, &f) {
		return f.Errors, true
	}
	return nil, false
}

// Count returns how many errors of the given kind are in list.
func Count(list []Error, kind Kind) int {
	n := 0
	for _, e := range list {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
