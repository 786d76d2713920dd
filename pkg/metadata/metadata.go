// Package metadata describes typed column metadata attached to tables and
// provides the cached get-or-create service used by the ingestion engine.
//
// Metadata is optional: a table may declare zero columns, in which case rows
// pass through the row processor unchanged. Only number, boolean and date
// columns trigger conversion; label and category are descriptive.
package metadata

import (
	"fmt"

	errs "github.com/matzehuels/multinet/pkg/errors"
)

// ColumnType is the declared type of a column.
type ColumnType string

// Recognised column types.
const (
	TypeNumber   ColumnType = "number"
	TypeBoolean  ColumnType = "boolean"
	TypeDate     ColumnType = "date"
	TypeLabel    ColumnType = "label"
	TypeCategory ColumnType = "category"
)

var knownTypes = map[ColumnType]bool{
	TypeNumber:   true,
	TypeBoolean:  true,
	TypeDate:     true,
	TypeLabel:    true,
	TypeCategory: true,
}

// Valid reports whether t is a recognised column type.
func (t ColumnType) Valid() bool { return knownTypes[t] }

// Converts reports whether cells of this type are actively converted.
func (t ColumnType) Converts() bool {
	return t == TypeNumber || t == TypeBoolean || t == TypeDate
}

// Column declares the type of one column.
type Column struct {
	Key  string     `json:"key" bson:"key" msgpack:"key"`
	Type ColumnType `json:"type" bson:"type" msgpack:"type"`
}

// Record is the metadata of one table.
type Record struct {
	Table   string   `json:"table" bson:"table" msgpack:"table"`
	Columns []Column `json:"columns" bson:"columns" msgpack:"columns"`
}

// Empty returns a record with no declared columns.
func Empty(table string) *Record {
	return &Record{Table: table, Columns: []Column{}}
}

// Validate checks the submitted shape. Every column needs a non-empty key,
// a recognised type, and keys must be unique. The whole record is rejected
// on the first problem; it is never merged partially.
func (r *Record) Validate() error {
	if r == nil {
		return errs.New(errs.ErrCodeInvalidMetadata, "metadata record is missing")
	}
	seen := make(map[string]bool, len(r.Columns))
	for i, c := range r.Columns {
		if c.Key == "" {
			return errs.New(errs.ErrCodeInvalidMetadata, "column %d has no key", i)
		}
		if !c.Type.Valid() {
			return errs.New(errs.ErrCodeInvalidMetadata, "column %q has unknown type %q", c.Key, c.Type)
		}
		if seen[c.Key] {
			return errs.New(errs.ErrCodeInvalidMetadata, "column %q declared twice", c.Key)
		}
		seen[c.Key] = true
	}
	return nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cols := make([]Column, len(r.Columns))
	copy(cols, r.Columns)
	return &Record{Table: r.Table, Columns: cols}
}

// String implements fmt.Stringer.
func (r *Record) String() string {
	return fmt.Sprintf("metadata(%s, %d columns)", r.Table, len(r.Columns))
}
