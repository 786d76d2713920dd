package ingest

import (
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/table"
	"github.com/matzehuels/multinet/pkg/validation"
)

// Formats accepted by the uploader.
const (
	FormatCSV        = "csv"
	FormatD3         = "d3_json"
	FormatNewick     = "newick"
	FormatNestedJSON = "nested_json"
)

// Table is one table produced by an adapter.
type Table struct {
	Name string
	Edge bool
	// Columns lists the column names in input order, when the format has one.
	Columns []string
	Rows    table.Rows
	// KeyField is the column holding row keys. Empty means "_key".
	KeyField string
	// Overwrite allows KeyField to replace an existing "_key" column.
	Overwrite bool
	// Metadata, when set, is applied to the rows and stored with the table.
	Metadata *metadata.Record
}

// Upload is the parsed form of one payload.
type Upload struct {
	Format string
	Tables []Table
}

// Validate checks every table and returns all problems at once as a
// [validation.Failed]. On success, tables with a nominated key field have
// that field copied into "_key".
//
// An upload without any rows is MissingBody. Otherwise empty tables are
// allowed, since a tree may have no edges or no internal nodes.
func (u *Upload) Validate() error {
	if u.RowCount() == 0 {
		return validation.Fail([]validation.Error{validation.MissingBody()})
	}
	var problems []validation.Error
	for _, t := range u.Tables {
		if len(t.Rows) == 0 {
			continue
		}
		problems = append(problems, table.Validate(t.Rows, t.KeyField, t.Overwrite)...)
	}
	if err := validation.Fail(problems); err != nil {
		return err
	}
	for i := range u.Tables {
		u.Tables[i].promoteKey()
	}
	return nil
}

// Process applies each table's metadata with the row processor.
func (u *Upload) Process() error {
	var problems []validation.Error
	for i := range u.Tables {
		t := &u.Tables[i]
		if t.Metadata == nil || len(t.Metadata.Columns) == 0 {
			continue
		}
		rows, rowProblems := table.Process(t.Rows, t.Metadata.Columns)
		problems = append(problems, rowProblems...)
		t.Rows = rows
	}
	return validation.Fail(problems)
}

// RowCount returns the number of rows across all tables.
func (u *Upload) RowCount() int {
	n := 0
	for _, t := range u.Tables {
		n += len(t.Rows)
	}
	return n
}

func (t *Table) promoteKey() {
	if t.KeyField == "" || t.KeyField == table.KeyField {
		return
	}
	for _, row := range t.Rows {
		row[table.KeyField] = row[t.KeyField]
	}
	t.KeyField = table.KeyField
	t.Overwrite = false
}
