package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/table"
)

// CSVOptions controls CSV parsing.
type CSVOptions struct {
	// Key nominates the key column. Empty means "_key".
	Key string
	// Overwrite lets Key replace an existing "_key" column.
	Overwrite bool
	// Delimiter defaults to a comma.
	Delimiter rune
	// Columns is optional metadata applied before insertion.
	Columns []metadata.Column
}

// ParseCSV parses a header row plus records into a single table named name.
// Cells stay strings; types come from metadata.
func ParseCSV(data []byte, name string, opts CSVOptions) (*Upload, error) {
	if opts.Key != "" {
		if err := errs.ValidateKeyField(opts.Key); err != nil {
			return nil, err
		}
	}
	var meta *metadata.Record
	if opts.Columns != nil {
		meta = &metadata.Record{Table: name, Columns: opts.Columns}
		if err := meta.Validate(); err != nil {
			return nil, err
		}
	}

	r := csv.NewReader(bytes.NewReader(data))
	if opts.Delimiter != 0 {
		r.Comma = opts.Delimiter
	}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &Upload{Format: FormatCSV, Tables: []Table{{Name: name, Rows: table.Rows{}, KeyField: opts.Key}}}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeDecode, err, "read CSV header")
	}
	header = append([]string(nil), header...)

	rows := table.Rows{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeDecode, err, "read CSV")
		}
		row := make(table.Row, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}

	keyField := opts.Key
	if keyField == "" {
		keyField = table.KeyField
	}
	return &Upload{
		Format: FormatCSV,
		Tables: []Table{{
			Name:      name,
			Edge:      table.Classify(rows, keyField) == table.ShapeEdge,
			Columns:   header,
			Rows:      rows,
			KeyField:  keyField,
			Overwrite: opts.Overwrite,
			Metadata:  meta,
		}},
	}, nil
}
