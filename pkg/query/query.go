// Package query represents table reads that are either still to be run
// against a store or already materialized.
//
// A [Result] is a tagged variant: its [Kind] says which fields are
// meaningful, and [Result.Resolve] switches on the kind rather than on
// dynamic types.
package query

import (
	"context"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/table"
)

// Kind tags a Result.
type Kind int

const (
	// KindLazy results name a table slice that has not been read yet.
	KindLazy Kind = iota + 1
	// KindRealized results hold their rows.
	KindRealized
)

func (k Kind) String() string {
	switch k {
	case KindLazy:
		return "lazy"
	case KindRealized:
		return "realized"
	default:
		return "unknown"
	}
}

// RowReader reads whole tables.
type RowReader interface {
	ReadAllRows(ctx context.Context, workspace, name string) (table.Rows, error)
}

// Result is a lazy or realized table read.
type Result struct {
	Kind Kind

	// Lazy fields.
	Workspace string
	Table     string
	Offset    int
	// Limit of zero or less means no limit.
	Limit int

	// Realized fields.
	Rows table.Rows
}

// Lazy describes rows [offset, offset+limit) of a table.
func Lazy(workspace, name string, offset, limit int) Result {
	return Result{Kind: KindLazy, Workspace: workspace, Table: name, Offset: offset, Limit: limit}
}

// Realized wraps rows that are already in memory.
func Realized(rows table.Rows) Result {
	return Result{Kind: KindRealized, Rows: rows}
}

// Resolve returns the rows of r, reading them through reader when r is lazy.
func (r Result) Resolve(ctx context.Context, reader RowReader) (table.Rows, error) {
	switch r.Kind {
	case KindRealized:
		if r.Rows == nil {
			return table.Rows{}, nil
		}
		return r.Rows, nil
	case KindLazy:
		rows, err := reader.ReadAllRows(ctx, r.Workspace, r.Table)
		if err != nil {
			return nil, err
		}
		return Page(rows, r.Offset, r.Limit), nil
	default:
		return nil, errs.New(errs.ErrCodeInternal, "unknown query result kind %d", int(r.Kind))
	}
}

// Page returns rows[offset:offset+limit], clamped to the slice. A limit of
// zero or less returns everything after offset.
func Page(rows table.Rows, offset, limit int) table.Rows {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return table.Rows{}
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}
