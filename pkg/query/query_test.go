package query

import (
	"context"
	"reflect"
	"testing"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/table"
)

type staticReader struct {
	rows  table.Rows
	calls int
}

func (s *staticReader) ReadAllRows(ctx context.Context, workspace, name string) (table.Rows, error) {
	s.calls++
	if name != "t" {
		return nil, errs.New(errs.ErrCodeNotFound, "table %q not found", name)
	}
	return s.rows, nil
}

func rowsN(n int) table.Rows {
	out := make(table.Rows, n)
	for i := range out {
		out[i] = table.Row{"_key": string(rune('a' + i))}
	}
	return out
}

func TestPage(t *testing.T) {
	rows := rowsN(5)
	tests := []struct {
		name          string
		offset, limit int
		want          int
		first         string
	}{
		{"all", 0, 0, 5, "a"},
		{"first two", 0, 2, 2, "a"},
		{"middle", 2, 2, 2, "c"},
		{"past end", 10, 2, 0, ""},
		{"clamped", 4, 10, 1, "e"},
		{"negative offset", -3, 1, 1, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Page(rows, tt.offset, tt.limit)
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}
			if tt.want > 0 && got[0]["_key"] != tt.first {
				t.Errorf("first = %v, want %s", got[0]["_key"], tt.first)
			}
			if got == nil {
				t.Error("Page should never return nil")
			}
		})
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	reader := &staticReader{rows: rowsN(3)}

	got, err := Lazy("ws", "t", 1, 1).Resolve(ctx, reader)
	if err != nil {
		t.Fatalf("lazy Resolve error: %v", err)
	}
	if !reflect.DeepEqual(got, table.Rows{{"_key": "b"}}) {
		t.Errorf("lazy = %v", got)
	}
	if reader.calls != 1 {
		t.Errorf("reader called %d times", reader.calls)
	}

	got, err = Realized(rowsN(2)).Resolve(ctx, reader)
	if err != nil || len(got) != 2 {
		t.Errorf("realized = %v, %v", got, err)
	}
	if reader.calls != 1 {
		t.Error("realized results must not touch the reader")
	}

	if got, _ := Realized(nil).Resolve(ctx, reader); got == nil {
		t.Error("realized nil rows should resolve to an empty slice")
	}

	if _, err := Lazy("ws", "missing", 0, 0).Resolve(ctx, reader); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("missing table error = %v", err)
	}

	if _, err := (Result{}).Resolve(ctx, reader); !errs.Is(err, errs.ErrCodeInternal) {
		t.Errorf("zero Result error = %v, want INTERNAL_ERROR", err)
	}
}

func TestKindString(t *testing.T) {
	if KindLazy.String() != "lazy" || KindRealized.String() != "realized" || Kind(0).String() != "unknown" {
		t.Error("unexpected Kind strings")
	}
}
