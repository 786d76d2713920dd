package ingest

import (
	"reflect"
	"testing"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/table"
	"github.com/matzehuels/multinet/pkg/validation"
)

func prepareCSV(t *testing.T, text string, opts CSVOptions) (*Upload, error) {
	t.Helper()
	return Prepare(FormatCSV, "people", []byte(text), opts)
}

func TestCSVNodeTable(t *testing.T) {
	up, err := prepareCSV(t, "_key,name\na,Ada\nb,Bob\n", CSVOptions{})
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	if len(up.Tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(up.Tables))
	}
	tbl := up.Tables[0]
	if tbl.Name != "people" || tbl.Edge {
		t.Errorf("table = %s edge=%v", tbl.Name, tbl.Edge)
	}
	if !reflect.DeepEqual(tbl.Columns, []string{"_key", "name"}) {
		t.Errorf("Columns = %v", tbl.Columns)
	}
	want := table.Rows{{"_key": "a", "name": "Ada"}, {"_key": "b", "name": "Bob"}}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Errorf("Rows = %v, want %v", tbl.Rows, want)
	}
}

func TestCSVEdgeTable(t *testing.T) {
	up, err := prepareCSV(t, "_from,_to,weight\npeople/a,people/b,3\n", CSVOptions{})
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	if !up.Tables[0].Edge {
		t.Error("table with _from/_to should be an edge table")
	}
}

func TestCSVNominatedKey(t *testing.T) {
	up, err := prepareCSV(t, "id,name\n1,Ada\n2,Bob\n", CSVOptions{Key: "id"})
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	rows := up.Tables[0].Rows
	if rows[0]["_key"] != "1" || rows[0]["id"] != "1" {
		t.Errorf("key not promoted: %v", rows[0])
	}
}

func TestCSVOverwrite(t *testing.T) {
	text := "_key,id\nx,1\ny,2\n"

	_, err := prepareCSV(t, text, CSVOptions{Key: "id"})
	list, ok := validation.Errors(err)
	if !ok || len(list) != 1 || list[0].Kind != validation.KindKeyFieldAlreadyExists {
		t.Fatalf("without overwrite: %v", err)
	}

	up, err := prepareCSV(t, text, CSVOptions{Key: "id", Overwrite: true})
	if err != nil {
		t.Fatalf("with overwrite: %v", err)
	}
	if got := up.Tables[0].Rows[1]["_key"]; got != "2" {
		t.Errorf("_key = %v, want 2", got)
	}
}

func TestCSVValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts CSVOptions
		want []validation.Error
	}{
		{"header only", "_key,name\n", CSVOptions{}, []validation.Error{validation.MissingBody()}},
		{"empty", "", CSVOptions{}, []validation.Error{validation.MissingBody()}},
		{"no key column", "name\nAda\n", CSVOptions{}, []validation.Error{validation.UnsupportedTable()}},
		{"missing nominated key", "name\nAda\n", CSVOptions{Key: "id"}, []validation.Error{validation.KeyFieldDoesNotExist("id")}},
		{"duplicates", "_key\na\nb\na\nb\na\n", CSVOptions{}, []validation.Error{
			validation.DuplicateKey("a"), validation.DuplicateKey("b"),
		}},
		{"bad edge", "_from,_to\npeople/a,b\n", CSVOptions{}, []validation.Error{validation.InvalidRow(2, "_to")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prepareCSV(t, tt.text, tt.opts)
			got, ok := validation.Errors(err)
			if !ok {
				t.Fatalf("expected validation failure, got %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("errors = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCSVWithMetadata(t *testing.T) {
	cols := []metadata.Column{
		{Key: "age", Type: metadata.TypeNumber},
		{Key: "member", Type: metadata.TypeBoolean},
	}
	up, err := prepareCSV(t, "_key,age,member\na,42,yes\nb,,0\n", CSVOptions{Columns: cols})
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	rows := up.Tables[0].Rows
	if rows[0]["age"] != int64(42) || rows[0]["member"] != true {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1]["age"] != nil || rows[1]["member"] != false {
		t.Errorf("row 1 = %v", rows[1])
	}

	_, err = prepareCSV(t, "_key,age\na,old\n", CSVOptions{Columns: cols[:1]})
	list, ok := validation.Errors(err)
	if !ok || !reflect.DeepEqual(list, []validation.Error{validation.IncompatibleMetadata(2, "age", "number")}) {
		t.Errorf("bad number: %v", err)
	}

	_, err = prepareCSV(t, "_key\na\n", CSVOptions{Columns: []metadata.Column{{Key: "x", Type: "money"}}})
	if !errs.Is(err, errs.ErrCodeInvalidMetadata) {
		t.Errorf("invalid metadata: %v", err)
	}
}

func TestCSVDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"invalid utf8", []byte("_key\n\xff\xfe\xfd\n")},
		{"ragged rows", []byte("_key,name\na\n")},
		{"bad quote", []byte("_key\n\"a\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(FormatCSV, "people", tt.data, CSVOptions{})
			if !errs.Is(err, errs.ErrCodeDecode) {
				t.Errorf("error = %v, want DECODE_ERROR", err)
			}
		})
	}
}

func TestCSVDelimiter(t *testing.T) {
	up, err := prepareCSV(t, "_key;name\na;Ada\n", CSVOptions{Delimiter: ';'})
	if err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	if up.Tables[0].Rows[0]["name"] != "Ada" {
		t.Errorf("row = %v", up.Tables[0].Rows[0])
	}
}

func TestPrepareRejectsBadNames(t *testing.T) {
	if _, err := Prepare(FormatCSV, "bad/name", []byte("_key\na\n"), CSVOptions{}); !errs.Is(err, errs.ErrCodeInvalidName) {
		t.Errorf("error = %v, want INVALID_NAME", err)
	}
	if _, err := Prepare("xml", "ok", []byte("<a/>"), CSVOptions{}); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("error = %v, want UNSUPPORTED", err)
	}
}
