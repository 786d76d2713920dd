package export

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/matzehuels/multinet/pkg/table"
)

func TestHeader(t *testing.T) {
	rows := table.Rows{
		{"_to": "a/1", "_from": "b/2", "weight": 1.0, "_key": "e1"},
		{"_key": "e2", "label": "x", "_id": "edges/e2"},
	}
	want := []string{"_key", "_id", "_from", "_to", "label", "weight"}
	if got := Header(rows); !reflect.DeepEqual(got, want) {
		t.Errorf("Header() = %v, want %v", got, want)
	}
}

func TestWriteCSV(t *testing.T) {
	rows := table.Rows{
		{"_key": "1", "name": "alpha", "score": 1.5, "ok": true},
		{"_key": "2", "name": "beta, gamma", "score": int64(3), "ok": nil},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "_key,name,ok,score\n1,alpha,true,1.5\n2,\"beta, gamma\",,3\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV() =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if got := buf.String(); got != "\n" {
		t.Errorf("WriteCSV(nil) = %q, want a blank header line", got)
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"s", "s"},
		{false, "false"},
		{42, "42"},
		{int64(-7), "-7"},
		{2.0, "2"},
		{0.25, "0.25"},
		{[]any{"a", 1.0}, `["a",1]`},
	}
	for _, tt := range tests {
		if got := Cell(tt.in); got != tt.want {
			t.Errorf("Cell(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Errorf("WriteJSON(nil) = %s, want []", got)
	}

	buf.Reset()
	rows := table.Rows{{"_key": "a", "n": 1.0}}
	if err := WriteJSON(&buf, rows); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var back []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(back) != 1 || back[0]["_key"] != "a" || back[0]["n"] != 1.0 {
		t.Errorf("round trip = %v", back)
	}
}
