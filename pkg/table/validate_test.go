package table

import (
	"reflect"
	"testing"

	"github.com/matzehuels/multinet/pkg/validation"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		rows     Rows
		keyField string
		want     Shape
	}{
		{"edge", Rows{{"_from": "a/1", "_to": "b/2"}}, "_key", ShapeEdge},
		{"node by _key", Rows{{"_key": "1"}}, "_key", ShapeNode},
		{"node by nominated key", Rows{{"id": "1"}}, "id", ShapeNode},
		{"only _from", Rows{{"_from": "a/1", "name": "x"}}, "_key", ShapeUnsupported},
		{"plain", Rows{{"name": "x"}}, "_key", ShapeUnsupported},
		{"empty", Rows{}, "_key", ShapeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.rows, tt.keyField); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateEmpty(t *testing.T) {
	got := Validate(nil, "_key", false)
	want := []validation.Error{validation.MissingBody()}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate(nil) = %v, want %v", got, want)
	}
}

func TestValidateUnsupported(t *testing.T) {
	got := Validate(Rows{{"name": "alice"}, {"name": "bob"}}, "_key", false)
	if len(got) != 1 || got[0].Kind != validation.KindUnsupportedTable {
		t.Errorf("Validate() = %v, want single UnsupportedTable", got)
	}
}

func TestValidateNodeTableUniqueKeys(t *testing.T) {
	rows := Rows{
		{"_key": "1", "name": "alice"},
		{"_key": "2", "name": "bob"},
		{"_key": "3", "name": "carol"},
	}
	if got := Validate(rows, "_key", false); len(got) != 0 {
		t.Errorf("Validate() = %v, want no errors", got)
	}
}

func TestValidateDuplicateKeys(t *testing.T) {
	rows := Rows{
		{"_key": "a"},
		{"_key": "b"},
		{"_key": "a"},
		{"_key": "c"},
		{"_key": "a"},
		{"_key": "b"},
	}
	got := Validate(rows, "_key", false)
	want := []validation.Error{
		validation.DuplicateKey("a"),
		validation.DuplicateKey("b"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate() = %v, want %v", got, want)
	}
}

func TestValidateDuplicateNumericKeys(t *testing.T) {
	rows := Rows{{"_key": float64(1)}, {"_key": "1"}}
	got := Validate(rows, "_key", false)
	if validation.Count(got, validation.KindDuplicateKey) != 1 {
		t.Errorf("Validate() = %v, want one DuplicateKey", got)
	}
}

func TestValidateNominatedKey(t *testing.T) {
	tests := []struct {
		name      string
		rows      Rows
		keyField  string
		overwrite bool
		want      []validation.Error
	}{
		{
			name:     "nominated key exists",
			rows:     Rows{{"id": "1"}, {"id": "2"}},
			keyField: "id",
		},
		{
			name:     "nominated key missing",
			rows:     Rows{{"name": "1"}, {"name": "1"}},
			keyField: "id",
			want:     []validation.Error{validation.KeyFieldDoesNotExist("id")},
		},
		{
			name:     "existing _key without overwrite",
			rows:     Rows{{"_key": "x", "id": "1"}},
			keyField: "id",
			want:     []validation.Error{validation.KeyFieldAlreadyExists("id")},
		},
		{
			name:      "existing _key with overwrite",
			rows:      Rows{{"_key": "x", "id": "1"}, {"_key": "y", "id": "2"}},
			keyField:  "id",
			overwrite: true,
		},
		{
			name:      "duplicates in nominated key",
			rows:      Rows{{"id": "1"}, {"id": "1"}},
			keyField:  "id",
			overwrite: true,
			want:      []validation.Error{validation.DuplicateKey("1")},
		},
		{
			name:     "row missing nominated key",
			rows:     Rows{{"id": "1"}, {"name": "x"}},
			keyField: "id",
			want:     []validation.Error{validation.InvalidRow(3, "id")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.rows, tt.keyField, tt.overwrite)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateEdgeTable(t *testing.T) {
	valid := Rows{
		{"_from": "people/1", "_to": "places/9"},
		{"_from": "people/2", "_to": "places/3", "weight": "1"},
	}
	if got := Validate(valid, "_key", false); len(got) != 0 {
		t.Errorf("Validate(valid) = %v, want no errors", got)
	}

	invalid := Rows{
		{"_from": "people/1", "_to": "places/9"},
		{"_from": "badvalue", "_to": "places/9"},
		{"_from": "a/b/c", "_to": "/9"},
		{"_from": "people/", "_to": "places/9"},
	}
	got := Validate(invalid, "_key", false)
	want := []validation.Error{
		validation.InvalidRow(3, "_from"),
		validation.InvalidRow(4, "_from", "_to"),
		validation.InvalidRow(5, "_from"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate(invalid) = %v, want %v", got, want)
	}
}

func TestValidateEdgeTableMissingCells(t *testing.T) {
	rows := Rows{
		{"_from": "a/1", "_to": "b/1"},
		{"_from": "a/2"},
		{"_from": 7, "_to": "b/1"},
	}
	got := Validate(rows, "_key", false)
	want := []validation.Error{
		validation.InvalidRow(3, "_to"),
		validation.InvalidRow(4, "_from"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate() = %v, want %v", got, want)
	}
}

func TestValidateEdgeBeatsKeyField(t *testing.T) {
	rows := Rows{{"_key": "e1", "_from": "a/1", "_to": "b/1"}}
	if got := Validate(rows, "_key", false); len(got) != 0 {
		t.Errorf("Validate() = %v, want edge table with no errors", got)
	}
}
