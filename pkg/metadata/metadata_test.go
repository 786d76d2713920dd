package metadata

import (
	"testing"

	errs "github.com/matzehuels/multinet/pkg/errors"
)

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     *Record
		wantErr bool
	}{
		{"nil", nil, true},
		{"empty", Empty("t"), false},
		{"all types", &Record{Columns: []Column{
			{Key: "a", Type: TypeNumber},
			{Key: "b", Type: TypeBoolean},
			{Key: "c", Type: TypeDate},
			{Key: "d", Type: TypeLabel},
			{Key: "e", Type: TypeCategory},
		}}, false},
		{"missing key", &Record{Columns: []Column{{Type: TypeNumber}}}, true},
		{"unknown type", &Record{Columns: []Column{{Key: "a", Type: "money"}}}, true},
		{"duplicate key", &Record{Columns: []Column{
			{Key: "a", Type: TypeNumber},
			{Key: "a", Type: TypeDate},
		}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr {
				if !errs.Is(err, errs.ErrCodeInvalidMetadata) {
					t.Errorf("Validate() = %v, want INVALID_METADATA", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestColumnTypeConverts(t *testing.T) {
	for typ, want := range map[ColumnType]bool{
		TypeNumber:   true,
		TypeBoolean:  true,
		TypeDate:     true,
		TypeLabel:    false,
		TypeCategory: false,
	} {
		if got := typ.Converts(); got != want {
			t.Errorf("%s.Converts() = %v, want %v", typ, got, want)
		}
	}
}

func TestRecordClone(t *testing.T) {
	orig := &Record{Table: "t", Columns: []Column{{Key: "a", Type: TypeNumber}}}
	cp := orig.Clone()
	cp.Columns[0].Type = TypeDate
	if orig.Columns[0].Type != TypeNumber {
		t.Error("Clone shares the column slice")
	}
	if (*Record)(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}
