package errors

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "people", false},
		{"with dash", "my-table", false},
		{"with underscore", "miserables_nodes", false},
		{"with digits", "table2", false},
		{"uppercase", "People", false},

		{"empty", "", true},
		{"too long", "a" + strings.Repeat("b", 200), true},
		{"slash", "people/1", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"starts with digit", "1table", true},
		{"starts with underscore", "_system", true},
		{"space", "my table", true},
		{"dot", "my.table", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName("table", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidName) {
				t.Errorf("ValidateName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidName)
			}
		})
	}
}

func TestValidateKeyField(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"default", "_key", false},
		{"custom", "id", false},
		{"with space", "node id", false},

		{"empty", "", true},
		{"null byte", "id\x00", true},
		{"tab", "id\t", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKeyField(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKeyField(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
