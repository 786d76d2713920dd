package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds workspace, table and graph names.
const maxNameLength = 128

// nameRegex matches names usable as workspace, table or graph identifiers.
// Names must start with a letter so they are valid collection names in every backend.
var nameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ValidateName validates a workspace, table or graph name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No slashes, since "/" separates table and key in row references
//   - Maximum length of 128 characters
//   - Letters, digits, underscore and dash only, starting with a letter
//
// kind is used in the error message ("workspace", "table", "graph").
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "%s name cannot be empty", kind)
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "%s name too long (max %d characters)", kind, maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "%s name contains invalid control characters", kind)
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidName, "%s name cannot contain slashes: %q", kind, name)
	}

	if !nameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid %s name: %q", kind, name)
	}

	return nil
}

// ValidateKeyField validates a column name nominated as a table's key field.
// Key fields come from CSV headers, so only emptiness and control characters are rejected.
func ValidateKeyField(field string) error {
	if field == "" {
		return New(ErrCodeInvalidInput, "key field cannot be empty")
	}
	for _, r := range field {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "key field contains invalid characters")
		}
	}
	return nil
}
