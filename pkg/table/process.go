package table

import (
	"math"
	"strconv"
	"time"

	"github.com/araddon/dateparse"

	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/validation"
)

// DateLayout is the ISO-8601 layout used for converted date cells.
const DateLayout = time.RFC3339

// Process casts the cells of declared columns to their declared types.
//
// For every declared column present in a row:
//   - an empty string becomes nil, whatever the type
//   - number cells parse as int64, falling back to float64
//   - boolean cells try "0"/"1", then JSON true/false, then YAML 1.1 words
//   - date cells that are all digits are Unix seconds; anything else is
//     parsed free-form; both are rendered with [DateLayout] in UTC
//
// A cell that cannot be converted keeps its raw value and adds an
// IncompatibleMetadata error; a declared column missing from a row adds a
// ColumnNotFound error. Processing never stops early and never panics; the
// caller decides whether the returned errors are fatal.
//
// The input rows are never modified; the result is always a fresh copy.
func Process(rows Rows, columns []metadata.Column) (Rows, []validation.Error) {
	out := rows.Clone()
	if len(columns) == 0 || len(rows) == 0 {
		return out, nil
	}

	var problems []validation.Error
	for i, row := range out {
		for _, col := range columns {
			raw, ok := row[col.Key]
			if !ok {
				problems = append(problems, validation.ColumnNotFound(FileRow(i), col.Key))
				continue
			}
			s, isString := raw.(string)
			if !isString {
				continue
			}
			if s == "" {
				row[col.Key] = nil
				continue
			}
			if !col.Type.Converts() {
				continue
			}
			v, ok := cast(col.Type, s)
			if !ok {
				problems = append(problems, validation.IncompatibleMetadata(FileRow(i), col.Key, string(col.Type)))
				continue
			}
			row[col.Key] = v
		}
	}
	return out, problems
}

func cast(t metadata.ColumnType, s string) (any, bool) {
	switch t {
	case metadata.TypeNumber:
		return castNumber(s)
	case metadata.TypeBoolean:
		return castBoolean(s)
	case metadata.TypeDate:
		return castDate(s)
	default:
		return s, true
	}
}

func castNumber(s string) (any, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	// NaN and the infinities parse but cannot be stored as JSON numbers.
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}
	return nil, false
}

// boolCasters are tried in order; the first success wins.
var boolCasters = []func(string) (bool, bool){
	castBinary,
	castJSONBool,
	castYAMLBool,
}

func castBoolean(s string) (any, bool) {
	for _, c := range boolCasters {
		if b, ok := c(s); ok {
			return b, true
		}
	}
	return nil, false
}

func castBinary(s string) (bool, bool) {
	switch s {
	case "0":
		return false, true
	case "1":
		return true, true
	}
	return false, false
}

// castJSONBool accepts only the two JSON boolean literals, unpadded.
func castJSONBool(s string) (bool, bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// yamlBools is the YAML 1.1 boolean vocabulary.
var yamlBools = map[string]bool{
	"yes": true, "Yes": true, "YES": true,
	"on": true, "On": true, "ON": true,
	"true": true, "True": true, "TRUE": true,
	"no": false, "No": false, "NO": false,
	"off": false, "Off": false, "OFF": false,
	"false": false, "False": false, "FALSE": false,
}

func castYAMLBool(s string) (bool, bool) {
	b, ok := yamlBools[s]
	return b, ok
}

func castDate(s string) (any, bool) {
	if isDigits(s) {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false
		}
		return time.Unix(secs, 0).UTC().Format(DateLayout), true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil, false
	}
	return t.UTC().Format(DateLayout), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
