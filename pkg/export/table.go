package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/matzehuels/multinet/pkg/table"
)

// leadingColumns come first in CSV headers, in this order, when present.
var leadingColumns = []string{table.KeyField, table.IDField, table.FromField, table.ToField}

// Header returns the union of row fields: system fields first, then the
// rest sorted.
func Header(rows table.Rows) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}
	var out []string
	for _, c := range leadingColumns {
		if seen[c] {
			out = append(out, c)
			delete(seen, c)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// WriteCSV writes rows with a header line. Missing and nil cells are empty.
func WriteCSV(w io.Writer, rows table.Rows) error {
	header := Header(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, r := range rows {
		for i, col := range header {
			record[i] = Cell(r[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Cell formats one value for CSV output.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// WriteJSON writes rows as a JSON array.
func WriteJSON(w io.Writer, rows table.Rows) error {
	if rows == nil {
		rows = table.Rows{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
