// Package record holds the in-memory row model used while copying a table:
// named-field rows, the record set read from one source table, and the
// batcher that slices it for bulk insertion.
package record

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Row maps a column name to its value. A missing key reads as NULL.
type Row map[string]any

// Values returns the row's values in the order of cols, suitable as bound
// parameters for a statement built from the same column list.
func (r Row) Values(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = r[c]
	}
	return out
}

// Clone returns a shallow copy so callers can rewrite cells without touching
// the source record set.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Set is the full result of reading one source table.
type Set struct {
	Table   string
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Scan drains rows into named-field records keyed by cols. Columns typed as
// JSON/JSONB by the driver are decoded so structured values stay structured
// until the sanitizer decides how to store them.
func Scan(rows *sql.Rows, cols []string) ([]Row, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	if len(types) != len(cols) {
		return nil, fmt.Errorf("column count mismatch: query returned %d, expected %d", len(types), len(cols))
	}

	jsonCol := make([]bool, len(types))
	for i, ct := range types {
		switch strings.ToUpper(ct.DatabaseTypeName()) {
		case "JSON", "JSONB":
			jsonCol[i] = true
		}
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, c := range cols {
			v := normalize(values[i])
			if jsonCol[i] {
				v = decodeJSON(v)
			}
			row[c] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// normalize turns driver byte slices holding text (numeric, text, json
// columns on some drivers) into strings so they bind the same way on any
// target driver.
func normalize(v any) any {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}

func decodeJSON(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return v
	}
	return decoded
}
