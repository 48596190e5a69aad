// Package sanitize rewrites cell values before they are written to the
// target. Rules are evaluated top to bottom for every cell; the first rule
// whose table, column and predicate match is applied and the rest are
// skipped for that cell.
package sanitize

import (
	"encoding/json"
	"fmt"
	"slices"

	"db-migrate/internal/record"
)

// Predicate reports whether a rule applies to a cell value.
type Predicate func(v any) bool

// Transform produces the value written in place of v.
type Transform func(v any) (any, error)

// Rule is one entry of the ordered rule list. Empty Tables matches every
// table; Columns must name at least one column.
type Rule struct {
	Name    string
	Tables  []string
	Columns []string
	When    Predicate
	Apply   Transform
}

func (r Rule) matches(table, column string, v any) bool {
	if len(r.Tables) > 0 && !slices.Contains(r.Tables, table) {
		return false
	}
	if !slices.Contains(r.Columns, column) {
		return false
	}
	return r.When == nil || r.When(v)
}

// Sanitizer applies an ordered rule list.
type Sanitizer struct {
	rules []Rule
}

// New returns a sanitizer evaluating rules in the given order.
func New(rules ...Rule) *Sanitizer {
	return &Sanitizer{rules: rules}
}

// Rules returns a copy of the configured rules.
func (s *Sanitizer) Rules() []Rule {
	return slices.Clone(s.rules)
}

// Row rewrites the cells of row named by cols in place.
func (s *Sanitizer) Row(table string, cols []string, row record.Row) error {
	for _, col := range cols {
		v := row[col]
		for _, rule := range s.rules {
			if !rule.matches(table, col, v) {
				continue
			}
			out, err := rule.Apply(v)
			if err != nil {
				return fmt.Errorf("rule %q on %s.%s: %w", rule.Name, table, col, err)
			}
			row[col] = out
			break
		}
	}
	return nil
}

// Rows sanitizes copies of rows, leaving the inputs untouched.
func (s *Sanitizer) Rows(table string, cols []string, rows []record.Row) ([]record.Row, error) {
	out := make([]record.Row, len(rows))
	for i, r := range rows {
		c := r.Clone()
		if err := s.Row(table, cols, c); err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Always matches every value.
func Always(any) bool { return true }

// NullOrZero matches NULL and numeric zero, including "0" as text.
func NullOrZero(v any) bool {
	switch n := v.(type) {
	case nil:
		return true
	case int:
		return n == 0
	case int32:
		return n == 0
	case int64:
		return n == 0
	case uint32:
		return n == 0
	case uint64:
		return n == 0
	case float64:
		return n == 0
	case string:
		return n == "0"
	}
	return false
}

// Structured matches decoded JSON objects and arrays.
func Structured(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// Null drops the value.
func Null(any) (any, error) { return nil, nil }

// Set always writes value.
func Set(value any) Transform {
	return func(any) (any, error) { return value, nil }
}

// JSONText serializes v to its JSON text form.
func JSONText(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
