package dialect

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed and a function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

// UpdatableColumns returns cols minus the conflict keys, keeping order.
// Assigning a key column to itself is never emitted.
func UpdatableColumns(cols, keys []string) []string {
	var out []string
	for _, c := range cols {
		if !slices.Contains(keys, c) {
			out = append(out, c)
		}
	}
	return out
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdent reports whether name is a plain lower-case SQL identifier. Only
// such names are ever spliced into statements.
func ValidIdent(name string) bool {
	return identPattern.MatchString(name)
}

// CheckIdents returns an error naming the first invalid identifier.
func CheckIdents(names ...string) error {
	for _, n := range names {
		if !ValidIdent(n) {
			return fmt.Errorf("invalid identifier %q", n)
		}
	}
	return nil
}

func quoteAll(cols []string, quote func(string) string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quote(c)
	}
	return out
}

// onConflictQuery renders the PostgreSQL/SQLite form, which share syntax.
// An ignore has no conflict target, so a clash on any unique constraint
// skips the row; keys only name the target of an update.
func onConflictQuery(d Dialect, table string, cols []string, c Conflict, excluded string) (string, error) {
	if err := c.Validate(cols); err != nil {
		return "", err
	}
	base := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table),
		strings.Join(quoteAll(cols, d.QuoteIdent), ", "),
		GeneratePlaceholders(len(cols), d.Placeholder))

	updates := UpdatableColumns(cols, c.Keys)
	if !c.Updates() || len(updates) == 0 {
		return base + " ON CONFLICT DO NOTHING", nil
	}
	target := " (" + strings.Join(quoteAll(c.Keys, d.QuoteIdent), ", ") + ")"

	set := make([]string, len(updates))
	for i, col := range updates {
		q := d.QuoteIdent(col)
		set[i] = fmt.Sprintf("%s = %s.%s", q, excluded, q)
	}
	return base + " ON CONFLICT" + target + " DO UPDATE SET " + strings.Join(set, ", "), nil
}

// mergeQuery renders a MERGE upsert for dialects without ON CONFLICT. source
// is the derived table expression carrying the bound row, aliased src. MERGE
// matches on the keys only, so an ignore still fails on other unique clashes.
func mergeQuery(d Dialect, table string, cols []string, c Conflict, source, terminator string) (string, error) {
	if err := c.Validate(cols); err != nil {
		return "", err
	}
	if len(c.Keys) == 0 {
		return "", fmt.Errorf("%s needs key columns to detect conflicts", d.Name())
	}

	on := make([]string, len(c.Keys))
	for i, k := range c.Keys {
		q := d.QuoteIdent(k)
		on[i] = fmt.Sprintf("tgt.%s = src.%s", q, q)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE INTO %s tgt USING %s ON (%s)", d.QuoteIdent(table), source, strings.Join(on, " AND "))

	if updates := UpdatableColumns(cols, c.Keys); c.Updates() && len(updates) > 0 {
		set := make([]string, len(updates))
		for i, col := range updates {
			q := d.QuoteIdent(col)
			set[i] = fmt.Sprintf("tgt.%s = src.%s", q, q)
		}
		b.WriteString(" WHEN MATCHED THEN UPDATE SET " + strings.Join(set, ", "))
	}

	quoted := quoteAll(cols, d.QuoteIdent)
	srcCols := make([]string, len(quoted))
	for i, q := range quoted {
		srcCols[i] = "src." + q
	}
	fmt.Fprintf(&b, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s)%s",
		strings.Join(quoted, ", "), strings.Join(srcCols, ", "), terminator)
	return b.String(), nil
}

func stagingColumnsDDL(d Dialect, key string, cols []string, intType string) string {
	defs := []string{fmt.Sprintf("%s %s PRIMARY KEY", d.QuoteIdent(key), intType)}
	for _, c := range cols {
		defs = append(defs, fmt.Sprintf("%s %s NULL", d.QuoteIdent(c), intType))
	}
	return strings.Join(defs, ", ")
}
