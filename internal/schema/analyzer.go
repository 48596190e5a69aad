package schema

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"db-migrate/internal/dialect"
)

// ---------------------------------------------------------------------
// Schema Analysis Logic
// ---------------------------------------------------------------------

// Analyze introspects the columns and foreign keys of the named tables (all
// tables when only is empty) and returns them in dependency order.
func Analyze(ctx context.Context, db dialect.Queryer, d dialect.Dialect, schemaName string, only []string) ([]*Table, error) {
	// [Interface-First]: Delegate schema resolution to the dialect
	target := d.GetSchemaName(schemaName)

	keep := func(name string) bool {
		return len(only) == 0 || slices.Contains(only, name)
	}

	tableMap := make(map[string]*Table)
	var tables []*Table

	// --- Step 1: Fetch Columns ---
	colRows, err := db.QueryContext(ctx, d.GetColumnsQuery(target), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer colRows.Close()

	for colRows.Next() {
		var tName, cName, dType, isNull, cKey sql.NullString
		if err := colRows.Scan(&tName, &cName, &dType, &isNull, &cKey); err != nil {
			return nil, fmt.Errorf("failed to scan column (table: %s): %w", tName.String, err)
		}
		if !tName.Valid || !cName.Valid || !keep(tName.String) {
			continue
		}

		t, ok := tableMap[tName.String]
		if !ok {
			t = &Table{Name: tName.String, Dependencies: []string{}}
			tableMap[t.Name] = t
			tables = append(tables, t)
		}
		t.Columns = append(t.Columns, &Column{
			Name:       cName.String,
			DataType:   strings.ToLower(dType.String),
			IsNullable: isNull.String == "YES",
			IsPK:       strings.Contains(cKey.String, "PRI"),
		})
	}
	if err := colRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	colRows.Close()

	// --- Step 2: Fetch Foreign Keys ---
	fkRows, err := db.QueryContext(ctx, d.GetForeignKeysQuery(target), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var tName, cName, rTable, rCol sql.NullString
		if err := fkRows.Scan(&tName, &cName, &rTable, &rCol); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		t, ok := tableMap[tName.String]
		if !ok || !rTable.Valid {
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, &ForeignKey{
			Column:    cName.String,
			RefTable:  rTable.String,
			RefColumn: rCol.String,
		})
		// Only known, non-self tables order the result.
		if _, known := tableMap[rTable.String]; known && rTable.String != t.Name && !slices.Contains(t.Dependencies, rTable.String) {
			t.Dependencies = append(t.Dependencies, rTable.String)
		}
	}
	if err := fkRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}

	return SortTablesByFKCount(tables), nil
}

// MissingColumns returns the catalog columns of spec that table lacks. A nil table
// means the whole table is missing and every column is reported.
func MissingColumns(spec TableSpec, table *Table) []string {
	if table == nil {
		return slices.Clone(spec.Columns)
	}
	var missing []string
	for _, c := range spec.Columns {
		if !table.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Find returns the table named name from an Analyze result.
func Find(tables []*Table, name string) *Table {
	for _, t := range tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// ---------------------------------------------------------------------
// Sorting Algorithm (Topological / Greedy)
// ---------------------------------------------------------------------

// SortTablesByFKCount sorts tables so referenced tables come first. Cycles
// are broken by picking the table with the fewest unresolved dependencies,
// preferring one that sits on a two-table cycle, then by name.
func SortTablesByFKCount(tables []*Table) []*Table {
	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	sorted := make([]*Table, 0, len(tables))
	done := make(map[string]bool, len(tables))

	pending := func(t *Table) int {
		n := 0
		for _, dep := range t.Dependencies {
			if !done[dep] {
				n++
			}
		}
		return n
	}

	for len(sorted) < len(tables) {
		progressed := false
		for _, t := range tables {
			if !done[t.Name] && pending(t) == 0 {
				sorted = append(sorted, t)
				done[t.Name] = true
				progressed = true
			}
		}
		if progressed {
			continue
		}

		// Every remaining table waits on another: break the cycle.
		var pick *Table
		best := 0
		for _, t := range tables {
			if done[t.Name] {
				continue
			}
			score := -100 * pending(t)
			for _, dep := range t.Dependencies {
				if other, ok := byName[dep]; ok && !done[dep] && slices.Contains(other.Dependencies, t.Name) {
					score += 500
					break
				}
			}
			if pick == nil || score > best || (score == best && t.Name < pick.Name) {
				pick, best = t, score
			}
		}
		sorted = append(sorted, pick)
		done[pick.Name] = true
	}
	return sorted
}
