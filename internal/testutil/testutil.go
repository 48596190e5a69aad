// Package testutil provides SQLite databases shaped like the migrated
// catalog for package tests.
package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"db-migrate/internal/record"
	"db-migrate/internal/schema"

	_ "github.com/mattn/go-sqlite3"
)

// Options tweak the generated tables.
type Options struct {
	// JSONLabels declares res_groups.name as JSONB so the record reader
	// decodes it, the way a PostgreSQL source does.
	JSONLabels bool

	// ForeignKeys turns on enforcement of the res_partner self references.
	ForeignKeys bool
}

// OpenSQLite opens a fresh file-backed database.
func OpenSQLite(t testing.TB, name string, foreignKeys bool) *sql.DB {
	t.Helper()
	return OpenSQLiteAt(t, filepath.Join(t.TempDir(), name+".db"), foreignKeys)
}

// OpenSQLiteAt opens the database file at path, creating it if needed.
func OpenSQLiteAt(t testing.TB, path string, foreignKeys bool) *sql.DB {
	t.Helper()
	dsn := "file:" + path
	if foreignKeys {
		dsn += "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewCatalogDB opens a database and creates every catalog table plus
// ir_model_data.
func NewCatalogDB(t testing.TB, name string, opts Options) *sql.DB {
	t.Helper()
	return CreateCatalog(t, OpenSQLite(t, name, opts.ForeignKeys), opts)
}

// CreateCatalog creates every catalog table plus ir_model_data in db.
func CreateCatalog(t testing.TB, db *sql.DB, opts Options) *sql.DB {
	t.Helper()
	for _, spec := range schema.Catalog {
		Exec(t, db, CreateTableSQL(spec, opts))
	}
	Exec(t, db, `CREATE TABLE ir_model_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	module TEXT NOT NULL,
	name TEXT NOT NULL,
	model TEXT,
	res_id INTEGER
)`)
	return db
}

// CreateTableSQL renders a CREATE TABLE for spec. Single "id" keys become
// AUTOINCREMENT columns so they carry a sequence. res_partner also gets the
// audit timestamps written for placeholder parents.
func CreateTableSQL(spec schema.TableSpec, opts Options) string {
	var defs []string
	single := len(spec.Key) == 1 && spec.Key[0] == "id"
	cols := spec.Columns
	if spec.Name == "res_partner" {
		cols = append(slices.Clone(cols), "create_date", "write_date")
	}
	for _, c := range cols {
		switch {
		case single && c == "id":
			defs = append(defs, "id INTEGER PRIMARY KEY AUTOINCREMENT")
		case opts.JSONLabels && spec.Name == "res_groups" && c == "name":
			defs = append(defs, "name JSONB")
		case spec.Name == "res_partner" && (c == "parent_id" || c == "commercial_partner_id"):
			defs = append(defs, c+" INTEGER REFERENCES res_partner(id)")
		default:
			defs = append(defs, c)
		}
	}
	if !single {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(spec.Key, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", spec.Name, strings.Join(defs, ",\n\t"))
}

// Exec runs a statement and fails the test on error.
func Exec(t testing.TB, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// Insert writes row into table using only the columns the row sets.
func Insert(t testing.TB, db *sql.DB, table string, row record.Row) {
	t.Helper()
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), marks)
	Exec(t, db, query, row.Values(cols)...)
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// Rows reads cols of table ordered by the first column.
func Rows(t testing.TB, db *sql.DB, table string, cols ...string) []record.Row {
	t.Helper()
	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(cols, ", "), table, cols[0]))
	if err != nil {
		t.Fatalf("select %s: %v", table, err)
	}
	defer rows.Close()
	out, err := record.Scan(rows, cols)
	if err != nil {
		t.Fatalf("scan %s: %v", table, err)
	}
	return out
}

// Value reads a single value.
func Value(t testing.TB, db *sql.DB, query string, args ...any) any {
	t.Helper()
	var v any
	if err := db.QueryRow(query, args...).Scan(&v); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
