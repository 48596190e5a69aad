package dialect

import (
	"context"
	"fmt"
	"strings"
)

// SQLiteDialect targets SQLite 3.33+ (UPDATE ... FROM, upsert).
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string { return "sqlite3" }

// SQLite has no schemas; the bound parameter is only consumed.
func (d *SQLiteDialect) GetColumnsQuery(schema string) string {
	return `SELECT m.name, p.name, p.type, CASE WHEN p."notnull" = 0 THEN 'YES' ELSE 'NO' END, CASE WHEN p.pk > 0 THEN 'PRI' ELSE '' END
FROM sqlite_master m JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' AND ? IS NOT NULL
ORDER BY m.name, p.cid`
}

func (d *SQLiteDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT m.name, f."from", f."table", f."to"
FROM sqlite_master m JOIN pragma_foreign_key_list(m.name) f
WHERE m.type = 'table' AND ? IS NOT NULL`
}

func (d *SQLiteDialect) GetSchemaName(input string) string {
	if input == "" {
		return "main"
	}
	return input
}

func (d *SQLiteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *SQLiteDialect) InsertQuery(table string, cols []string, conflict Conflict) (string, error) {
	return onConflictQuery(d, table, cols, conflict, "excluded")
}

// PRAGMA foreign_keys is a no-op inside a transaction, so it is issued on
// the pinned connection before any batch begins.
func (d *SQLiteDialect) DisableTriggers(ctx context.Context, q Queryer, table string) error {
	_, err := q.ExecContext(ctx, "PRAGMA foreign_keys = OFF")
	return err
}

func (d *SQLiteDialect) EnableTriggers(ctx context.Context, q Queryer, table string) error {
	_, err := q.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	return err
}

func (d *SQLiteDialect) AllowExplicitKeys(ctx context.Context, q Queryer, table string, on bool) error {
	return nil
}

func (d *SQLiteDialect) StagingTable(base string) string {
	return d.QuoteIdent("stg_" + base)
}

func (d *SQLiteDialect) CreateStagingQuery(name, key string, cols []string) string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (%s)", name, stagingColumnsDDL(d, key, cols, "INTEGER"))
}

func (d *SQLiteDialect) DropStagingQuery(name string) string {
	return "DROP TABLE IF EXISTS temp." + name
}

func (d *SQLiteDialect) CopyColumnsQuery(table, staging, key string, cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		q := d.QuoteIdent(c)
		set[i] = fmt.Sprintf("%s = stg.%s", q, q)
	}
	k := d.QuoteIdent(key)
	return fmt.Sprintf("UPDATE %s AS tgt SET %s FROM %s AS stg WHERE tgt.%s = stg.%s",
		d.QuoteIdent(table), strings.Join(set, ", "), staging, k, k)
}

// Only AUTOINCREMENT tables keep a counter (sqlite_sequence); plain rowid
// tables always hand out max(rowid)+1.
func (d *SQLiteDialect) ResetSequence(ctx context.Context, q Queryer, table, column string, next int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? AND upper(sql) LIKE '%AUTOINCREMENT%'`,
		table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup autoincrement: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	res, err := q.ExecContext(ctx, `UPDATE sqlite_sequence SET seq = ? WHERE name = ?`, next-1, table)
	if err != nil {
		return false, fmt.Errorf("update sqlite_sequence: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, err := q.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)`, table, next-1); err != nil {
			return false, fmt.Errorf("insert sqlite_sequence: %w", err)
		}
	}
	return true, nil
}
