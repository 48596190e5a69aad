package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) GetColumnsQuery(schema string) string {
	// Subquery used to fetch PRIMARY KEY membership per column.
	return `SELECT 
    c.table_name, 
    c.column_name, 
    c.udt_name, 
    c.is_nullable, 
    COALESCE((SELECT 'PRI' FROM information_schema.table_constraints tc 
     JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name 
     WHERE tc.constraint_type = 'PRIMARY KEY' 
     AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name LIMIT 1), '') AS column_key
FROM information_schema.columns c
WHERE c.table_schema = $1 
ORDER BY c.table_name, c.ordinal_position`
}

func (d *PostgresDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT kcu.table_name, kcu.column_name, ccu.table_name AS referenced_table_name, ccu.column_name AS referenced_column_name FROM information_schema.key_column_usage kcu JOIN information_schema.constraint_column_usage ccu ON kcu.constraint_name = ccu.constraint_name JOIN information_schema.table_constraints tc ON kcu.constraint_name = tc.constraint_name WHERE kcu.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'`
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *PostgresDialect) InsertQuery(table string, cols []string, conflict Conflict) (string, error) {
	return onConflictQuery(d, table, cols, conflict, "EXCLUDED")
}

// DisableTriggers turns off user and FK triggers so rows can land in any
// order. ALTER TABLE is transactional here and autocommits on the conn.
func (d *PostgresDialect) DisableTriggers(ctx context.Context, q Queryer, table string) error {
	_, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DISABLE TRIGGER ALL", d.QuoteIdent(table)))
	return err
}

func (d *PostgresDialect) EnableTriggers(ctx context.Context, q Queryer, table string) error {
	_, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ENABLE TRIGGER ALL", d.QuoteIdent(table)))
	return err
}

// Serial and identity columns accept explicit values without a session switch.
func (d *PostgresDialect) AllowExplicitKeys(ctx context.Context, q Queryer, table string, on bool) error {
	return nil
}

func (d *PostgresDialect) StagingTable(base string) string {
	return d.QuoteIdent("stg_" + base)
}

func (d *PostgresDialect) CreateStagingQuery(name, key string, cols []string) string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (%s) ON COMMIT DROP", name, stagingColumnsDDL(d, key, cols, "BIGINT"))
}

func (d *PostgresDialect) DropStagingQuery(name string) string {
	return "DROP TABLE IF EXISTS " + name
}

func (d *PostgresDialect) CopyColumnsQuery(table, staging, key string, cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		q := d.QuoteIdent(c)
		set[i] = fmt.Sprintf("%s = stg.%s", q, q)
	}
	k := d.QuoteIdent(key)
	return fmt.Sprintf("UPDATE %s AS tgt SET %s FROM %s AS stg WHERE tgt.%s = stg.%s",
		d.QuoteIdent(table), strings.Join(set, ", "), staging, k, k)
}

func (d *PostgresDialect) ResetSequence(ctx context.Context, q Queryer, table, column string, next int64) (bool, error) {
	var seq sql.NullString
	if err := q.QueryRowContext(ctx, "SELECT pg_get_serial_sequence($1, $2)", table, column).Scan(&seq); err != nil {
		return false, fmt.Errorf("lookup sequence: %w", err)
	}
	if !seq.Valid || seq.String == "" {
		return false, nil
	}
	if _, err := q.ExecContext(ctx, "SELECT setval($1::regclass, $2, false)", seq.String, next); err != nil {
		return false, fmt.Errorf("setval %s: %w", seq.String, err)
	}
	return true, nil
}
