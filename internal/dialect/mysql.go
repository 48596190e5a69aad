package dialect

import (
	"context"
	"fmt"
	"strings"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) GetColumnsQuery(schema string) string {
	return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_KEY FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND REFERENCED_TABLE_NAME IS NOT NULL`
}

// An empty schema means the connection's current database.
func (d *MysqlDialect) GetSchemaName(input string) string {
	return input
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// MySQL resolves conflicts against any unique key, so the key list only
// decides which columns are left out of the update.
// ON DUPLICATE KEY UPDATE fires on any unique key of the table, not only the
// policy keys; the keys just stay out of the SET list.
func (d *MysqlDialect) InsertQuery(table string, cols []string, conflict Conflict) (string, error) {
	if err := conflict.Validate(cols); err != nil {
		return "", err
	}
	quoted := quoteAll(cols, d.QuoteIdent)
	vals := GeneratePlaceholders(len(cols), d.Placeholder)

	updates := UpdatableColumns(cols, conflict.Keys)
	if !conflict.Updates() || len(updates) == 0 {
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", d.QuoteIdent(table), strings.Join(quoted, ", "), vals), nil
	}

	set := make([]string, len(updates))
	for i, c := range updates {
		q := d.QuoteIdent(c)
		set[i] = fmt.Sprintf("%s = VALUES(%s)", q, q)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		d.QuoteIdent(table), strings.Join(quoted, ", "), vals, strings.Join(set, ", ")), nil
}

// MySQL cannot disable triggers; FK checks are a session variable.
func (d *MysqlDialect) DisableTriggers(ctx context.Context, q Queryer, table string) error {
	_, err := q.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0")
	return err
}

func (d *MysqlDialect) EnableTriggers(ctx context.Context, q Queryer, table string) error {
	_, err := q.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	return err
}

func (d *MysqlDialect) AllowExplicitKeys(ctx context.Context, q Queryer, table string, on bool) error {
	return nil
}

func (d *MysqlDialect) StagingTable(base string) string {
	return d.QuoteIdent("stg_" + base)
}

func (d *MysqlDialect) CreateStagingQuery(name, key string, cols []string) string {
	return fmt.Sprintf("CREATE TEMPORARY TABLE %s (%s)", name, stagingColumnsDDL(d, key, cols, "BIGINT"))
}

func (d *MysqlDialect) DropStagingQuery(name string) string {
	return "DROP TEMPORARY TABLE IF EXISTS " + name
}

func (d *MysqlDialect) CopyColumnsQuery(table, staging, key string, cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		q := d.QuoteIdent(c)
		set[i] = fmt.Sprintf("tgt.%s = stg.%s", q, q)
	}
	k := d.QuoteIdent(key)
	return fmt.Sprintf("UPDATE %s AS tgt JOIN %s AS stg ON tgt.%s = stg.%s SET %s",
		d.QuoteIdent(table), staging, k, k, strings.Join(set, ", "))
}

func (d *MysqlDialect) ResetSequence(ctx context.Context, q Queryer, table, column string, next int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ? AND EXTRA LIKE '%auto_increment%'`,
		table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup auto_increment: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	// ALTER TABLE does not accept a bound value here; next is an integer.
	if _, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", d.QuoteIdent(table), next)); err != nil {
		return false, fmt.Errorf("alter auto_increment: %w", err)
	}
	return true, nil
}
