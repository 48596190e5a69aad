package dialect

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server Driver
)

type MSSQLDialect struct{}

// Helper: MSSQL Driver (go-mssqldb) often prefers @p1, @p2 named parameters over ?
// especially when prepared statements are involved or simple Exec.

func (d *MSSQLDialect) Name() string { return "sqlserver" }

func (d *MSSQLDialect) GetColumnsQuery(schema string) string {
	return `
		SELECT 
			c.TABLE_NAME, 
			c.COLUMN_NAME, 
			c.DATA_TYPE, 
			c.IS_NULLABLE, 
			CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 'PRI' ELSE '' END AS COLUMN_KEY
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu 
				ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = @p1
		) pk ON c.TABLE_NAME = pk.TABLE_NAME AND c.COLUMN_NAME = pk.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = @p1 
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION
	`
}

func (d *MSSQLDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT KCU1.TABLE_NAME, KCU1.COLUMN_NAME, KCU2.TABLE_NAME AS REF_TABLE, KCU2.COLUMN_NAME AS REF_COLUMN FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS RC JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU1 ON RC.CONSTRAINT_NAME = KCU1.CONSTRAINT_NAME JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU2 ON RC.UNIQUE_CONSTRAINT_NAME = KCU2.CONSTRAINT_NAME WHERE KCU1.TABLE_SCHEMA = @p1`
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d *MSSQLDialect) InsertQuery(table string, cols []string, conflict Conflict) (string, error) {
	quoted := quoteAll(cols, d.QuoteIdent)
	source := fmt.Sprintf("(VALUES (%s)) AS src (%s)",
		GeneratePlaceholders(len(cols), d.Placeholder), strings.Join(quoted, ", "))
	q, err := mergeQuery(d, table, cols, conflict, source, ";")
	if err != nil {
		return "", err
	}
	// HOLDLOCK keeps the match-then-insert atomic under concurrent writers.
	return strings.Replace(q, " tgt USING", " WITH (HOLDLOCK) AS tgt USING", 1), nil
}

func (d *MSSQLDialect) DisableTriggers(ctx context.Context, q Queryer, table string) error {
	t := d.QuoteIdent(table)
	if _, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s NOCHECK CONSTRAINT ALL", t)); err != nil {
		return fmt.Errorf("failed to disable constraints on %s: %w", table, err)
	}
	if _, err := q.ExecContext(ctx, fmt.Sprintf("DISABLE TRIGGER ALL ON %s", t)); err != nil {
		return fmt.Errorf("failed to disable triggers on %s: %w", table, err)
	}
	return nil
}

// Existing rows are not revalidated; placeholders may still be pending.
func (d *MSSQLDialect) EnableTriggers(ctx context.Context, q Queryer, table string) error {
	t := d.QuoteIdent(table)
	if _, err := q.ExecContext(ctx, fmt.Sprintf("ENABLE TRIGGER ALL ON %s", t)); err != nil {
		return fmt.Errorf("failed to enable triggers on %s: %w", table, err)
	}
	if _, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s CHECK CONSTRAINT ALL", t)); err != nil {
		return fmt.Errorf("failed to enable constraints on %s: %w", table, err)
	}
	return nil
}

// AllowExplicitKeys toggles IDENTITY_INSERT, which SQL Server requires before
// a statement may supply identity values. Tables without identity are skipped.
func (d *MSSQLDialect) AllowExplicitKeys(ctx context.Context, q Queryer, table string, on bool) error {
	var hasIdentity int
	if err := q.QueryRowContext(ctx, "SELECT COALESCE(OBJECTPROPERTY(OBJECT_ID(@p1), 'TableHasIdentity'), 0)", table).Scan(&hasIdentity); err != nil {
		return fmt.Errorf("lookup identity on %s: %w", table, err)
	}
	if hasIdentity == 0 {
		return nil
	}
	state := "OFF"
	if on {
		state = "ON"
	}
	_, err := q.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s %s", d.QuoteIdent(table), state))
	return err
}

func (d *MSSQLDialect) StagingTable(base string) string {
	return d.QuoteIdent("#stg_" + base)
}

func (d *MSSQLDialect) CreateStagingQuery(name, key string, cols []string) string {
	return fmt.Sprintf("CREATE TABLE %s (%s)", name, stagingColumnsDDL(d, key, cols, "BIGINT"))
}

func (d *MSSQLDialect) DropStagingQuery(name string) string {
	return "DROP TABLE IF EXISTS " + name
}

func (d *MSSQLDialect) CopyColumnsQuery(table, staging, key string, cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		q := d.QuoteIdent(c)
		set[i] = fmt.Sprintf("tgt.%s = stg.%s", q, q)
	}
	k := d.QuoteIdent(key)
	return fmt.Sprintf("UPDATE tgt SET %s FROM %s AS tgt INNER JOIN %s AS stg ON tgt.%s = stg.%s",
		strings.Join(set, ", "), d.QuoteIdent(table), staging, k, k)
}

// DBCC CHECKIDENT hands out reseed+1 next once the table has held rows.
func (d *MSSQLDialect) ResetSequence(ctx context.Context, q Queryer, table, column string, next int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sys.identity_columns WHERE object_id = OBJECT_ID(@p1) AND name = @p2",
		table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup identity: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if _, err := q.ExecContext(ctx, fmt.Sprintf("DBCC CHECKIDENT ('%s', RESEED, %d)", table, next-1)); err != nil {
		return false, fmt.Errorf("reseed %s: %w", table, err)
	}
	return true, nil
}
