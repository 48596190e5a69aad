package dialect

import (
	"context"
	"fmt"
	"strings"
)

// OracleDialect targets Oracle 18c+ (identity columns, private temporary
// tables). Catalog names are stored upper case, so identifiers are quoted
// in upper case.
type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) GetColumnsQuery(schema string) string {
	// Retrieves column information for the current user's tables.
	// We join with USER_CONS_COLUMNS to identify Primary Keys (P).
	return `
SELECT
    LOWER(t.TABLE_NAME),
    LOWER(t.COLUMN_NAME),
    t.DATA_TYPE,
    CASE WHEN t.NULLABLE = 'Y' THEN 'YES' ELSE 'NO' END,
    CASE WHEN p.CONSTRAINT_NAME IS NOT NULL THEN 'PRI' ELSE '' END
FROM USER_TAB_COLUMNS t
LEFT JOIN (
    SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
    FROM USER_CONS_COLUMNS cc
    JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
    WHERE uc.CONSTRAINT_TYPE = 'P'
) p ON t.TABLE_NAME = p.TABLE_NAME AND t.COLUMN_NAME = p.COLUMN_NAME
WHERE :1 IS NOT NULL
ORDER BY t.TABLE_NAME, t.COLUMN_ID`
}

func (d *OracleDialect) GetForeignKeysQuery(schema string) string {
	return `
SELECT
    LOWER(c.TABLE_NAME),
    LOWER(cc.COLUMN_NAME),
    LOWER(r.TABLE_NAME) AS REF_TABLE,
    LOWER(rcc.COLUMN_NAME) AS REF_COLUMN
FROM USER_CONSTRAINTS c
JOIN USER_CONS_COLUMNS cc
    ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
    AND c.OWNER = cc.OWNER
JOIN USER_CONSTRAINTS r
    ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME
    AND c.R_OWNER = r.OWNER
JOIN USER_CONS_COLUMNS rcc
    ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME
    AND r.OWNER = rcc.OWNER
    AND cc.POSITION = rcc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R'
AND :1 IS NOT NULL`
}

// The USER_* views are already scoped; the name is bound only so the query
// shape matches other dialects, and Oracle reads '' as NULL.
func (d *OracleDialect) GetSchemaName(input string) string {
	if input == "" {
		return "USER"
	}
	return input
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) QuoteIdent(name string) string {
	return `"` + strings.ToUpper(strings.ReplaceAll(name, `"`, `""`)) + `"`
}

func (d *OracleDialect) InsertQuery(table string, cols []string, conflict Conflict) (string, error) {
	sel := make([]string, len(cols))
	for i, c := range cols {
		sel[i] = fmt.Sprintf("%s AS %s", d.Placeholder(i), d.QuoteIdent(c))
	}
	source := fmt.Sprintf("(SELECT %s FROM dual) src", strings.Join(sel, ", "))
	return mergeQuery(d, table, cols, conflict, source, "")
}

func (d *OracleDialect) DisableTriggers(ctx context.Context, q Queryer, table string) error {
	t := d.QuoteIdent(table)
	if _, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DISABLE ALL TRIGGERS", t)); err != nil {
		return fmt.Errorf("failed to disable triggers on %s: %w", table, err)
	}
	return d.toggleConstraints(ctx, q, table, "ENABLED", "DISABLE")
}

func (d *OracleDialect) EnableTriggers(ctx context.Context, q Queryer, table string) error {
	if err := d.toggleConstraints(ctx, q, table, "DISABLED", "ENABLE NOVALIDATE"); err != nil {
		return err
	}
	t := d.QuoteIdent(table)
	if _, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ENABLE ALL TRIGGERS", t)); err != nil {
		return fmt.Errorf("failed to enable triggers on %s: %w", table, err)
	}
	return nil
}

// toggleConstraints flips the FK constraints of one table. Note: In Oracle,
// DDL (ALTER) implicitly commits the transaction.
func (d *OracleDialect) toggleConstraints(ctx context.Context, q Queryer, table, status, action string) error {
	rows, err := q.QueryContext(ctx,
		"SELECT CONSTRAINT_NAME FROM USER_CONSTRAINTS WHERE CONSTRAINT_TYPE = 'R' AND TABLE_NAME = :1 AND STATUS = :2",
		strings.ToUpper(table), status)
	if err != nil {
		return err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, n := range names {
		query := fmt.Sprintf(`ALTER TABLE %s %s CONSTRAINT "%s"`, d.QuoteIdent(table), action, n)
		if _, err := q.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to %s constraint %s on %s: %w", strings.ToLower(action), n, table, err)
		}
	}
	return nil
}

// Identity columns GENERATED BY DEFAULT accept explicit values as is.
func (d *OracleDialect) AllowExplicitKeys(ctx context.Context, q Queryer, table string, on bool) error {
	return nil
}

func (d *OracleDialect) StagingTable(base string) string {
	return "ORA$PTT_STG_" + strings.ToUpper(base)
}

func (d *OracleDialect) CreateStagingQuery(name, key string, cols []string) string {
	return fmt.Sprintf("CREATE PRIVATE TEMPORARY TABLE %s (%s) ON COMMIT DROP DEFINITION",
		name, stagingColumnsDDL(d, key, cols, "NUMBER(19)"))
}

// Private temporary tables vanish at commit.
func (d *OracleDialect) DropStagingQuery(name string) string {
	return ""
}

func (d *OracleDialect) CopyColumnsQuery(table, staging, key string, cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		q := d.QuoteIdent(c)
		set[i] = fmt.Sprintf("tgt.%s = stg.%s", q, q)
	}
	k := d.QuoteIdent(key)
	return fmt.Sprintf("MERGE INTO %s tgt USING %s stg ON (tgt.%s = stg.%s) WHEN MATCHED THEN UPDATE SET %s",
		d.QuoteIdent(table), staging, k, k, strings.Join(set, ", "))
}

func (d *OracleDialect) ResetSequence(ctx context.Context, q Queryer, table, column string, next int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM USER_TAB_IDENTITY_COLS WHERE TABLE_NAME = :1 AND COLUMN_NAME = :2",
		strings.ToUpper(table), strings.ToUpper(column)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup identity: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	query := fmt.Sprintf("ALTER TABLE %s MODIFY (%s GENERATED BY DEFAULT AS IDENTITY (START WITH %d))",
		d.QuoteIdent(table), d.QuoteIdent(column), next)
	if _, err := q.ExecContext(ctx, query); err != nil {
		return false, fmt.Errorf("restart identity: %w", err)
	}
	return true, nil
}
