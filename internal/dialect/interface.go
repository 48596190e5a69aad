package dialect

import (
	"context"
	"database/sql"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect abstracts database-specific operations.
type Dialect interface {
	Name() string

	// Metadata Queries (Schema Introspection). Each takes the schema name as
	// its single bound parameter.
	GetColumnsQuery(schema string) string
	GetForeignKeysQuery(schema string) string
	GetSchemaName(input string) string

	// Query Generation
	Placeholder(index int) string // Returns ?, $1, @p1, etc.
	QuoteIdent(name string) string
	InsertQuery(table string, cols []string, conflict Conflict) (string, error)

	// Execution Hooks (Table Level). They run on a pinned connection so
	// session-scoped switches apply to every transaction that follows.
	DisableTriggers(ctx context.Context, q Queryer, table string) error
	EnableTriggers(ctx context.Context, q Queryer, table string) error
	AllowExplicitKeys(ctx context.Context, q Queryer, table string, on bool) error

	// Staging tables for set-based fix-ups inside one transaction.
	StagingTable(base string) string
	CreateStagingQuery(name, key string, cols []string) string
	DropStagingQuery(name string) string
	CopyColumnsQuery(table, staging, key string, cols []string) string

	// ResetSequence makes the next generated value of table.column equal to
	// next. It reports false when the column has no backing sequence.
	ResetSequence(ctx context.Context, q Queryer, table, column string, next int64) (bool, error)
}
