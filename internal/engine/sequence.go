package engine

import (
	"context"
	"database/sql"
	"fmt"

	"db-migrate/internal/dialect"

	"github.com/sirupsen/logrus"
)

// ReconcileSequence moves the counter behind table.column so the next
// generated value is max(column)+1, or 1 for an empty table. Tables without a
// counter are reported as skipped.
func (m *Migrator) ReconcileSequence(ctx context.Context, table, column string) Result {
	log := m.log.WithFields(logrus.Fields{"table": table, "column": column})
	if err := dialect.CheckIdents(table, column); err != nil {
		return fail(table, 0, err)
	}

	d := m.Target.Dialect
	var maxID sql.NullInt64
	query := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", d.QuoteIdent(column), d.QuoteIdent(table))
	if err := m.Target.DB.QueryRowContext(ctx, query).Scan(&maxID); err != nil {
		log.WithError(err).Error("❌ error reading max value")
		return fail(table, 0, fmt.Errorf("max %s.%s: %w", table, column, err))
	}
	next := maxID.Int64 + 1

	found, err := d.ResetSequence(ctx, m.Target.DB, table, column, next)
	if err != nil {
		log.WithError(err).Error("❌ error resetting sequence")
		return fail(table, 0, err)
	}
	if !found {
		log.Warn("⚠ no sequence found, skipping reset")
		return skip(table, "no sequence")
	}
	log.WithField("next", next).Info("🔄 sequence reset")
	return done(table, 0, fmt.Sprintf("%s next value %d", column, next))
}
