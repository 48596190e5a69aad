package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"db-migrate/internal/dialect"
	"db-migrate/internal/record"
	"db-migrate/internal/schema"

	"github.com/sirupsen/logrus"
)

// MigrateHierarchy copies a self-referencing table in two passes. The first
// pass inserts every row with its pointer columns cleared, ignoring rows that
// already exist. The second pass restores the source pointers with one
// set-based update through a staging table, so parents never need to be
// written before their children.
func (m *Migrator) MigrateHierarchy(ctx context.Context, spec schema.TableSpec) Result {
	if len(spec.Pointers) == 0 {
		return m.MigrateTable(ctx, spec, dialect.Ignore(spec.Key...))
	}
	if len(spec.Key) != 1 {
		return fail(spec.Name, 0, fmt.Errorf("hierarchical table %s needs a single-column key", spec.Name))
	}
	log := m.log.WithField("table", spec.Name)

	set, err := m.readSource(ctx, spec)
	if err != nil {
		log.WithError(err).Error("❌ failed to read source")
		return fail(spec.Name, 0, err)
	}
	if set.Len() == 0 {
		log.Warn("⚠ no data found in source, skipping")
		return skip(spec.Name, "no source rows")
	}

	rows, err := m.sanitizer.Rows(spec.Name, spec.Columns, set.Rows)
	if err != nil {
		return fail(spec.Name, 0, err)
	}

	conn, err := m.Target.DB.Conn(ctx)
	if err != nil {
		return fail(spec.Name, 0, fmt.Errorf("acquire target connection: %w", err))
	}
	defer conn.Close()

	restore, err := m.suspendChecks(ctx, conn, spec.Name)
	if err != nil {
		return fail(spec.Name, 0, err)
	}
	defer restore()

	log.Infof("🔄 migrating %d records (first pass: without parent references)", len(rows))
	n, err := m.writeBatches(ctx, conn, spec.Name, spec.Columns, withoutPointers(rows, spec.Pointers), dialect.Ignore(spec.Key...))
	if err != nil {
		log.WithError(err).Error("❌ first pass failed")
		return fail(spec.Name, n, err)
	}
	log.WithField("rows", n).Info("✅ first pass completed")

	log.Infof("🔄 updating %s", strings.Join(spec.Pointers, " and "))
	restored, err := m.restorePointers(ctx, conn, spec, rows)
	if err != nil {
		log.WithError(err).Error("❌ second pass failed")
		return fail(spec.Name, n, fmt.Errorf("restore pointers: %w", err))
	}
	log.WithFields(logrus.Fields{"rows": n, "restored": restored}).Info("✅ parent references updated")

	return done(spec.Name, n, fmt.Sprintf("two-pass, %d pointers restored", restored))
}

func withoutPointers(rows []record.Row, pointers []string) []record.Row {
	out := make([]record.Row, len(rows))
	for i, r := range rows {
		c := r.Clone()
		for _, p := range pointers {
			c[p] = nil
		}
		out[i] = c
	}
	return out
}

// restorePointers stages (key, pointers...) for every source row and applies
// them in one transaction. Null source pointers are copied too, so every
// migrated row ends up with exactly the source's pointers.
func (m *Migrator) restorePointers(ctx context.Context, conn *sql.Conn, spec schema.TableSpec, rows []record.Row) (int64, error) {
	d := m.Target.Dialect
	key := spec.Key[0]
	cols := append([]string{key}, spec.Pointers...)

	if len(rows) == 0 {
		return 0, nil
	}

	staging := d.StagingTable(spec.Name)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, d.CreateStagingQuery(staging, key, spec.Pointers)); err != nil {
		return 0, fmt.Errorf("create staging table: %w", err)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		staging, strings.Join(quoted, ", "), dialect.GeneratePlaceholders(len(cols), d.Placeholder))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare staging insert: %w", err)
	}
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Values(cols)...); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("stage row %v: %w", r[key], err)
		}
	}
	stmt.Close()

	res, err := tx.ExecContext(ctx, d.CopyColumnsQuery(spec.Name, staging, key, spec.Pointers))
	if err != nil {
		return 0, fmt.Errorf("update from staging: %w", err)
	}
	affected, _ := res.RowsAffected()

	if drop := d.DropStagingQuery(staging); drop != "" {
		if _, err := tx.ExecContext(ctx, drop); err != nil {
			return 0, fmt.Errorf("drop staging table: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return affected, nil
}
