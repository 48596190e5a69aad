package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"db-migrate/internal/dialect"
	"db-migrate/internal/record"
	"db-migrate/internal/schema"

	"github.com/sirupsen/logrus"
)

// parentPlaceholderColumns are written for every synthesized parent row.
var parentPlaceholderColumns = []string{"id", "name", "create_date", "write_date", "active", "company_id"}

// RepairMissingReferences recreates in the target every r.RefTable row that
// some source r.Table row points at but the target lacks. The label is
// copied from the source; ids the source lacks too are skipped with a
// warning.
func (m *Migrator) RepairMissingReferences(ctx context.Context, r schema.RefRepair) Result {
	log := m.log.WithFields(logrus.Fields{"table": r.RefTable, "from": r.Table + "." + r.Column})
	if err := r.Validate(); err != nil {
		return fail(r.RefTable, 0, err)
	}

	ids, err := m.distinctRefs(ctx, r)
	if err != nil {
		log.WithError(err).Error("❌ failed to list references")
		return fail(r.RefTable, 0, err)
	}

	missing, err := m.missingInTarget(ctx, r.RefTable, r.RefKey, ids)
	if err != nil {
		log.WithError(err).Error("❌ failed to check references")
		return fail(r.RefTable, 0, err)
	}
	if len(missing) == 0 {
		log.Info("✅ no missing references to fix")
		return done(r.RefTable, 0, "nothing missing")
	}
	log.Warnf("⚠ found %d missing %s records, creating placeholders", len(missing), r.RefTable)

	cols := []string{r.RefKey, r.Label}
	var rows []record.Row
	for _, id := range missing {
		row, err := m.sourceLabel(ctx, r, id)
		if errors.Is(err, sql.ErrNoRows) {
			log.WithField("id", id).Warnf("⚠ %s %v not found in source, skipping", r.RefTable, id)
			continue
		}
		if err != nil {
			log.WithError(err).Error("❌ failed to fetch source label")
			return fail(r.RefTable, 0, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return skip(r.RefTable, fmt.Sprintf("%d missing, none found in source", len(missing)))
	}

	rows, err = m.sanitizer.Rows(r.RefTable, cols, rows)
	if err != nil {
		return fail(r.RefTable, 0, err)
	}
	n, err := m.writeRows(ctx, r.RefTable, cols, rows, dialect.UpdatePrimaryKey(r.RefKey))
	if err != nil {
		log.WithError(err).Error("❌ error fixing missing references")
		return fail(r.RefTable, n, err)
	}
	log.WithField("rows", n).Info("✅ missing references created")
	return done(r.RefTable, n, fmt.Sprintf("%d missing, %d copied from source", len(missing), n))
}

func (m *Migrator) distinctRefs(ctx context.Context, r schema.RefRepair) ([]any, error) {
	d := m.Source.Dialect
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL",
		d.QuoteIdent(r.Column), d.QuoteIdent(r.Table), d.QuoteIdent(r.Column))
	return queryColumn(ctx, m.Source.DB, query)
}

// missingInTarget returns the ids with no table row keyed by them.
func (m *Migrator) missingInTarget(ctx context.Context, table, key string, ids []any) ([]any, error) {
	d := m.Target.Dialect
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s",
		d.QuoteIdent(table), d.QuoteIdent(key), d.Placeholder(0))

	stmt, err := m.Target.DB.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare existence check: %w", err)
	}
	defer stmt.Close()

	var missing []any
	for _, id := range ids {
		var n int
		if err := stmt.QueryRowContext(ctx, id).Scan(&n); err != nil {
			return nil, fmt.Errorf("check %s %v: %w", table, id, err)
		}
		if n == 0 {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// sourceLabel reads (key, label) for id from the source. It returns
// sql.ErrNoRows when the source has no such row.
func (m *Migrator) sourceLabel(ctx context.Context, r schema.RefRepair, id any) (record.Row, error) {
	d := m.Source.Dialect
	cols := []string{r.RefKey, r.Label}
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = %s",
		d.QuoteIdent(r.RefKey), d.QuoteIdent(r.Label), d.QuoteIdent(r.RefTable),
		d.QuoteIdent(r.RefKey), d.Placeholder(0))

	rows, err := m.Source.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("select %s %v: %w", r.RefTable, id, err)
	}
	defer rows.Close()

	found, err := record.Scan(rows, cols)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, sql.ErrNoRows
	}
	return found[0], nil
}

// RepairMissingParents inserts a placeholder row for every id that column
// points at in the target table but that is not a key of it.
func (m *Migrator) RepairMissingParents(ctx context.Context, spec schema.TableSpec, column string) Result {
	log := m.log.WithFields(logrus.Fields{"table": spec.Name, "column": column})
	if err := dialect.CheckIdents(spec.Name, column); err != nil {
		return fail(spec.Name, 0, err)
	}
	if len(spec.Key) != 1 {
		return fail(spec.Name, 0, fmt.Errorf("%s needs a single-column key", spec.Name))
	}

	d := m.Target.Dialect
	key := d.QuoteIdent(spec.Key[0])
	col := d.QuoteIdent(column)
	table := d.QuoteIdent(spec.Name)
	query := fmt.Sprintf("SELECT DISTINCT c.%s FROM %s c WHERE c.%s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = c.%s)",
		col, table, col, table, key, col)

	ids, err := queryColumn(ctx, m.Target.DB, query)
	if err != nil {
		log.WithError(err).Error("❌ error finding missing parents")
		return fail(spec.Name, 0, err)
	}
	if len(ids) == 0 {
		log.Info("✅ no missing parents")
		return done(spec.Name, 0, "nothing missing")
	}
	log.Warnf("⚠ found %d missing parent records, creating placeholders", len(ids))

	now := m.now()
	rows := make([]record.Row, len(ids))
	for i, id := range ids {
		rows[i] = record.Row{
			"id":          id,
			"name":        fmt.Sprintf("Placeholder Parent Partner %v", id),
			"create_date": now,
			"write_date":  now,
			"active":      true,
			"company_id":  m.settings.DefaultCompanyID,
		}
	}

	n, err := m.writeRows(ctx, spec.Name, parentPlaceholderColumns, rows, dialect.Ignore(spec.Key...))
	if err != nil {
		log.WithError(err).Error("❌ error fixing parent records")
		return fail(spec.Name, n, err)
	}
	log.WithField("rows", n).Info("✅ parent placeholders created")
	return done(spec.Name, n, fmt.Sprintf("%d placeholders", n))
}

func queryColumn(ctx context.Context, q dialect.Queryer, query string, args ...any) ([]any, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
