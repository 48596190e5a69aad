// Package engine copies the catalog tables from a source to a target
// database and repairs what bulk copying leaves behind: dangling references,
// self-referencing rows and sequence counters.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"db-migrate/internal/dialect"
	"db-migrate/internal/record"
	"db-migrate/internal/sanitize"
	"db-migrate/internal/schema"

	"github.com/sirupsen/logrus"
)

// Settings are the run-wide knobs, unmarshalled from the settings section of
// the config.
type Settings struct {
	BatchSize        int    `mapstructure:"batch_size" yaml:"batch_size"`
	DefaultCompanyID int64  `mapstructure:"default_company_id" yaml:"default_company_id"`
	SystemUserMaxID  int64  `mapstructure:"system_user_max_id" yaml:"system_user_max_id"`
	GroupModule      string `mapstructure:"group_module" yaml:"group_module"`
	GroupName        string `mapstructure:"group_name" yaml:"group_name"`
}

// DefaultSettings returns the values used for unset settings.
func DefaultSettings() Settings {
	return Settings{
		BatchSize:        record.DefaultBatchSize,
		DefaultCompanyID: 1,
		SystemUserMaxID:  2,
		GroupModule:      "base",
		GroupName:        "group_user",
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.BatchSize <= 0 {
		s.BatchSize = def.BatchSize
	}
	if s.DefaultCompanyID <= 0 {
		s.DefaultCompanyID = def.DefaultCompanyID
	}
	if s.SystemUserMaxID <= 0 {
		s.SystemUserMaxID = def.SystemUserMaxID
	}
	if s.GroupModule == "" {
		s.GroupModule = def.GroupModule
	}
	if s.GroupName == "" {
		s.GroupName = def.GroupName
	}
	return s
}

// Database pairs an open handle with its dialect.
type Database struct {
	DB      *sql.DB
	Dialect dialect.Dialect
}

// Migrator runs migration steps from Source to Target. Steps run one at a
// time; a Migrator is not safe for concurrent use.
type Migrator struct {
	Source Database
	Target Database

	settings  Settings
	sanitizer *sanitize.Sanitizer
	log       logrus.FieldLogger
	now       func() time.Time

	// OnBatch, when set, is called after every committed batch.
	OnBatch func(table string, done, total int)
}

// New returns a migrator using the default sanitizer rules.
func New(source, target Database, settings Settings, log logrus.FieldLogger) *Migrator {
	settings = settings.withDefaults()
	return &Migrator{
		Source:    source,
		Target:    target,
		settings:  settings,
		sanitizer: sanitize.Default(settings.DefaultCompanyID),
		log:       log,
		now:       time.Now,
	}
}

// Settings returns the effective settings.
func (m *Migrator) Settings() Settings { return m.settings }

// SetSanitizer replaces the cell rewrite rules.
func (m *Migrator) SetSanitizer(s *sanitize.Sanitizer) { m.sanitizer = s }

// MigrateTable copies every source row of spec into the target with the
// given conflict policy, one transaction per batch.
func (m *Migrator) MigrateTable(ctx context.Context, spec schema.TableSpec, conflict dialect.Conflict) Result {
	log := m.log.WithFields(logrus.Fields{"table": spec.Name, "policy": conflict.Policy.String()})

	set, err := m.readSource(ctx, spec)
	if err != nil {
		log.WithError(err).Error("❌ failed to read source")
		return fail(spec.Name, 0, err)
	}
	if set.Len() == 0 {
		log.Warn("⚠ no data found in source, skipping")
		return skip(spec.Name, "no source rows")
	}
	log.Infof("🔄 migrating %d records", set.Len())

	rows, err := m.sanitizer.Rows(spec.Name, spec.Columns, set.Rows)
	if err != nil {
		log.WithError(err).Error("❌ failed to sanitize rows")
		return fail(spec.Name, 0, err)
	}

	n, err := m.writeRows(ctx, spec.Name, spec.Columns, rows, conflict)
	if err != nil {
		log.WithError(err).Error("❌ migration failed")
		return fail(spec.Name, n, err)
	}
	log.WithField("rows", n).Info("✅ migrated")
	return done(spec.Name, n, conflict.String())
}

// readSource loads the whole record set for spec from the source database.
func (m *Migrator) readSource(ctx context.Context, spec schema.TableSpec) (*record.Set, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	query := selectQuery(m.Source.Dialect, spec)

	rows, err := m.Source.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", spec.Name, err)
	}
	defer rows.Close()

	out, err := record.Scan(rows, spec.Columns)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", spec.Name, err)
	}
	return &record.Set{Table: spec.Name, Columns: spec.Columns, Rows: out}, nil
}

func selectQuery(d dialect.Dialect, spec schema.TableSpec) string {
	if spec.Require == nil {
		cols := make([]string, len(spec.Columns))
		for i, c := range spec.Columns {
			cols[i] = d.QuoteIdent(c)
		}
		return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), d.QuoteIdent(spec.Name))
	}

	req := spec.Require
	cols := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = "r." + d.QuoteIdent(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s r JOIN %s p ON r.%s = p.%s",
		strings.Join(cols, ", "), d.QuoteIdent(spec.Name), d.QuoteIdent(req.Table),
		d.QuoteIdent(req.Column), d.QuoteIdent(req.RefColumn))
}

// writeRows pins a target connection, suspends checks on table and writes
// rows in batches.
func (m *Migrator) writeRows(ctx context.Context, table string, cols []string, rows []record.Row, conflict dialect.Conflict) (int, error) {
	conn, err := m.Target.DB.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire target connection: %w", err)
	}
	defer conn.Close()

	restore, err := m.suspendChecks(ctx, conn, table)
	if err != nil {
		return 0, err
	}
	defer restore()

	return m.writeBatches(ctx, conn, table, cols, rows, conflict)
}

// suspendChecks disables triggers and allows explicit keys on conn. The
// returned func undoes both and must be deferred.
func (m *Migrator) suspendChecks(ctx context.Context, conn *sql.Conn, table string) (func(), error) {
	d := m.Target.Dialect
	log := m.log.WithField("table", table)

	if err := d.DisableTriggers(ctx, conn, table); err != nil {
		return nil, fmt.Errorf("disable triggers on %s: %w", table, err)
	}
	if err := d.AllowExplicitKeys(ctx, conn, table, true); err != nil {
		if err2 := d.EnableTriggers(context.WithoutCancel(ctx), conn, table); err2 != nil {
			log.WithError(err2).Warn("failed to re-enable triggers")
		}
		return nil, fmt.Errorf("allow explicit keys on %s: %w", table, err)
	}

	return func() {
		// Restore even when the run was cancelled mid-table.
		rctx := context.WithoutCancel(ctx)
		if err := d.AllowExplicitKeys(rctx, conn, table, false); err != nil {
			log.WithError(err).Warn("failed to reset explicit key insert")
		}
		if err := d.EnableTriggers(rctx, conn, table); err != nil {
			log.WithError(err).Warn("failed to re-enable triggers")
		}
	}, nil
}

func (m *Migrator) writeBatches(ctx context.Context, conn *sql.Conn, table string, cols []string, rows []record.Row, conflict dialect.Conflict) (int, error) {
	query, err := m.Target.Dialect.InsertQuery(table, cols, conflict)
	if err != nil {
		return 0, fmt.Errorf("build insert for %s: %w", table, err)
	}

	total := record.BatchCount(len(rows), m.settings.BatchSize)
	written := 0
	for i, batch := range record.Batches(rows, m.settings.BatchSize) {
		if err := insertBatch(ctx, conn, query, cols, batch); err != nil {
			return written, fmt.Errorf("batch %d/%d: %w", i+1, total, err)
		}
		written += len(batch)
		m.log.WithFields(logrus.Fields{"table": table, "batch": i + 1, "rows": len(batch)}).
			Debugf("✅ migrated batch %d/%d", i+1, total)
		if m.OnBatch != nil {
			m.OnBatch(table, i+1, total)
		}
	}
	return written, nil
}

func insertBatch(ctx context.Context, conn *sql.Conn, query string, cols []string, batch []record.Row) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range batch {
		if _, err := stmt.ExecContext(ctx, row.Values(cols)...); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
