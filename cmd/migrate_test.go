package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"db-migrate/internal/dbconn"
	"db-migrate/internal/engine"
	"db-migrate/internal/logging"
	"db-migrate/internal/record"
	"db-migrate/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sqliteEndpoints(t *testing.T) (dbconn.Endpoint, dbconn.Endpoint) {
	t.Helper()
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.db")
	dstPath := filepath.Join(dir, "target.db")

	src := testutil.CreateCatalog(t, testutil.OpenSQLiteAt(t, srcPath, false), testutil.Options{JSONLabels: true})
	dst := testutil.CreateCatalog(t, testutil.OpenSQLiteAt(t, dstPath, true), testutil.Options{ForeignKeys: true})

	testutil.Insert(t, src, "res_partner", record.Row{"id": int64(3), "name": "Partner"})
	testutil.Insert(t, src, "res_users", record.Row{"id": int64(3), "login": "jane", "partner_id": int64(3)})
	testutil.Insert(t, dst, "ir_model_data", record.Row{"module": "base", "name": "group_user", "res_id": int64(11)})

	return dbconn.Endpoint{Name: "source", Driver: "sqlite3", Database: srcPath},
		dbconn.Endpoint{Name: "target", Driver: "sqlite3", Database: dstPath}
}

func TestRunMigrate_WritesReport(t *testing.T) {
	source, target := sqliteEndpoints(t)
	reportFile := filepath.Join(t.TempDir(), "report.yaml")

	var out bytes.Buffer
	err := runMigrate(context.Background(), migrateOptions{
		Source:     source,
		Target:     target,
		Settings:   engine.DefaultSettings(),
		ReportPath: reportFile,
	}, logging.Discard(), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Summary Report")
	assert.Contains(t, out.String(), "[01/14]")

	raw, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	var report Report
	require.NoError(t, yaml.Unmarshal(raw, &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "sqlite3", report.Target)
	require.Len(t, report.Results, 14)
	assert.Equal(t, engine.StatusOK, report.Results[0].Status)
	assert.Equal(t, 1, report.Results[0].Rows)
}

func TestRunMigrate_DryRun(t *testing.T) {
	var out bytes.Buffer
	err := runMigrate(context.Background(), migrateOptions{DryRun: true, Settings: engine.DefaultSettings()}, logging.Discard(), &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 15)
	assert.Equal(t, "[01] migrate res_partner (two-pass)", lines[1])
}

func TestRunMigrate_ConnectionFailureIsFatal(t *testing.T) {
	err := runMigrate(context.Background(), migrateOptions{
		Source:   dbconn.Endpoint{Name: "source", Driver: "postgres"},
		Settings: engine.DefaultSettings(),
	}, logging.Discard(), &bytes.Buffer{})
	assert.ErrorContains(t, err, "source")
}

func TestRunSequences(t *testing.T) {
	_, target := sqliteEndpoints(t)

	var out bytes.Buffer
	require.NoError(t, runSequences(context.Background(), target, logging.Discard(), &out))
	assert.Contains(t, out.String(), "reconcile res_company.id")
	assert.Contains(t, out.String(), "ok 3")
}

func TestRunCheck(t *testing.T) {
	source, target := sqliteEndpoints(t)

	var out bytes.Buffer
	problems, err := runCheck(context.Background(), source, target, logging.Discard(), &out)
	require.NoError(t, err)
	assert.Zero(t, problems, out.String())
	assert.Contains(t, out.String(), "Target dependency order")

	db := testutil.OpenSQLiteAt(t, target.Database, false)
	testutil.Exec(t, db, "DROP TABLE res_groups")
	testutil.Exec(t, db, "ALTER TABLE res_users DROP COLUMN login")

	out.Reset()
	problems, err = runCheck(context.Background(), source, target, logging.Discard(), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, problems)
	assert.Contains(t, out.String(), "res_groups")
	assert.Contains(t, out.String(), "missing columns [login]")
}
