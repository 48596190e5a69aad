package record_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"db-migrate/internal/record"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_DecodesJSONColumns(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "scan.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE res_groups (id INTEGER PRIMARY KEY, name JSONB, comment TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO res_groups (id, name, comment) VALUES (1, '{"en_US": "Internal User"}', 'plain')`)
	require.NoError(t, err)

	cols := []string{"id", "name", "comment"}
	rows, err := db.Query(`SELECT id, name, comment FROM res_groups`)
	require.NoError(t, err)
	defer rows.Close()

	got, err := record.Scan(rows, cols)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, int64(1), got[0]["id"])
	assert.Equal(t, map[string]any{"en_US": "Internal User"}, got[0]["name"])
	assert.Equal(t, "plain", got[0]["comment"])
}

func TestScan_RejectsColumnMismatch(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "scan.db"))
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT 1, 2`)
	require.NoError(t, err)
	defer rows.Close()

	_, err = record.Scan(rows, []string{"id"})
	assert.Error(t, err)
}
