package engine

import (
	"context"
	"testing"
	"time"

	"db-migrate/internal/record"
	"db-migrate/internal/schema"
	"db-migrate/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairMissingReferences(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	testutil.Insert(t, f.src, "res_partner", record.Row{"id": int64(42), "name": "Acme"})
	f.partner(f.dst, 1, nil)
	f.user(f.src, 3, int64(42))
	f.user(f.src, 4, int64(99)) // missing on both sides
	f.user(f.src, 5, int64(1))  // already in target
	f.user(f.src, 6, int64(42))

	res := f.m.RepairMissingReferences(ctx, schema.UserPartners)
	require.Equal(t, StatusOK, res.Status, res.ErrorMsg)
	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, "Acme", testutil.Value(t, f.dst, "SELECT name FROM res_partner WHERE id = 42"))
	assert.Equal(t, int64(0), testutil.Value(t, f.dst, "SELECT COUNT(*) FROM res_partner WHERE id = 99"))

	// Only 99 is still missing and the source cannot supply it.
	res = f.m.RepairMissingReferences(ctx, schema.UserPartners)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Zero(t, res.Rows)
	assert.Equal(t, int64(1), testutil.Value(t, f.dst, "SELECT COUNT(*) FROM res_partner WHERE id = 42"))
}

func TestRepairMissingReferences_NoneInSource(t *testing.T) {
	f := newFixture(t, 10)
	f.user(f.src, 3, int64(99))

	res := f.m.RepairMissingReferences(context.Background(), schema.UserPartners)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Zero(t, testutil.Count(t, f.dst, "res_partner"))
}

func TestRepairMissingParents(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.m.now = func() time.Time { return fixed }

	// 9 points at 500, which exists nowhere.
	f.partner(f.src, 9, int64(500))
	res := f.m.MigrateHierarchy(ctx, schema.Partners)
	require.Equal(t, StatusOK, res.Status, res.ErrorMsg)

	res = f.m.RepairMissingParents(ctx, schema.Partners, "parent_id")
	require.Equal(t, StatusOK, res.Status, res.ErrorMsg)
	assert.Equal(t, 1, res.Rows)

	rows := testutil.Rows(t, f.dst, "res_partner", "id", "name", "active", "company_id")
	require.Len(t, rows, 2)
	placeholder := rows[1]
	assert.Equal(t, int64(500), placeholder["id"])
	assert.Equal(t, "Placeholder Parent Partner 500", placeholder["name"])
	assert.Equal(t, int64(1), placeholder["active"])
	assert.Equal(t, int64(1), placeholder["company_id"])
	assert.NotNil(t, testutil.Value(t, f.dst, "SELECT create_date FROM res_partner WHERE id = 500"))

	res = f.m.RepairMissingParents(ctx, schema.Partners, "parent_id")
	require.Equal(t, StatusOK, res.Status, res.ErrorMsg)
	assert.Zero(t, res.Rows)
	assert.Equal(t, 2, testutil.Count(t, f.dst, "res_partner"))
}

func TestRepairMissingParents_RejectsBadColumn(t *testing.T) {
	f := newFixture(t, 10)

	res := f.m.RepairMissingParents(context.Background(), schema.Partners, "parent_id; --")
	assert.Equal(t, StatusFailed, res.Status)
}
