package engine

import (
	"context"
	"testing"

	"db-migrate/internal/record"
	"db-migrate/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignDefaultGroup(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	testutil.Insert(t, f.dst, "ir_model_data", record.Row{"module": "base", "name": "group_user", "model": "res.groups", "res_id": int64(11)})
	for id := int64(1); id <= 4; id++ {
		f.user(f.dst, id, nil)
	}

	for run := 1; run <= 2; run++ {
		res := f.m.AssignDefaultGroup(ctx)
		require.Equal(t, StatusOK, res.Status, res.ErrorMsg)
		assert.Equal(t, 2, res.Rows)
	}

	rows := testutil.Rows(t, f.dst, "res_groups_users_rel", "uid", "gid")
	require.Len(t, rows, 2)
	assert.Equal(t, record.Row{"uid": int64(3), "gid": int64(11)}, rows[0])
	assert.Equal(t, record.Row{"uid": int64(4), "gid": int64(11)}, rows[1])
}

func TestAssignDefaultGroup_Skips(t *testing.T) {
	t.Run("no users", func(t *testing.T) {
		f := newFixture(t, 10)
		f.user(f.dst, 1, nil)
		f.user(f.dst, 2, nil)

		res := f.m.AssignDefaultGroup(context.Background())
		assert.Equal(t, StatusSkipped, res.Status)
	})

	t.Run("no group", func(t *testing.T) {
		f := newFixture(t, 10)
		f.user(f.dst, 3, nil)

		res := f.m.AssignDefaultGroup(context.Background())
		assert.Equal(t, StatusSkipped, res.Status)
		assert.Zero(t, testutil.Count(t, f.dst, "res_groups_users_rel"))
	})
}
