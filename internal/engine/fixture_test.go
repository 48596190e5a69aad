package engine

import (
	"database/sql"
	"testing"

	"db-migrate/internal/dialect"
	"db-migrate/internal/logging"
	"db-migrate/internal/record"
	"db-migrate/internal/testutil"

	"github.com/brianvoe/gofakeit/v6"
)

type fixture struct {
	t    *testing.T
	src  *sql.DB
	dst  *sql.DB
	m    *Migrator
	fake *gofakeit.Faker

	batches map[string]int
}

func newFixture(t *testing.T, batchSize int) *fixture {
	t.Helper()
	src := testutil.NewCatalogDB(t, "source", testutil.Options{JSONLabels: true})
	dst := testutil.NewCatalogDB(t, "target", testutil.Options{ForeignKeys: true})
	d := dialect.GetDialect("sqlite3")

	f := &fixture{
		t:       t,
		src:     src,
		dst:     dst,
		fake:    gofakeit.New(42),
		batches: map[string]int{},
	}
	f.m = New(Database{DB: src, Dialect: d}, Database{DB: dst, Dialect: d},
		Settings{BatchSize: batchSize}, logging.Discard())
	f.m.OnBatch = func(table string, done, total int) { f.batches[table]++ }
	return f
}

func (f *fixture) partner(db *sql.DB, id int64, parent any) {
	f.t.Helper()
	testutil.Insert(f.t, db, "res_partner", record.Row{
		"id":                    id,
		"name":                  f.fake.Name(),
		"email":                 f.fake.Email(),
		"parent_id":             parent,
		"commercial_partner_id": parent,
		"company_id":            int64(1),
		"active":                true,
	})
}

func (f *fixture) user(db *sql.DB, id int64, partnerID any) {
	f.t.Helper()
	testutil.Insert(f.t, db, "res_users", record.Row{
		"id":         id,
		"login":      f.fake.Username(),
		"partner_id": partnerID,
		"company_id": int64(0),
		"create_uid": int64(1),
		"active":     true,
	})
}
