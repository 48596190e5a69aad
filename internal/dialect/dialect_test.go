package dialect_test

import (
	"strings"
	"testing"

	"db-migrate/internal/dialect"
)

func TestGetDialect(t *testing.T) {
	tests := map[string]string{
		"postgres":  "postgres",
		"pgx":       "postgres",
		"mysql":     "mysql",
		"sqlserver": "sqlserver",
		"mssql":     "sqlserver",
		"oracle":    "oracle",
		"sqlite3":   "sqlite3",
		"":          "mysql",
	}
	for driver, want := range tests {
		if got := dialect.GetDialect(driver).Name(); got != want {
			t.Errorf("GetDialect(%q) = %s, want %s", driver, got, want)
		}
	}
}

func TestInsertQuery_Postgres(t *testing.T) {
	d := &dialect.PostgresDialect{}
	cols := []string{"id", "name", "active"}

	tests := []struct {
		name     string
		conflict dialect.Conflict
		want     string
	}{
		{
			name:     "ignore any",
			conflict: dialect.Ignore(),
			want:     `INSERT INTO "res_users" ("id", "name", "active") VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		},
		{
			name:     "ignore keys are not a conflict target",
			conflict: dialect.Ignore("id"),
			want:     `INSERT INTO "res_users" ("id", "name", "active") VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		},
		{
			name:     "update by primary key",
			conflict: dialect.UpdatePrimaryKey("id"),
			want:     `INSERT INTO "res_users" ("id", "name", "active") VALUES ($1, $2, $3) ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name", "active" = EXCLUDED."active"`,
		},
		{
			name:     "update by key set",
			conflict: dialect.UpdateKeys("id", "name"),
			want:     `INSERT INTO "res_users" ("id", "name", "active") VALUES ($1, $2, $3) ON CONFLICT ("id", "name") DO UPDATE SET "active" = EXCLUDED."active"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.InsertQuery("res_users", cols, tt.conflict)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("query mismatch\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestInsertQuery_AllKeyColumnsDegradesToIgnore(t *testing.T) {
	d := &dialect.SQLiteDialect{}
	got, err := d.InsertQuery("res_groups_users_rel", []string{"gid", "uid"}, dialect.UpdateKeys("gid", "uid"))
	if err != nil {
		t.Fatal(err)
	}
	want := `INSERT INTO "res_groups_users_rel" ("gid", "uid") VALUES (?, ?) ON CONFLICT DO NOTHING`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestInsertQuery_MySQL(t *testing.T) {
	d := &dialect.MysqlDialect{}
	cols := []string{"id", "login"}

	ignore, err := d.InsertQuery("res_users", cols, dialect.Ignore())
	if err != nil {
		t.Fatal(err)
	}
	if ignore != "INSERT IGNORE INTO `res_users` (`id`, `login`) VALUES (?, ?)" {
		t.Errorf("unexpected ignore query: %s", ignore)
	}

	update, err := d.InsertQuery("res_users", cols, dialect.UpdatePrimaryKey())
	if err != nil {
		t.Fatal(err)
	}
	if update != "INSERT INTO `res_users` (`id`, `login`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `login` = VALUES(`login`)" {
		t.Errorf("unexpected update query: %s", update)
	}
}

func TestInsertQuery_Merge(t *testing.T) {
	cols := []string{"id", "name"}

	mssql, err := (&dialect.MSSQLDialect{}).InsertQuery("res_partner", cols, dialect.UpdatePrimaryKey())
	if err != nil {
		t.Fatal(err)
	}
	want := "MERGE INTO [res_partner] WITH (HOLDLOCK) AS tgt USING (VALUES (@p1, @p2)) AS src ([id], [name]) ON (tgt.[id] = src.[id])" +
		" WHEN MATCHED THEN UPDATE SET tgt.[name] = src.[name]" +
		" WHEN NOT MATCHED THEN INSERT ([id], [name]) VALUES (src.[id], src.[name]);"
	if mssql != want {
		t.Errorf("mssql mismatch\n got: %s\nwant: %s", mssql, want)
	}

	oracle, err := (&dialect.OracleDialect{}).InsertQuery("res_partner", cols, dialect.Ignore("id"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(oracle, "WHEN MATCHED") {
		t.Errorf("ignore policy must not update: %s", oracle)
	}
	if !strings.HasPrefix(oracle, `MERGE INTO "RES_PARTNER" tgt USING (SELECT :1 AS "ID", :2 AS "NAME" FROM dual) src`) {
		t.Errorf("unexpected oracle query: %s", oracle)
	}

	if _, err := (&dialect.OracleDialect{}).InsertQuery("res_partner", cols, dialect.Ignore()); err == nil {
		t.Error("expected error for MERGE without keys")
	}
}

func TestInsertQuery_ValidationErrors(t *testing.T) {
	d := &dialect.PostgresDialect{}
	if _, err := d.InsertQuery("res_users", nil, dialect.Ignore()); err == nil {
		t.Error("expected error for empty column list")
	}
	if _, err := d.InsertQuery("res_users", []string{"id"}, dialect.UpdateKeys()); err == nil {
		t.Error("expected error for update policy without keys")
	}
	if _, err := d.InsertQuery("res_users", []string{"id"}, dialect.UpdateKeys("login")); err == nil {
		t.Error("expected error for key outside column list")
	}
}

func TestUpdatableColumns_NeverIncludesKeys(t *testing.T) {
	got := dialect.UpdatableColumns([]string{"gid", "uid", "note"}, []string{"uid", "gid"})
	if len(got) != 1 || got[0] != "note" {
		t.Errorf("unexpected updatable columns: %v", got)
	}
}

func TestValidIdent(t *testing.T) {
	for _, ok := range []string{"res_partner", "id", "_x1"} {
		if !dialect.ValidIdent(ok) {
			t.Errorf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"", "Res", "a;drop", "a b", `x"`, "1abc"} {
		if dialect.ValidIdent(bad) {
			t.Errorf("%q should be rejected", bad)
		}
	}
}

func TestGeneratePlaceholders(t *testing.T) {
	got := dialect.GeneratePlaceholders(3, (&dialect.MSSQLDialect{}).Placeholder)
	if got != "@p1, @p2, @p3" {
		t.Errorf("unexpected placeholders: %s", got)
	}
}

func TestCopyColumnsQuery(t *testing.T) {
	pg := &dialect.PostgresDialect{}
	got := pg.CopyColumnsQuery("res_partner", pg.StagingTable("res_partner"), "id", []string{"parent_id", "commercial_partner_id"})
	want := `UPDATE "res_partner" AS tgt SET "parent_id" = stg."parent_id", "commercial_partner_id" = stg."commercial_partner_id" FROM "stg_res_partner" AS stg WHERE tgt."id" = stg."id"`
	if got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}
