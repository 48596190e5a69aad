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

// AssignDefaultGroup adds every non-system target user to the group
// registered in ir_model_data under the configured module and name.
func (m *Migrator) AssignDefaultGroup(ctx context.Context) Result {
	rel := schema.GroupUsers
	log := m.log.WithFields(logrus.Fields{
		"table": rel.Name,
		"group": m.settings.GroupModule + "." + m.settings.GroupName,
	})
	d := m.Target.Dialect

	users, err := queryColumn(ctx, m.Target.DB,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s > %s",
			d.QuoteIdent("id"), d.QuoteIdent(schema.Users.Name), d.QuoteIdent("id"), d.Placeholder(0)),
		m.settings.SystemUserMaxID)
	if err != nil {
		log.WithError(err).Error("❌ error listing users")
		return fail(rel.Name, 0, err)
	}
	if len(users) == 0 {
		log.Warn("⚠ no users found to assign to groups")
		return skip(rel.Name, "no users")
	}

	gid, err := m.lookupGroup(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("⚠ could not find the group")
		return skip(rel.Name, "group not found")
	}
	if err != nil {
		log.WithError(err).Error("❌ error looking up group")
		return fail(rel.Name, 0, err)
	}

	rows := make([]record.Row, len(users))
	for i, uid := range users {
		rows[i] = record.Row{"gid": gid, "uid": uid}
	}
	n, err := m.writeRows(ctx, rel.Name, rel.Columns, rows, dialect.Ignore(rel.Key...))
	if err != nil {
		log.WithError(err).Error("❌ error assigning users to group")
		return fail(rel.Name, n, err)
	}
	log.WithField("rows", n).Infof("✅ assigned %d users to the group", n)
	return done(rel.Name, n, fmt.Sprintf("group %v", gid))
}

func (m *Migrator) lookupGroup(ctx context.Context) (any, error) {
	d := m.Target.Dialect
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s AND %s = %s",
		d.QuoteIdent("res_id"), d.QuoteIdent("ir_model_data"),
		d.QuoteIdent("module"), d.Placeholder(0),
		d.QuoteIdent("name"), d.Placeholder(1))

	var gid any
	if err := m.Target.DB.QueryRowContext(ctx, query, m.settings.GroupModule, m.settings.GroupName).Scan(&gid); err != nil {
		return nil, err
	}
	if gid == nil {
		return nil, sql.ErrNoRows
	}
	return gid, nil
}
