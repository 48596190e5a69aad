package engine

import (
	"context"
	"fmt"
	"time"

	"db-migrate/internal/dialect"
	"db-migrate/internal/schema"

	"github.com/sirupsen/logrus"
)

// Step is one entry of the migration plan.
type Step struct {
	Name  string
	Table string
	Run   func(ctx context.Context) Result
}

// Plan returns the fixed, ordered migration plan.
func (m *Migrator) Plan() []Step {
	migrate := func(spec schema.TableSpec, c dialect.Conflict) func(context.Context) Result {
		return func(ctx context.Context) Result { return m.MigrateTable(ctx, spec, c) }
	}
	reconcile := func(table string) Step {
		return Step{
			Name:  "reconcile " + table + ".id",
			Table: table,
			Run:   func(ctx context.Context) Result { return m.ReconcileSequence(ctx, table, "id") },
		}
	}

	return []Step{
		{
			Name:  "migrate res_partner (two-pass)",
			Table: schema.Partners.Name,
			Run:   func(ctx context.Context) Result { return m.MigrateHierarchy(ctx, schema.Partners) },
		},
		reconcile(schema.Partners.Name),
		{
			Name:  "repair res_users.partner_id",
			Table: schema.UserPartners.RefTable,
			Run:   func(ctx context.Context) Result { return m.RepairMissingReferences(ctx, schema.UserPartners) },
		},
		{
			Name:  "repair res_partner.parent_id",
			Table: schema.Partners.Name,
			Run:   func(ctx context.Context) Result { return m.RepairMissingParents(ctx, schema.Partners, "parent_id") },
		},
		// res_users runs three times; the second ignore pass finds nothing new.
		{Name: "migrate res_users (ignore)", Table: schema.Users.Name, Run: migrate(schema.Users, dialect.Ignore(schema.Users.Key...))},
		{Name: "migrate res_users (ignore, again)", Table: schema.Users.Name, Run: migrate(schema.Users, dialect.Ignore(schema.Users.Key...))},
		{Name: "migrate res_company_users_rel", Table: schema.CompanyUsers.Name, Run: migrate(schema.CompanyUsers, dialect.Ignore(schema.CompanyUsers.Key...))},
		{Name: "migrate res_users (update)", Table: schema.Users.Name, Run: migrate(schema.Users, dialect.UpdatePrimaryKey(schema.Users.Key...))},
		{
			Name:  "assign users to default group",
			Table: schema.GroupUsers.Name,
			Run:   m.AssignDefaultGroup,
		},
		{Name: "migrate res_groups (update)", Table: schema.Groups.Name, Run: migrate(schema.Groups, dialect.UpdatePrimaryKey(schema.Groups.Key...))},
		{Name: "migrate res_groups_users_rel", Table: schema.GroupUsers.Name, Run: migrate(schema.GroupUsers, dialect.Ignore(schema.GroupUsers.Key...))},
		reconcile(schema.Partners.Name),
		reconcile(schema.Users.Name),
		reconcile(schema.Companies.Name),
	}
}

// SequenceSteps returns only the final reconciliation steps of the plan.
func (m *Migrator) SequenceSteps() []Step {
	plan := m.Plan()
	return plan[len(plan)-3:]
}

// Run executes steps in order and returns one Result per step. A failed step
// does not stop the run; cancelling ctx fails every step not yet started.
func (m *Migrator) Run(ctx context.Context, steps []Step) []Result {
	results := make([]Result, 0, len(steps))
	for i, step := range steps {
		log := m.log.WithFields(logrus.Fields{"step": step.Name, "table": step.Table})

		var res Result
		start := time.Now()
		if err := ctx.Err(); err != nil {
			res = fail(step.Table, 0, fmt.Errorf("not started: %w", err))
		} else {
			log.Debugf("step %d/%d", i+1, len(steps))
			res = step.Run(ctx)
		}
		res.Step = step.Name
		res.Table = step.Table
		res.Elapsed = time.Since(start)
		if res.Err != nil {
			res.Err.Step = step.Name
		}
		results = append(results, res)
	}
	return results
}
