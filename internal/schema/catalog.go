package schema

import (
	"fmt"
	"slices"

	"db-migrate/internal/dialect"
)

// TableSpec describes one migrated table. Names here are the only
// identifiers ever spliced into SQL.
type TableSpec struct {
	Name    string
	Key     []string // primary key
	Columns []string // read and write projection, same order on both sides

	// Pointers are self-referencing columns restored in a second pass.
	Pointers []string

	// Require limits source rows to those whose Column matches a row of
	// Table.RefColumn in the source database.
	Require *Requirement
}

type Requirement struct {
	Column    string
	Table     string
	RefColumn string
}

// RefRepair names a foreign key whose missing targets are recreated as
// placeholders copied from the source.
type RefRepair struct {
	Table    string // dependent table
	Column   string // foreign key column in Table
	RefTable string
	RefKey   string
	Label    string // RefTable column copied into the placeholder
}

// Idents returns every identifier the table contributes to SQL.
func (s TableSpec) Idents() []string {
	out := []string{s.Name}
	out = append(out, s.Key...)
	out = append(out, s.Columns...)
	out = append(out, s.Pointers...)
	if s.Require != nil {
		out = append(out, s.Require.Column, s.Require.Table, s.Require.RefColumn)
	}
	return out
}

// Validate checks identifiers and that keys and pointers are part of the
// column list.
func (s TableSpec) Validate() error {
	if err := dialect.CheckIdents(s.Idents()...); err != nil {
		return fmt.Errorf("table spec %s: %w", s.Name, err)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("table spec %s: no columns", s.Name)
	}
	for _, c := range append(append([]string{}, s.Key...), s.Pointers...) {
		if !slices.Contains(s.Columns, c) {
			return fmt.Errorf("table spec %s: %s is not in the column list", s.Name, c)
		}
	}
	return nil
}

// Validate checks the repair's identifiers.
func (r RefRepair) Validate() error {
	return dialect.CheckIdents(r.Table, r.Column, r.RefTable, r.RefKey, r.Label)
}

var Partners = TableSpec{
	Name: "res_partner",
	Key:  []string{"id"},
	Columns: []string{
		"id", "company_id", "name", "title", "parent_id", "user_id", "state_id",
		"country_id", "industry_id", "color", "commercial_partner_id", "create_uid",
		"write_uid", "complete_name", "ref", "lang", "tz", "vat",
		"company_registry", "website", "function", "type", "street", "street2",
		"zip", "city", "email", "phone", "mobile", "commercial_company_name",
		"company_name", "date", "comment", "partner_latitude", "partner_longitude",
		"active", "employee", "is_company", "partner_share",
	},
	Pointers: []string{"parent_id", "commercial_partner_id"},
}

var Users = TableSpec{
	Name: "res_users",
	Key:  []string{"id"},
	Columns: []string{
		"id", "company_id", "partner_id", "active", "create_date", "login",
		"password", "action_id", "create_uid", "write_uid", "signature",
		"share", "write_date", "totp_secret", "notification_type",
		"odoobot_state", "odoobot_failed",
	},
}

var Groups = TableSpec{
	Name: "res_groups",
	Key:  []string{"id"},
	Columns: []string{
		"id", "name", "category_id", "color", "create_uid", "write_uid",
		"comment", "share", "create_date", "write_date",
	},
}

var Companies = TableSpec{
	Name: "res_company",
	Key:  []string{"id"},
	Columns: []string{
		"id", "name", "partner_id", "currency_id", "sequence", "create_date",
		"parent_path", "parent_id", "paperformat_id", "external_report_layout_id",
		"create_uid", "write_uid", "email", "phone", "mobile", "font",
		"primary_color", "secondary_color", "layout_background", "report_header",
		"report_footer", "company_details", "active", "uses_default_logo", "write_date",
	},
}

var CompanyUsers = TableSpec{
	Name:    "res_company_users_rel",
	Key:     []string{"cid", "user_id"},
	Columns: []string{"cid", "user_id"},
	Require: &Requirement{Column: "cid", Table: "res_company", RefColumn: "id"},
}

var GroupUsers = TableSpec{
	Name:    "res_groups_users_rel",
	Key:     []string{"gid", "uid"},
	Columns: []string{"gid", "uid"},
}

// UserPartners recreates partners referenced by users but absent from the
// target.
var UserPartners = RefRepair{
	Table:    "res_users",
	Column:   "partner_id",
	RefTable: "res_partner",
	RefKey:   "id",
	Label:    "name",
}

// Catalog lists every table spec, in migration order.
var Catalog = []TableSpec{Partners, Users, CompanyUsers, Groups, GroupUsers, Companies}

// Lookup returns the catalog spec named name.
func Lookup(name string) (TableSpec, bool) {
	for _, s := range Catalog {
		if s.Name == name {
			return s, true
		}
	}
	return TableSpec{}, false
}
