package schema

// Table is the introspected shape of one database table.
type Table struct {
	Name         string
	Columns      []*Column
	ForeignKeys  []*ForeignKey
	Dependencies []string // referenced tables, for ordering
}

type Column struct {
	Name       string
	DataType   string
	IsNullable bool
	IsPK       bool
}

type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// HasColumn reports whether the table has a column named name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
