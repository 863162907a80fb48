package schema

import "strings"

// Table is either an introspected table or a node in a dependency plan.
type Table struct {
	Name         string
	Columns      []*Column
	Dependencies []string
}

type Column struct {
	Name       string
	DataType   string
	IsNullable bool
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}
