// Package catalog describes the relational tables the chatbot may query.
package catalog

import (
	"slices"
	"sort"
	"strings"
)

// Options restricts which tables and columns of the database are exposed.
type Options struct {
	AllowedTables    []string
	PersonalTables   []string
	TenantColumn     string
	AskerColumn      string
	SensitiveTable   string
	SensitiveColumns []string
}

// DefaultOptions returns the groupware schema exposed by default.
func DefaultOptions() Options {
	return Options{
		AllowedTables: []string{
			"approval_line", "attendance", "board",
			"corporate_car", "corporate_car_reservation",
			"meeting_room", "meeting_room_reservation",
			"shared_equipment", "shared_equipment_reservation",
			"emp_schedule", "employee", "todo_list", "mail",
			"meeting", "meeting_emp", "schedule",
		},
		PersonalTables:   []string{"todo_list", "mail", "attendance", "emp_schedule"},
		TenantColumn:     "com_id",
		AskerColumn:      "emp_id",
		SensitiveTable:   "employee",
		SensitiveColumns: []string{"emp_id", "emp_name", "email", "work_phone", "msg_stat", "delegate"},
	}
}

// Catalog maps every allow-listed table present in the database to its columns.
// Names are stored lower-cased.
type Catalog struct {
	tables    map[string][]string
	columns   map[string]map[string]struct{}
	personal  map[string]struct{}
	sensitive map[string]struct{}
	opts      Options
}

// New builds a catalog from introspected columns, keeping only allow-listed tables.
func New(columns map[string][]string, opts Options) Catalog {
	allowed := toSet(opts.AllowedTables)
	c := Catalog{
		tables:    make(map[string][]string),
		columns:   make(map[string]map[string]struct{}),
		personal:  toSet(opts.PersonalTables),
		sensitive: toSet(opts.SensitiveColumns),
		opts:      opts,
	}
	c.opts.TenantColumn = strings.ToLower(opts.TenantColumn)
	c.opts.AskerColumn = strings.ToLower(opts.AskerColumn)
	c.opts.SensitiveTable = strings.ToLower(opts.SensitiveTable)

	for table, cols := range columns {
		name := strings.ToLower(table)
		if _, ok := allowed[name]; !ok {
			continue
		}
		set := make(map[string]struct{}, len(cols))
		ordered := make([]string, 0, len(cols))
		for _, col := range cols {
			lc := strings.ToLower(col)
			if _, dup := set[lc]; dup {
				continue
			}
			set[lc] = struct{}{}
			ordered = append(ordered, lc)
		}
		c.tables[name] = ordered
		c.columns[name] = set
	}
	return c
}

// Len returns the number of exposed tables.
func (c Catalog) Len() int { return len(c.tables) }

// Tables returns exposed table names in sorted order.
func (c Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Allowed reports whether table is exposed.
func (c Catalog) Allowed(table string) bool {
	_, ok := c.tables[strings.ToLower(table)]
	return ok
}

// Columns returns the columns of table in introspection order.
func (c Catalog) Columns(table string) []string {
	return slices.Clone(c.tables[strings.ToLower(table)])
}

// AnyHasColumn reports whether at least one of tables has column.
func (c Catalog) AnyHasColumn(tables []string, column string) bool {
	column = strings.ToLower(column)
	for _, t := range tables {
		if _, ok := c.columns[strings.ToLower(t)][column]; ok {
			return true
		}
	}
	return false
}

// IsPersonal reports whether table holds rows owned by a single employee.
func (c Catalog) IsPersonal(table string) bool {
	_, ok := c.personal[strings.ToLower(table)]
	return ok
}

// TenantColumn names the column scoping rows to a company.
func (c Catalog) TenantColumn() string { return c.opts.TenantColumn }

// AskerColumn names the column scoping personal rows to an employee.
func (c Catalog) AskerColumn() string { return c.opts.AskerColumn }

// SensitiveTable names the table whose projection is column-restricted.
func (c Catalog) SensitiveTable() string { return c.opts.SensitiveTable }

// SensitiveColumnAllowed reports whether column may be projected from the sensitive table.
func (c Catalog) SensitiveColumnAllowed(column string) bool {
	_, ok := c.sensitive[strings.ToLower(column)]
	return ok
}

// Summary renders one "table(col1, col2)" line per table for prompting.
// The sensitive table only lists its projectable columns.
func (c Catalog) Summary() string {
	var b strings.Builder
	for _, name := range c.Tables() {
		cols := c.tables[name]
		if name == c.opts.SensitiveTable {
			cols = slices.DeleteFunc(slices.Clone(cols), func(col string) bool {
				return !c.SensitiveColumnAllowed(col)
			})
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(name)
		b.WriteByte('(')
		b.WriteString(strings.Join(cols, ", "))
		b.WriteByte(')')
	}
	return b.String()
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToLower(strings.TrimSpace(it))] = struct{}{}
	}
	return set
}
