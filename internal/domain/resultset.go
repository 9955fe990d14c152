package domain

// ResultSet holds rows returned by a structured query, in column order.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r ResultSet) Len() int { return len(r.Rows) }

// Empty reports whether the result holds no rows.
func (r ResultSet) Empty() bool { return len(r.Rows) == 0 }
