package models

// Row is one raw table row keyed by column name. An empty cell is null.
type Row map[string]string

// Get returns the cell value and whether it is non-null.
func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Table is an in-memory raw table as landed in the data lake.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Len returns the row count; a nil table has zero rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
