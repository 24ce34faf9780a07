package database

import "fmt"

// Row is one ordered result record: column names in query order with their
// values. It replaces name-indexed dictionary rows with a checked accessor.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column, or an error when the column is
// not part of the result shape. Absence and NULL stay distinguishable: a NULL
// value is returned as a nil any with no error.
func (r Row) Get(column string) (any, error) {
	for i, name := range r.Columns {
		if name == column {
			return r.Values[i], nil
		}
	}
	return nil, fmt.Errorf("column %q not in result set", column)
}

func scanRows(rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(...any) error
	Err() error
}) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		out = append(out, Row{Columns: columns, Values: values})
	}
	return out, rows.Err()
}
