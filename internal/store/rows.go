package store

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Rows iterates the raw values of a result set. Values are the driver's
// native representations, in column order.
type Rows interface {
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}

type sqlRows struct {
	rows  *sql.Rows
	width int
}

func newSQLRows(rows *sql.Rows) (*sqlRows, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}
	return &sqlRows{rows: rows, width: len(cols)}, nil
}

func (r *sqlRows) Next() bool { return r.rows.Next() }

func (r *sqlRows) Values() ([]any, error) {
	values := make([]any, r.width)
	dest := make([]any, r.width)
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, err
	}
	return values, nil
}

func (r *sqlRows) Err() error   { return r.rows.Err() }
func (r *sqlRows) Close() error { return r.rows.Close() }

type pgxRows struct {
	rows pgx.Rows
}

func (r pgxRows) Next() bool             { return r.rows.Next() }
func (r pgxRows) Values() ([]any, error) { return r.rows.Values() }
func (r pgxRows) Err() error             { return r.rows.Err() }

func (r pgxRows) Close() error {
	r.rows.Close()
	return r.rows.Err()
}
