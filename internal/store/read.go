package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
)

// Rows is a single-pass result set.
type Rows struct {
	rows    *sql.Rows
	columns []string
	err     error
	used    bool
}

// Query runs query with args. The caller must iterate All or call Close.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("query columns: %w", err)
	}
	return &Rows{rows: rows, columns: cols}, nil
}

// Columns returns the result column names.
func (r *Rows) Columns() []string {
	return append([]string(nil), r.columns...)
}

// All yields every row once and closes the cursor when iteration stops.
// Scan errors end the sequence and are reported by Err.
func (r *Rows) All() iter.Seq[[]any] {
	return func(yield func([]any) bool) {
		if r.used {
			return
		}
		r.used = true
		defer r.rows.Close()

		for r.rows.Next() {
			values := make([]any, len(r.columns))
			ptrs := make([]any, len(values))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := r.rows.Scan(ptrs...); err != nil {
				r.err = fmt.Errorf("scan row: %w", err)
				return
			}
			for i, v := range values {
				values[i] = normalize(v)
			}
			if !yield(values) {
				return
			}
		}
		if err := r.rows.Err(); err != nil {
			r.err = fmt.Errorf("iterate rows: %w", err)
		}
	}
}

// Err returns the first error met while iterating.
func (r *Rows) Err() error {
	return r.err
}

// Close releases the cursor without reading it.
func (r *Rows) Close() error {
	r.used = true
	return r.rows.Close()
}

// normalize converts driver text buffers to strings. Drivers may reuse the
// buffer after the next call to Next.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
