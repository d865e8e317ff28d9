package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/merge"
	"github.com/roach88/formulon/internal/translate"
)

// seedBatch is the number of rows per INSERT statement.
const seedBatch = 100

// Column is a fixture column.
type Column struct {
	Name string
	Type dtype.DataType
}

// Table is a fixture table and its rows, one value per column.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Seed creates every table and inserts its rows in one transaction.
// Column types use the connector's native type names.
func (s *Store) Seed(ctx context.Context, tables ...Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tables {
		ddl, err := s.createTable(t)
		if err != nil {
			return fmt.Errorf("seed %s: %w", t.Name, err)
		}
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("seed %s: create: %w", t.Name, err)
		}

		for batch := range merge.Chunks(slices.Values(t.Rows), seedBatch) {
			query, args, err := s.insert(t, batch)
			if err != nil {
				return fmt.Errorf("seed %s: %w", t.Name, err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("seed %s: insert: %w", t.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}
	return nil
}

func (s *Store) createTable(t Table) (string, error) {
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("table has no columns")
	}
	ids := s.plugin.Family.Identifiers()
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		native, ok := s.plugin.Types.Names[c.Type]
		if !ok {
			return "", fmt.Errorf("column %s: %s has no %s type", c.Name, c.Type, s.plugin.Family)
		}
		cols[i] = ids.Quote(c.Name) + " " + native
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", ids.QuotePath(strings.Split(t.Name, ".")...), strings.Join(cols, ", ")), nil
}

func (s *Store) insert(t Table, rows [][]any) (string, []any, error) {
	ids := s.plugin.Family.Identifiers()
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = ids.Quote(c.Name)
	}
	ins := sq.Insert(ids.QuotePath(strings.Split(t.Name, ".")...)).Columns(names...)
	for n, row := range rows {
		if len(row) != len(t.Columns) {
			return "", nil, fmt.Errorf("row %d has %d values for %d columns", n, len(row), len(t.Columns))
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = s.storable(t.Columns[i].Type, v)
		}
		ins = ins.Values(values...)
	}
	return translate.Render(ins, s.plugin.Family)
}

// storable converts times to the ISO text SQLite date functions expect.
func (s *Store) storable(typ dtype.DataType, v any) any {
	tv, ok := v.(time.Time)
	if !ok || s.plugin.Family != dialect.SQLite {
		return v
	}
	if typ == dtype.Date {
		return tv.Format(time.DateOnly)
	}
	return tv.Format(time.DateTime)
}
