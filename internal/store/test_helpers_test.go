package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/formulon/internal/connector/sqlite"
	"github.com/roach88/formulon/internal/dtype"
)

// createTestStore opens an in-memory SQLite store.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), sqlite.Plugin, ":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createFileStore opens a SQLite store backed by a temp file.
func createFileStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), sqlite.Plugin, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

// ordersTable is a small fixture with one column per common type.
func ordersTable() Table {
	return Table{
		Name: "orders",
		Columns: []Column{
			{Name: "Region", Type: dtype.String},
			{Name: "Sales", Type: dtype.Float},
			{Name: "Quantity", Type: dtype.Integer},
		},
		Rows: [][]any{
			{"East", 10.5, 1},
			{"West", 20.0, 2},
			{"East", 5.25, 3},
		},
	}
}
