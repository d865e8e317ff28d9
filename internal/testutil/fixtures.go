// Package testutil provides the sample orders data shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/connector/sqlite"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/store"
)

// OrdersTable is six orders over two regions. East sells 60 with 38
// profit, West sells 45 with 34 profit.
func OrdersTable() store.Table {
	return store.Table{
		Name: "orders",
		Columns: []store.Column{
			{Name: "Region", Type: dtype.String},
			{Name: "City", Type: dtype.String},
			{Name: "Sales", Type: dtype.Float},
			{Name: "Cost", Type: dtype.Float},
		},
		Rows: [][]any{
			{"East", "A", 10.0, 4.0},
			{"East", "A", 20.0, 8.0},
			{"East", "B", 30.0, 10.0},
			{"West", "C", 5.0, 1.0},
			{"West", "D", 15.0, 5.0},
			{"West", "D", 25.0, 5.0},
		},
	}
}

// OrdersDataset describes OrdersTable plus the calculated Profit field.
func OrdersDataset() *compiler.Dataset {
	return &compiler.Dataset{
		Name:      "orders",
		Table:     "orders",
		Connector: "sqlite",
		Fields: []compiler.Field{
			{Name: "Region", Type: dtype.String},
			{Name: "City", Type: dtype.String},
			{Name: "Sales", Type: dtype.Float},
			{Name: "Cost", Type: dtype.Float},
			{Name: "Profit", Type: dtype.Float, Formula: ast.NewBinaryOp("-", ast.NewField("Sales"), ast.NewField("Cost"))},
		},
	}
}

// OpenOrders opens an in-memory SQLite store seeded with OrdersTable. The
// store is closed when the test ends.
func OpenOrders(t testing.TB) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, sqlite.Plugin, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Seed(ctx, OrdersTable()); err != nil {
		t.Fatalf("seed orders: %v", err)
	}
	return s
}
