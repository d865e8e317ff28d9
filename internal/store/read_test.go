package store

import (
	"context"
	"reflect"
	"testing"
)

func TestQuery_YieldsRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.Seed(ctx, ordersTable()); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}

	rows, err := s.Query(ctx, `SELECT "Region", SUM("Sales"), COUNT(*) FROM "orders" WHERE "Quantity" > ? GROUP BY "Region" ORDER BY "Region"`, 0)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if got := len(rows.Columns()); got != 3 {
		t.Errorf("len(Columns()) = %d, want 3", got)
	}

	var got [][]any
	for row := range rows.All() {
		got = append(got, row)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	want := [][]any{
		{"East", 15.75, int64(2)},
		{"West", 20.0, int64(1)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %#v, want %#v", got, want)
	}
}

func TestQuery_SinglePass(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.Seed(ctx, ordersTable()); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}

	rows, err := s.Query(ctx, `SELECT "Region" FROM "orders"`)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	first, second := 0, 0
	for range rows.All() {
		first++
	}
	for range rows.All() {
		second++
	}
	if first != 3 || second != 0 {
		t.Errorf("iterations yielded %d and %d rows, want 3 and 0", first, second)
	}
}

func TestQuery_EarlyStopReleasesConnection(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.Seed(ctx, ordersTable()); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}

	rows, err := s.Query(ctx, `SELECT "Region" FROM "orders"`)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	for range rows.All() {
		break
	}

	// The store holds a single connection; a leaked cursor would block here.
	var n int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "orders"`).Scan(&n); err != nil {
		t.Fatalf("follow-up query failed: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestQuery_Error(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.Query(context.Background(), "SELECT * FROM missing"); err == nil {
		t.Fatal("expected error for missing table")
	}
}

func TestRows_Close(t *testing.T) {
	s := createTestStore(t)
	rows, err := s.Query(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if err := rows.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	for range rows.All() {
		t.Fatal("closed rows yielded a row")
	}
}

func TestNormalize(t *testing.T) {
	if got := normalize([]byte("East")); got != "East" {
		t.Errorf("normalize([]byte) = %#v", got)
	}
	if got := normalize(int64(3)); got != int64(3) {
		t.Errorf("normalize(int64) = %#v", got)
	}
}
