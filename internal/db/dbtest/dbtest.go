// Package dbtest provides a migrated PostgreSQL pool for integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"petshop/internal/db"
	"petshop/internal/migrate"
)

// Pool connects to TEST_DB_DSN, applies migrations and truncates every table.
// The test is skipped when TEST_DB_DSN is unset.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn, db.Options{MaxConns: 4})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	Reset(t, pool)
	return pool
}

// Reset truncates all application tables.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	const q = `TRUNCATE order_items, orders, cart_lines, carts, products, categories, tokens, users RESTART IDENTITY CASCADE`
	if _, err := pool.Exec(context.Background(), q); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// InsertUser creates a user row and returns its id.
func InsertUser(t *testing.T, pool *pgxpool.Pool, email string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (email, password_hash) VALUES ($1, 'x') RETURNING id`, email).Scan(&id)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

// InsertProduct creates a product row and returns its id.
func InsertProduct(t *testing.T, pool *pgxpool.Pool, sku, name, price string, active bool) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO products (sku, name, price, currency, active)
		VALUES ($1, $2, $3::numeric, 'usd', $4)
		RETURNING id
	`, sku, name, price, active).Scan(&id)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}
