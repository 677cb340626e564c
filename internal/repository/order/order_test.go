package order

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"petshop/internal/db/dbtest"
	"petshop/internal/domain"
)

func newOrder(userID, p1, p2 int64, number, key string) domain.Order {
	return domain.Order{
		OrderNumber:     number,
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		TotalAmount:     decimal.RequireFromString("25.00"),
		Currency:        "usd",
		ShippingAddress: "1 Bark St",
		ShippingCity:    "Springfield",
		ShippingState:   "IL",
		ShippingZipCode: "62701",
		ShippingPhone:   "555-0100",
		PaymentMethod:   domain.PaymentMethodCard,
		PaymentIntentID: "pi_" + number,
		IdempotencyKey:  key,
		Items: []domain.OrderItem{
			{ProductID: p1, Quantity: 2, ProductName: "Kibble", ProductPrice: decimal.RequireFromString("10.00")},
			{ProductID: p2, Quantity: 1, ProductName: "Ball", ProductPrice: decimal.RequireFromString("5.00")},
		},
	}
}

func TestPostgres_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	userID := dbtest.InsertUser(t, pool, "o@example.com")
	p1 := dbtest.InsertProduct(t, pool, "SKU1", "Kibble", "10.00", true)
	p2 := dbtest.InsertProduct(t, pool, "SKU2", "Ball", "5.00", true)

	repo := NewPostgres(pool, nil)
	created, err := repo.Create(ctx, newOrder(userID, p1, p2, "ORD-1", "key-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 || len(created.Items) != 2 || created.Items[0].ID == 0 {
		t.Fatalf("unexpected created order %+v", created)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.TotalAmount.Equal(decimal.NewFromInt(25)) || got.Status != domain.OrderStatusPending {
		t.Fatalf("unexpected order %+v", got)
	}
	if len(got.Items) != 2 || got.Items[0].Quantity != 2 || !got.Items[1].ProductPrice.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected items %+v", got.Items)
	}

	byKey, err := repo.GetByIdempotencyKey(ctx, "key-1")
	if err != nil || byKey.ID != created.ID {
		t.Fatalf("GetByIdempotencyKey: %+v %v", byKey, err)
	}
	byIntent, err := repo.GetByPaymentIntentID(ctx, "pi_ORD-1")
	if err != nil || byIntent.ID != created.ID {
		t.Fatalf("GetByPaymentIntentID: %+v %v", byIntent, err)
	}

	if _, err := repo.Create(ctx, newOrder(userID, p1, p2, "ORD-2", "key-1")); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for reused key, got %v", err)
	}
	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM order_items`).Scan(&count); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected rolled back items, got %d rows", count)
	}
}

func TestPostgres_CreateRollsBackOnBadItem(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	userID := dbtest.InsertUser(t, pool, "o@example.com")
	p1 := dbtest.InsertProduct(t, pool, "SKU1", "Kibble", "10.00", true)

	repo := NewPostgres(pool, nil)
	if _, err := repo.Create(ctx, newOrder(userID, p1, 9999, "ORD-1", "")); err == nil {
		t.Fatalf("expected foreign key error")
	}

	var orders int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&orders); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 0 {
		t.Fatalf("expected no orders after rollback, got %d", orders)
	}
}

func TestPostgres_ListAndUpdateStatus(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	userID := dbtest.InsertUser(t, pool, "o@example.com")
	other := dbtest.InsertUser(t, pool, "x@example.com")
	p1 := dbtest.InsertProduct(t, pool, "SKU1", "Kibble", "10.00", true)
	p2 := dbtest.InsertProduct(t, pool, "SKU2", "Ball", "5.00", true)

	repo := NewPostgres(pool, nil)
	first, err := repo.Create(ctx, newOrder(userID, p1, p2, "ORD-1", ""))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := repo.Create(ctx, newOrder(userID, p1, p2, "ORD-2", ""))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, newOrder(other, p1, p2, "ORD-3", "")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := repo.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || len(list[0].Items) != 2 {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := repo.UpdateStatus(ctx, first.ID, domain.OrderStatusPaid, domain.PaymentStatusPaid); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.OrderStatusPaid || got.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("unexpected statuses %+v", got)
	}
	if err := repo.UpdateStatus(ctx, 424242, domain.OrderStatusPaid, domain.PaymentStatusPaid); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
