package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"petshop/internal/domain"
	"petshop/internal/payment"
	cartrepo "petshop/internal/repository/cart"
	cartsvc "petshop/internal/service/cart"
	"petshop/internal/service/checkout"
	"petshop/internal/service/pricing"
)

// memCartRepo stores lines the way the Postgres repository does: the price
// is copied when a line is first added.
type memCartRepo struct {
	cart *domain.Cart
}

func (r *memCartRepo) GetOrCreateActive(_ context.Context, userID int64) (*domain.Cart, error) {
	if r.cart == nil {
		r.cart = &domain.Cart{ID: 1, UserID: userID, State: domain.CartStateActive}
	}
	clone := *r.cart
	clone.Lines = append([]domain.CartLine(nil), r.cart.Lines...)
	return &clone, nil
}

func (r *memCartRepo) AddLineItems(_ context.Context, _ int64, lines []cartrepo.NewLine) error {
	for _, l := range lines {
		r.cart.Lines = append(r.cart.Lines, domain.CartLine{
			ID:          int64(len(r.cart.Lines) + 1),
			CartID:      r.cart.ID,
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.Product.Price,
		})
	}
	return nil
}

func (r *memCartRepo) ChangeLineItemQuantity(context.Context, int64, int64, int) error { return nil }
func (r *memCartRepo) RemoveLineItem(context.Context, int64, int64) error               { return nil }

func (r *memCartRepo) ClearLineItems(context.Context, int64) error {
	r.cart.Lines = nil
	return nil
}

func TestCartTotalIsAcceptedByCheckoutAfterPriceChange(t *testing.T) {
	catalog := catalogRepo{
		1: {ID: 1, Name: "Dog Food", Price: decimal.RequireFromString("10.00"), Active: true},
		2: {ID: 2, Name: "Cat Toy", Price: decimal.RequireFromString("5.00"), Active: true},
	}
	policy := pricing.Policy{
		ShippingFee:           decimal.RequireFromString("4.99"),
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
	}
	orders := &memOrderRepo{}
	proc := payment.NewMock()

	deps := defaultDeps()
	deps.CartSvc = cartsvc.New(&memCartRepo{}, catalog, policy, nil, nil)
	deps.CheckoutSvc = checkout.New(orders, catalog, proc, policy, "usd", nil)
	router := newTestRouter(t, deps)

	for _, body := range []string{`{"productId": 1, "quantity": 2}`, `{"productId": 2, "quantity": 1}`} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(body))))
		if rec.Code != http.StatusOK {
			t.Fatalf("add to cart: expected 200, got %d body=%s", rec.Code, rec.Body.String())
		}
	}

	p := catalog[1]
	p.Price = decimal.RequireFromString("12.00")
	catalog[1] = p

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/cart", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("get cart: expected 200, got %d", rec.Code)
	}
	var view domain.CartView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if !view.Summary.Total.Equal(decimal.RequireFromString("33.99")) {
		t.Fatalf("expected cart total 33.99, got %s", view.Summary.Total)
	}

	req := checkout.Request{
		Amount:          view.Summary.Total,
		UserID:          7,
		ShippingAddress: "1 Main St",
		ShippingCity:    "Springfield",
		ShippingState:   "IL",
		ShippingZipCode: "62701",
		ShippingPhone:   "555-0100",
	}
	for _, line := range view.Items {
		req.CartItems = append(req.CartItems, checkout.LineItem{ProductID: line.ProductID, Quantity: line.Quantity, Price: line.UnitPrice})
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("encode checkout: %v", err)
	}

	rec = postCheckout(router, string(body), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(orders.orders) != 1 || !orders.orders[0].TotalAmount.Equal(view.Summary.Total) {
		t.Fatalf("expected order total to equal cart total, got %+v", orders.orders)
	}
	intent, err := proc.RetrieveIntent(context.Background(), orders.orders[0].PaymentIntentID)
	if err != nil || intent.Amount != 3399 {
		t.Fatalf("expected 3399 minor units, got %+v %v", intent, err)
	}
}
