package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"petshop/internal/domain"
)

func TestOrderGet(t *testing.T) {
	deps := defaultDeps()
	orders := &stubOrderService{order: &domain.Order{
		ID:          5,
		OrderNumber: "ORD-ABCDEF1234",
		TotalAmount: decimal.RequireFromString("25.00"),
		Items:       []domain.OrderItem{{ProductID: 1, Quantity: 2, ProductName: "Dog Food", ProductPrice: decimal.RequireFromString("10.00")}},
	}}
	deps.OrderSvc = orders
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"orderNumber":"ORD-ABCDEF1234"`) || !strings.Contains(rec.Body.String(), `"productName":"Dog Food"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if orders.lastViewer != nil {
		t.Fatalf("anonymous lookup should have no viewer")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/orders/5", nil)))
	if rec.Code != http.StatusOK || orders.lastViewer == nil || *orders.lastViewer != 7 {
		t.Fatalf("expected viewer 7, code=%d", rec.Code)
	}
}

func TestOrderGet_BadIDAndMissing(t *testing.T) {
	deps := defaultDeps()
	deps.OrderSvc = &stubOrderService{err: domain.ErrNotFound}
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/42", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestOrderList(t *testing.T) {
	deps := defaultDeps()
	deps.OrderSvc = &stubOrderService{orders: []domain.Order{{ID: 2}, {ID: 1}}}
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/orders", nil)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":2`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
