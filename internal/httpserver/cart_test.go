package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"petshop/internal/domain"
	cartsvc "petshop/internal/service/cart"
)

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCartGet(t *testing.T) {
	deps := defaultDeps()
	carts := &stubCartService{view: &domain.CartView{
		Items:   []domain.CartLine{{ID: 1, ProductID: 3, Quantity: 2, UnitPrice: decimal.RequireFromString("4.50"), LineTotal: decimal.RequireFromString("9.00")}},
		Summary: domain.CartSummary{Subtotal: decimal.RequireFromString("9.00"), Total: decimal.RequireFromString("9.00"), ItemCount: 2},
	}}
	deps.CartSvc = carts
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/cart", nil)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if carts.lastUser != 7 {
		t.Fatalf("expected user 7, got %d", carts.lastUser)
	}
	if !strings.Contains(rec.Body.String(), `"itemCount":2`) || !strings.Contains(rec.Body.String(), `"subtotal":9`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCartAddDefaultsQuantity(t *testing.T) {
	deps := defaultDeps()
	carts := deps.CartSvc.(*stubCartService)
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(`{"productId":3,"size":"M"}`))))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(carts.lastItems) != 1 || carts.lastItems[0].Quantity != 1 || carts.lastItems[0].Size != "M" {
		t.Fatalf("unexpected items %+v", carts.lastItems)
	}
}

func TestCartAddUnavailableProduct(t *testing.T) {
	deps := defaultDeps()
	deps.CartSvc = &stubCartService{err: cartsvc.ErrProductUnavailable}
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(`{"productId":99,"quantity":1}`))))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCartMergeAndQuote(t *testing.T) {
	deps := defaultDeps()
	carts := deps.CartSvc.(*stubCartService)
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/cart/merge", strings.NewReader(`{"items":[{"productId":1,"quantity":2},{"productId":2,"quantity":1,"color":"red"}]}`))))
	if rec.Code != http.StatusOK || len(carts.lastItems) != 2 {
		t.Fatalf("merge: code=%d items=%+v", rec.Code, carts.lastItems)
	}

	req := httptest.NewRequest(http.MethodPost, "/cart/quote", strings.NewReader(`{"items":[{"productId":5,"quantity":1}]}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || len(carts.lastItems) != 1 || carts.lastItems[0].ProductID != 5 {
		t.Fatalf("quote without token: code=%d items=%+v", rec.Code, carts.lastItems)
	}
}

func TestCartLineRoutes(t *testing.T) {
	deps := defaultDeps()
	deps.CartSvc = &stubCartService{err: domain.ErrNotFound}
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPatch, "/cart/items/abc", strings.NewReader(`{"quantity":1}`))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad line id, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPatch, "/cart/items/4", strings.NewReader(`{}`))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without quantity, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodDelete, "/cart/items/4", nil)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown line, got %d", rec.Code)
	}
}

func TestCartClear(t *testing.T) {
	deps := defaultDeps()
	carts := deps.CartSvc.(*stubCartService)
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodDelete, "/cart", nil)))
	if rec.Code != http.StatusNoContent || !carts.cleared {
		t.Fatalf("expected cleared cart, code=%d", rec.Code)
	}
}

func TestCatalogRoutes(t *testing.T) {
	deps := defaultDeps()
	deps.ProductSvc = &stubProductService{products: []domain.Product{{ID: 1, Name: "Kibble", Price: decimal.RequireFromString("12.99"), Active: true}}}
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?categoryId=2", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"price":12.99`) {
		t.Fatalf("list: code=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?categoryId=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad category, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/2", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("categories: code=%d body=%s", rec.Code, rec.Body.String())
	}
}
