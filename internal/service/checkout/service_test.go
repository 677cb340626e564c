package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"petshop/internal/domain"
	"petshop/internal/payment"
	"petshop/internal/service/pricing"
)

type stubOrderRepo struct {
	orders    []domain.Order
	createErr error
	created   int
}

func (r *stubOrderRepo) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.created++
	o.ID = int64(len(r.orders) + 1)
	for i := range o.Items {
		o.Items[i].ID = int64(i + 1)
		o.Items[i].OrderID = o.ID
	}
	r.orders = append(r.orders, o)
	return &o, nil
}

func (r *stubOrderRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	for _, o := range r.orders {
		if o.IdempotencyKey == key {
			clone := o
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubProductRepo struct {
	products map[int64]domain.Product
	err      error
}

func (r *stubProductRepo) GetByIDs(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := map[int64]domain.Product{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type recordingProcessor struct {
	*payment.MockProcessor
	creates   []payment.CreateIntentInput
	createErr error
}

func (p *recordingProcessor) CreateIntent(ctx context.Context, in payment.CreateIntentInput) (*payment.Intent, error) {
	p.creates = append(p.creates, in)
	if p.createErr != nil {
		return nil, p.createErr
	}
	return p.MockProcessor.CreateIntent(ctx, in)
}

func catalog() *stubProductRepo {
	return &stubProductRepo{products: map[int64]domain.Product{
		1: {ID: 1, Name: "Dog Food 5kg", Price: decimal.RequireFromString("10.00"), Active: true},
		2: {ID: 2, Name: "Chew Toy", Price: decimal.RequireFromString("5.00"), Active: true},
		3: {ID: 3, Name: "Discontinued Bowl", Price: decimal.RequireFromString("8.00"), Active: false},
	}}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validRequest() Request {
	return Request{
		Amount: d("25.00"),
		UserID: 7,
		CartItems: []LineItem{
			{ProductID: 1, Quantity: 2, Price: d("10.00")},
			{ProductID: 2, Quantity: 1, Price: d("5.00")},
		},
		ShippingAddress: "1 Bark St",
		ShippingCity:    "Springfield",
		ShippingState:   "IL",
		ShippingZipCode: "62701",
		ShippingPhone:   "555-0100",
	}
}

func newService(orders *stubOrderRepo, products *stubProductRepo, proc *recordingProcessor) *Service {
	svc := New(orders, products, proc, pricing.Policy{}, "usd", nil)
	svc.newOrderNumber = func() string { return "ORD-TEST" }
	return svc
}

func TestCreatePaymentIntentPersistsOrder(t *testing.T) {
	orders := &stubOrderRepo{}
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := newService(orders, catalog(), proc)

	res, err := svc.CreatePaymentIntent(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != 1 || res.ClientSecret == "" || res.OrderNumber != "ORD-TEST" {
		t.Fatalf("unexpected result %+v", res)
	}

	if len(proc.creates) != 1 {
		t.Fatalf("expected one intent, got %d", len(proc.creates))
	}
	in := proc.creates[0]
	if in.Amount != 2500 || in.Currency != "usd" {
		t.Fatalf("unexpected intent input %+v", in)
	}
	if in.Metadata[payment.MetadataUserID] != "7" || in.Metadata[payment.MetadataOrderNumber] != "ORD-TEST" {
		t.Fatalf("unexpected metadata %v", in.Metadata)
	}

	order := orders.orders[0]
	if !order.TotalAmount.Equal(d("25.00")) {
		t.Fatalf("expected total 25.00, got %s", order.TotalAmount)
	}
	if order.Status != domain.OrderStatusPending || order.PaymentStatus != domain.PaymentStatusPending || order.PaymentMethod != domain.PaymentMethodCard {
		t.Fatalf("unexpected statuses %+v", order)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	if order.Items[0].Quantity != 2 || !order.Items[0].ProductPrice.Equal(d("10.00")) || order.Items[0].ProductName != "Dog Food 5kg" {
		t.Fatalf("unexpected first item %+v", order.Items[0])
	}
	if order.Items[1].Quantity != 1 || !order.Items[1].ProductPrice.Equal(d("5.00")) {
		t.Fatalf("unexpected second item %+v", order.Items[1])
	}
	if order.PaymentIntentID == "" {
		t.Fatalf("expected intent id on order")
	}
}

func TestCreatePaymentIntentRejectsUnknownProducts(t *testing.T) {
	orders := &stubOrderRepo{}
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := newService(orders, catalog(), proc)

	req := validRequest()
	req.CartItems = append(req.CartItems, LineItem{ProductID: 99, Quantity: 1}, LineItem{ProductID: 3, Quantity: 1})

	_, err := svc.CreatePaymentIntent(context.Background(), req)
	var invalidErr *InvalidProductsError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidProductsError, got %v", err)
	}
	if len(invalidErr.IDs) != 2 || invalidErr.IDs[0] != 99 || invalidErr.IDs[1] != 3 {
		t.Fatalf("unexpected ids %v", invalidErr.IDs)
	}
	if err.Error() != "Productos no válidos o inexistentes: 99, 3" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if orders.created != 0 || len(proc.creates) != 0 {
		t.Fatalf("expected nothing created, orders=%d intents=%d", orders.created, len(proc.creates))
	}
}

func TestCreatePaymentIntentRepricesFromCatalog(t *testing.T) {
	orders := &stubOrderRepo{}
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := newService(orders, catalog(), proc)

	req := validRequest()
	req.CartItems[0].Price = d("0.01")
	req.CartItems[0].Name = "Tampered"
	req.Amount = d("5.02")

	_, err := svc.CreatePaymentIntent(context.Background(), req)
	if !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
	if len(proc.creates) != 0 || orders.created != 0 {
		t.Fatalf("expected nothing created")
	}

	req.Amount = d("25")
	if _, err := svc.CreatePaymentIntent(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item := orders.orders[0].Items[0]; !item.ProductPrice.Equal(d("10.00")) || item.ProductName != "Dog Food 5kg" {
		t.Fatalf("expected catalog snapshot, got %+v", item)
	}
}

func TestCreatePaymentIntentAddsShipping(t *testing.T) {
	orders := &stubOrderRepo{}
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := New(orders, catalog(), proc, pricing.Policy{ShippingFee: d("4.99")}, "usd", nil)

	req := validRequest()
	req.Amount = d("29.99")
	if _, err := svc.CreatePaymentIntent(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.creates[0].Amount != 2999 {
		t.Fatalf("expected 2999 minor units, got %d", proc.creates[0].Amount)
	}
}

func TestCreatePaymentIntentValidation(t *testing.T) {
	svc := newService(&stubOrderRepo{}, catalog(), &recordingProcessor{MockProcessor: payment.NewMock()})

	cases := map[string]func(r *Request){
		"userId required":   func(r *Request) { r.UserID = 0 },
		"cartItems":         func(r *Request) { r.CartItems = nil },
		"quantity":          func(r *Request) { r.CartItems[0].Quantity = 0 },
		"amount":            func(r *Request) { r.Amount = decimal.Zero },
		"shippingCity":      func(r *Request) { r.ShippingCity = "  " },
		"shippingPhone":     func(r *Request) { r.ShippingPhone = "" },
		"cartItems.product": func(r *Request) { r.CartItems[1].ProductID = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			_, err := svc.CreatePaymentIntent(context.Background(), req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreatePaymentIntentProcessorFailure(t *testing.T) {
	orders := &stubOrderRepo{}
	proc := &recordingProcessor{MockProcessor: payment.NewMock(), createErr: errors.New("api down")}
	svc := newService(orders, catalog(), proc)

	_, err := svc.CreatePaymentIntent(context.Background(), validRequest())
	if err == nil || !strings.Contains(err.Error(), "api down") {
		t.Fatalf("expected processor error, got %v", err)
	}
	if orders.created != 0 {
		t.Fatalf("expected no order")
	}
}

func TestCreatePaymentIntentCancelsIntentWhenPersistFails(t *testing.T) {
	orders := &stubOrderRepo{createErr: errors.New("db down")}
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := newService(orders, catalog(), proc)

	_, err := svc.CreatePaymentIntent(context.Background(), validRequest())
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if cancelled := proc.Cancelled(); len(cancelled) != 1 {
		t.Fatalf("expected intent cancelled, got %v", cancelled)
	}
}

func TestCreatePaymentIntentIdempotentReplay(t *testing.T) {
	orders := &stubOrderRepo{}
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := newService(orders, catalog(), proc)

	req := validRequest()
	req.IdempotencyKey = "checkout-1"

	first, err := svc.CreatePaymentIntent(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.CreatePaymentIntent(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if !second.Replayed || second.OrderID != first.OrderID || second.ClientSecret != first.ClientSecret {
		t.Fatalf("expected replay of %+v, got %+v", first, second)
	}
	if orders.created != 1 || len(proc.creates) != 1 {
		t.Fatalf("expected a single order and intent, got orders=%d intents=%d", orders.created, len(proc.creates))
	}

	other := req
	other.UserID = 8
	if _, err := svc.CreatePaymentIntent(context.Background(), other); !errors.Is(err, ErrIdempotencyConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreatePaymentIntentUsesRequestCurrency(t *testing.T) {
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := newService(&stubOrderRepo{}, catalog(), proc)

	req := validRequest()
	req.Currency = "EUR"
	req.PaymentMethod = "card"
	if _, err := svc.CreatePaymentIntent(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.creates[0].Currency != "eur" {
		t.Fatalf("expected eur, got %q", proc.creates[0].Currency)
	}
}

func TestNewOrderNumberFormat(t *testing.T) {
	a, b := newOrderNumber(), newOrderNumber()
	if !strings.HasPrefix(a, "ORD-") || len(a) != 14 {
		t.Fatalf("unexpected order number %q", a)
	}
	if a == b {
		t.Fatalf("expected distinct order numbers")
	}
}

// racingOrderRepo loses every insert to an order stored by a concurrent
// request with the same key.
type racingOrderRepo struct {
	winner   *domain.Order
	inserted bool
}

func (r *racingOrderRepo) Create(_ context.Context, _ domain.Order) (*domain.Order, error) {
	r.inserted = true
	return nil, domain.ErrAlreadyExists
}

func (r *racingOrderRepo) GetByIdempotencyKey(_ context.Context, _ string) (*domain.Order, error) {
	if !r.inserted || r.winner == nil {
		return nil, domain.ErrNotFound
	}
	clone := *r.winner
	return &clone, nil
}

func TestKeyedOrderNumberIsStable(t *testing.T) {
	a := keyedOrderNumber(7, "checkout-1")
	if a != keyedOrderNumber(7, "checkout-1") {
		t.Fatalf("expected the same order number for the same key")
	}
	if a == keyedOrderNumber(8, "checkout-1") || a == keyedOrderNumber(7, "checkout-2") {
		t.Fatalf("expected different order numbers for other users and keys")
	}
	if !strings.HasPrefix(a, "ORD-") || len(a) != 14 {
		t.Fatalf("unexpected order number %q", a)
	}
}

func TestCreatePaymentIntentKeyedRequestSendsStableParameters(t *testing.T) {
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := newService(&stubOrderRepo{}, catalog(), proc)

	req := validRequest()
	req.IdempotencyKey = "checkout-1"
	res, err := svc.CreatePaymentIntent(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := keyedOrderNumber(7, "checkout-1")
	if res.OrderNumber != want || proc.creates[0].Metadata[payment.MetadataOrderNumber] != want {
		t.Fatalf("expected order number %s, got %+v %v", want, res, proc.creates[0].Metadata)
	}
	if proc.creates[0].IdempotencyKey != "checkout-7-checkout-1" {
		t.Fatalf("expected user scoped processor key, got %q", proc.creates[0].IdempotencyKey)
	}
}

func TestCreatePaymentIntentConcurrentSameKeyReplays(t *testing.T) {
	mock := payment.NewMock()
	orderNumber := keyedOrderNumber(7, "k1")
	shared, err := mock.CreateIntent(context.Background(), payment.CreateIntentInput{
		Amount:   2500,
		Currency: "usd",
		Metadata: map[string]string{
			payment.MetadataUserID:      "7",
			payment.MetadataOrderNumber: orderNumber,
		},
		IdempotencyKey: "checkout-7-k1",
	})
	if err != nil {
		t.Fatalf("create shared intent: %v", err)
	}
	orders := &racingOrderRepo{winner: &domain.Order{ID: 41, UserID: 7, OrderNumber: orderNumber, PaymentIntentID: shared.ID, IdempotencyKey: "k1"}}
	proc := &recordingProcessor{MockProcessor: mock}
	svc := newService(&stubOrderRepo{}, catalog(), proc)
	svc.orders = orders

	req := validRequest()
	req.IdempotencyKey = "k1"
	res, err := svc.CreatePaymentIntent(context.Background(), req)
	if err != nil {
		t.Fatalf("expected replay, got %v", err)
	}
	if !res.Replayed || res.OrderID != 41 || res.ClientSecret != shared.ClientSecret {
		t.Fatalf("unexpected result %+v", res)
	}
	if mock.Created() != 1 || len(mock.Cancelled()) != 0 {
		t.Fatalf("expected the shared intent kept, created=%d cancelled=%v", mock.Created(), mock.Cancelled())
	}
}

func TestCreatePaymentIntentConcurrentKeyOfOtherUser(t *testing.T) {
	orders := &racingOrderRepo{winner: &domain.Order{ID: 41, UserID: 8, PaymentIntentID: "pi_other", IdempotencyKey: "k1"}}
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := newService(&stubOrderRepo{}, catalog(), proc)
	svc.orders = orders

	req := validRequest()
	req.IdempotencyKey = "k1"
	if _, err := svc.CreatePaymentIntent(context.Background(), req); !errors.Is(err, ErrIdempotencyConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if cancelled := proc.Cancelled(); len(cancelled) != 1 {
		t.Fatalf("expected own intent cancelled, got %v", cancelled)
	}
}

func TestCreatePaymentIntentOrderNumberCollisionCancelsIntent(t *testing.T) {
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := newService(&stubOrderRepo{}, catalog(), proc)
	svc.orders = &racingOrderRepo{}

	req := validRequest()
	req.IdempotencyKey = "k1"
	_, err := svc.CreatePaymentIntent(context.Background(), req)
	if !errors.Is(err, domain.ErrAlreadyExists) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected persistence conflict, got %v", err)
	}
	if cancelled := proc.Cancelled(); len(cancelled) != 1 {
		t.Fatalf("expected intent cancelled, got %v", cancelled)
	}
}

func TestCreatePaymentIntentRetryAfterCancelledAttempt(t *testing.T) {
	orders := &stubOrderRepo{createErr: errors.New("db down")}
	proc := &recordingProcessor{MockProcessor: payment.NewMock()}
	svc := newService(orders, catalog(), proc)

	req := validRequest()
	req.IdempotencyKey = "k2"
	if _, err := svc.CreatePaymentIntent(context.Background(), req); err == nil {
		t.Fatalf("expected persistence error")
	}
	orders.createErr = nil

	_, err := svc.CreatePaymentIntent(context.Background(), req)
	if !errors.Is(err, ErrIdempotencyConflict) || !strings.Contains(err.Error(), "cancelled") {
		t.Fatalf("expected cancelled key conflict, got %v", err)
	}

	changed := req
	changed.CartItems = []LineItem{{ProductID: 2, Quantity: 1}}
	changed.Amount = d("5.00")
	_, err = svc.CreatePaymentIntent(context.Background(), changed)
	if !errors.Is(err, ErrIdempotencyConflict) || !strings.Contains(err.Error(), "cart changed") {
		t.Fatalf("expected parameter mismatch conflict, got %v", err)
	}
	if orders.created != 0 {
		t.Fatalf("expected no order, got %d", orders.created)
	}
}

func TestCreatePaymentIntentRejectsLongKey(t *testing.T) {
	svc := newService(&stubOrderRepo{}, catalog(), &recordingProcessor{MockProcessor: payment.NewMock()})

	req := validRequest()
	req.IdempotencyKey = strings.Repeat("k", maxIdempotencyKeyLen+1)
	var vErr *ValidationError
	if _, err := svc.CreatePaymentIntent(context.Background(), req); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
