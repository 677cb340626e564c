package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"petshop/internal/domain"
	"petshop/internal/payment"
	"petshop/internal/service/pricing"
)

const maxIdempotencyKeyLen = 200

var orderNumberSpace = uuid.MustParse("6f1c2a4e-3b7d-4c55-9a1e-2d8f0b6c7e91")

type orderRepo interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
}

type productRepo interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}

type Service struct {
	orders          orderRepo
	products        productRepo
	processor       payment.Processor
	policy          pricing.Policy
	defaultCurrency string
	logger          *log.Logger
	newOrderNumber  func() string
}

func New(orders orderRepo, products productRepo, processor payment.Processor, policy pricing.Policy, defaultCurrency string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	return &Service{
		orders:          orders,
		products:        products,
		processor:       processor,
		policy:          policy,
		defaultCurrency: strings.ToLower(defaultCurrency),
		logger:          logger,
		newOrderNumber:  newOrderNumber,
	}
}

// LineItem is one submitted cart line. Price and Name are informational; the
// order is priced from the catalog.
type LineItem struct {
	ProductID int64           `json:"productId" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name,omitempty"`
}

type Request struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	UserID          int64           `json:"userId"`
	CartItems       []LineItem      `json:"cartItems" binding:"dive"`
	ShippingAddress string          `json:"shippingAddress"`
	ShippingCity    string          `json:"shippingCity"`
	ShippingState   string          `json:"shippingState"`
	ShippingZipCode string          `json:"shippingZipCode"`
	ShippingPhone   string          `json:"shippingPhone"`
	PaymentMethod   string          `json:"paymentMethod"`
	IdempotencyKey  string          `json:"-"`
}

type Result struct {
	ClientSecret string `json:"clientSecret"`
	OrderID      int64  `json:"orderId"`
	OrderNumber  string `json:"orderNumber"`
	Replayed     bool   `json:"-"`
}

// CreatePaymentIntent validates and prices the request, creates a payment
// intent and persists a PENDING order with its items. If the order cannot be
// stored the intent is cancelled.
func (s *Service) CreatePaymentIntent(ctx context.Context, req Request) (*Result, error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if err := validate(req); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		res, err := s.replay(ctx, req)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	items, err := s.priceItems(ctx, req.CartItems)
	if err != nil {
		return nil, err
	}
	total := s.policy.OrderTotal(items)
	if !req.Amount.Round(2).Equal(total) {
		s.logger.Printf("checkout: amount mismatch user_id=%d submitted=%s expected=%s", req.UserID, req.Amount, total)
		return nil, fmt.Errorf("%w: submitted %s, expected %s", ErrAmountMismatch, req.Amount.StringFixed(2), total.StringFixed(2))
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	paymentMethod := strings.ToUpper(strings.TrimSpace(req.PaymentMethod))
	if paymentMethod == "" {
		paymentMethod = domain.PaymentMethodCard
	}
	// Retries of a key reuse its order number and processor key.
	orderNumber := s.newOrderNumber()
	processorKey := ""
	if req.IdempotencyKey != "" {
		orderNumber = keyedOrderNumber(req.UserID, req.IdempotencyKey)
		processorKey = "checkout-" + strconv.FormatInt(req.UserID, 10) + "-" + req.IdempotencyKey
	}

	intent, err := s.processor.CreateIntent(ctx, payment.CreateIntentInput{
		Amount:   domain.ToMinorUnits(total),
		Currency: currency,
		Metadata: map[string]string{
			payment.MetadataUserID:      strconv.FormatInt(req.UserID, 10),
			payment.MetadataOrderNumber: orderNumber,
		},
		IdempotencyKey: processorKey,
	})
	if err != nil {
		s.logger.Printf("checkout: create intent user_id=%d order_number=%s error=%v", req.UserID, orderNumber, err)
		if errors.Is(err, payment.ErrIdempotencyMismatch) {
			return nil, fmt.Errorf("%w: cart changed since the key was first used", ErrIdempotencyConflict)
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if intent.Status == payment.StatusCanceled {
		s.logger.Printf("checkout: key reuses cancelled intent=%s user_id=%d", intent.ID, req.UserID)
		return nil, fmt.Errorf("%w: its payment was cancelled", ErrIdempotencyConflict)
	}

	order, err := s.orders.Create(ctx, domain.Order{
		OrderNumber:     orderNumber,
		UserID:          req.UserID,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		TotalAmount:     total,
		Currency:        currency,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		ShippingCity:    strings.TrimSpace(req.ShippingCity),
		ShippingState:   strings.TrimSpace(req.ShippingState),
		ShippingZipCode: strings.TrimSpace(req.ShippingZipCode),
		ShippingPhone:   strings.TrimSpace(req.ShippingPhone),
		PaymentMethod:   paymentMethod,
		PaymentIntentID: intent.ID,
		IdempotencyKey:  req.IdempotencyKey,
		Items:           items,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) && req.IdempotencyKey != "" {
			if existing, lerr := s.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey); lerr == nil {
				// Another request with this key stored its order first.
				if existing.PaymentIntentID != intent.ID {
					s.compensate(ctx, intent.ID, orderNumber)
				}
				return s.replayOrder(ctx, req, existing)
			}
		}
		s.compensate(ctx, intent.ID, orderNumber)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.logger.Printf("checkout: created order_id=%d order_number=%s user_id=%d total=%s intent=%s", order.ID, order.OrderNumber, order.UserID, total.StringFixed(2), intent.ID)
	return &Result{ClientSecret: intent.ClientSecret, OrderID: order.ID, OrderNumber: order.OrderNumber}, nil
}

func (s *Service) replay(ctx context.Context, req Request) (*Result, error) {
	existing, err := s.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return s.replayOrder(ctx, req, existing)
}

func (s *Service) replayOrder(ctx context.Context, req Request, existing *domain.Order) (*Result, error) {
	if existing.UserID != req.UserID {
		return nil, ErrIdempotencyConflict
	}
	intent, err := s.processor.RetrieveIntent(ctx, existing.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	s.logger.Printf("checkout: replay order_id=%d idempotency_key=%s", existing.ID, req.IdempotencyKey)
	return &Result{ClientSecret: intent.ClientSecret, OrderID: existing.ID, OrderNumber: existing.OrderNumber, Replayed: true}, nil
}

// priceItems checks every product against the catalog and snapshots its
// current name and price. Unknown or inactive ids are reported together.
func (s *Service) priceItems(ctx context.Context, lines []LineItem) ([]domain.OrderItem, error) {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	var missing []int64
	for _, id := range ids {
		if p, ok := products[id]; !ok || !p.Active {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		s.logger.Printf("checkout: invalid products ids=%v", missing)
		return nil, &InvalidProductsError{IDs: missing}
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		p := products[line.ProductID]
		items = append(items, domain.OrderItem{
			ProductID:    p.ID,
			Quantity:     line.Quantity,
			ProductName:  p.Name,
			ProductPrice: p.Price,
		})
	}
	return items, nil
}

func (s *Service) compensate(ctx context.Context, intentID, orderNumber string) {
	if err := s.processor.CancelIntent(context.WithoutCancel(ctx), intentID); err != nil {
		s.logger.Printf("checkout: cancel intent=%s order_number=%s error=%v", intentID, orderNumber, err)
		return
	}
	s.logger.Printf("checkout: cancelled intent=%s order_number=%s", intentID, orderNumber)
}

func validate(req Request) error {
	if req.UserID <= 0 {
		return invalid("userId required")
	}
	if len(req.CartItems) == 0 {
		return invalid("cartItems required")
	}
	for _, item := range req.CartItems {
		if item.ProductID <= 0 {
			return invalid("cartItems.productId required")
		}
		if item.Quantity <= 0 {
			return invalid(fmt.Sprintf("quantity must be positive for product %d", item.ProductID))
		}
	}
	if len(req.IdempotencyKey) > maxIdempotencyKeyLen {
		return invalid(fmt.Sprintf("idempotency key longer than %d characters", maxIdempotencyKeyLen))
	}
	if !req.Amount.IsPositive() {
		return invalid("amount must be positive")
	}
	required := []struct{ name, value string }{
		{"shippingAddress", req.ShippingAddress},
		{"shippingCity", req.ShippingCity},
		{"shippingState", req.ShippingState},
		{"shippingZipCode", req.ShippingZipCode},
		{"shippingPhone", req.ShippingPhone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return invalid(f.name + " required")
		}
	}
	return nil
}

func newOrderNumber() string {
	return formatOrderNumber(uuid.New())
}

// keyedOrderNumber is stable for a user and idempotency key.
func keyedOrderNumber(userID int64, key string) string {
	return formatOrderNumber(uuid.NewSHA1(orderNumberSpace, []byte(strconv.FormatInt(userID, 10)+":"+key)))
}

func formatOrderNumber(id uuid.UUID) string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
}
