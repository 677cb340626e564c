package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"petshop/internal/domain"
	"petshop/internal/payment"
)

// ErrMissingPaymentMethod is returned when confirmation has no card token.
var ErrMissingPaymentMethod = errors.New("paymentMethod required")

type orderRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status, paymentStatus string) error
}

type Service struct {
	repo      orderRepo
	processor payment.Processor
	logger    *log.Logger
}

func New(repo orderRepo, processor payment.Processor, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, processor: processor, logger: logger}
}

// Get returns an order with its items. When viewerID is set, orders owned by
// someone else are reported as not found.
func (s *Service) Get(ctx context.Context, id int64, viewerID *int64) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewerID != nil && o.UserID != *viewerID {
		s.logger.Printf("order service: get id=%d viewer=%d not owner", id, *viewerID)
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

type ConfirmInput struct {
	OrderID       int64  `json:"orderId"`
	PaymentMethod string `json:"paymentMethod"`
	BillingName   string `json:"billingName"`
	BillingEmail  string `json:"billingEmail"`
	Country       string `json:"country,omitempty"`
	ViewerID      *int64 `json:"-"`
}

type ConfirmResult struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
}

// Confirm confirms the order's payment intent. A succeeded intent marks the
// order PAID; a decline records a FAILED payment and leaves the order PENDING.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return nil, ErrMissingPaymentMethod
	}
	o, err := s.Get(ctx, in.OrderID, in.ViewerID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == domain.PaymentStatusPaid {
		return &ConfirmResult{OrderID: o.ID, Status: payment.StatusSucceeded}, nil
	}
	if o.Status == domain.OrderStatusCancelled {
		return nil, fmt.Errorf("order %d is cancelled", o.ID)
	}

	intent, err := s.processor.ConfirmIntent(ctx, o.PaymentIntentID, payment.ConfirmInput{
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		BillingName:   strings.TrimSpace(in.BillingName),
		ReceiptEmail:  strings.TrimSpace(in.BillingEmail),
		Phone:         o.ShippingPhone,
		Shipping: &payment.Address{
			Line1:      o.ShippingAddress,
			City:       o.ShippingCity,
			State:      o.ShippingState,
			PostalCode: o.ShippingZipCode,
			Country:    strings.TrimSpace(in.Country),
		},
	})
	if err != nil {
		var declined *payment.DeclinedError
		if errors.As(err, &declined) {
			if uerr := s.repo.UpdateStatus(ctx, o.ID, o.Status, domain.PaymentStatusFailed); uerr != nil {
				s.logger.Printf("order service: record failure id=%d error=%v", o.ID, uerr)
			}
		}
		s.logger.Printf("order service: confirm id=%d intent=%s error=%v", o.ID, o.PaymentIntentID, err)
		return nil, err
	}

	if intent.Status == payment.StatusSucceeded {
		if err := s.repo.UpdateStatus(ctx, o.ID, domain.OrderStatusPaid, domain.PaymentStatusPaid); err != nil {
			return nil, err
		}
		s.logger.Printf("order service: paid id=%d intent=%s", o.ID, intent.ID)
	}
	return &ConfirmResult{OrderID: o.ID, Status: intent.Status}, nil
}

// HandleWebhook applies a verified processor event. Unknown event types and
// intents without an order are acknowledged without changes.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	var status, paymentStatus string
	switch event.Type {
	case payment.EventIntentSucceeded:
		status, paymentStatus = domain.OrderStatusPaid, domain.PaymentStatusPaid
	case payment.EventIntentFailed:
		paymentStatus = domain.PaymentStatusFailed
	default:
		s.logger.Printf("order service: webhook event=%s type=%s ignored", event.ID, event.Type)
		return nil
	}

	o, err := s.repo.GetByPaymentIntentID(ctx, event.IntentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("order service: webhook event=%s intent=%s no order", event.ID, event.IntentID)
			return nil
		}
		return err
	}
	if o.PaymentStatus == domain.PaymentStatusPaid {
		return nil
	}
	if status == "" {
		status = o.Status
	}
	if err := s.repo.UpdateStatus(ctx, o.ID, status, paymentStatus); err != nil {
		return err
	}
	s.logger.Printf("order service: webhook event=%s order_id=%d status=%s payment_status=%s reason=%q", event.ID, o.ID, status, paymentStatus, event.FailureMessage)
	return nil
}
