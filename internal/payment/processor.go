// Package payment wraps the card payment processor behind a small interface.
package payment

import (
	"context"
	"errors"
)

const (
	StatusSucceeded             = "succeeded"
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresAction        = "requires_action"
	StatusCanceled              = "canceled"

	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"

	MetadataUserID      = "user_id"
	MetadataOrderNumber = "order_number"
)

var (
	ErrIntentNotFound   = errors.New("payment intent not found")
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrIdempotencyMismatch is returned when an idempotency key is reused
	// with different intent parameters.
	ErrIdempotencyMismatch = errors.New("idempotency key reused with different parameters")
)

// DeclinedError reports a payment the processor refused, such as a card decline.
type DeclinedError struct {
	Code    string
	Message string
}

func (e *DeclinedError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// Intent is the processor-side record of a pending charge.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

type CreateIntentInput struct {
	// Amount in minor units.
	Amount         int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

type Address struct {
	Line1      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type ConfirmInput struct {
	PaymentMethod string
	BillingName   string
	ReceiptEmail  string
	Phone         string
	Shipping      *Address
}

// Event is a verified webhook notification about an intent.
type Event struct {
	ID             string
	Type           string
	IntentID       string
	FailureMessage string
}

// Processor creates, confirms and cancels payment intents.
type Processor interface {
	CreateIntent(ctx context.Context, in CreateIntentInput) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	ConfirmIntent(ctx context.Context, id string, in ConfirmInput) (*Intent, error)
	CancelIntent(ctx context.Context, id string) error
	ParseWebhook(payload []byte, signatureHeader string) (*Event, error)
}
