package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"
)

// StripeConfig configures the Stripe processor. BaseURL overrides the API
// endpoint and is only set in tests.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	HTTPClient    *http.Client
}

const idempotentReplayedHeader = "Idempotent-Replayed"

type StripeProcessor struct {
	intents       paymentintent.Client
	webhookSecret string
}

func NewStripe(cfg StripeConfig) (*StripeProcessor, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key required")
	}
	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}
	if cfg.HTTPClient != nil {
		backendCfg.HTTPClient = cfg.HTTPClient
	}
	return &StripeProcessor{
		intents: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
	}, nil
}

func (s *StripeProcessor) CreateIntent(ctx context.Context, in CreateIntentInput) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(strings.ToLower(in.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	pi, err := s.intents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	// A replayed response is the original one; fetch the intent's current state.
	if pi.LastResponse != nil && pi.LastResponse.Header.Get(idempotentReplayedHeader) == "true" {
		return s.RetrieveIntent(ctx, pi.ID)
	}
	return intentFromStripe(pi), nil
}

func (s *StripeProcessor) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.intents.Get(id, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return intentFromStripe(pi), nil
}

func (s *StripeProcessor) ConfirmIntent(ctx context.Context, id string, in ConfirmInput) (*Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(in.PaymentMethod),
	}
	params.Context = ctx
	if in.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(in.ReceiptEmail)
	}
	if in.Shipping != nil && strings.TrimSpace(in.BillingName) != "" {
		params.Shipping = &stripe.ShippingDetailsParams{
			Name: stripe.String(in.BillingName),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(in.Shipping.Line1),
				City:       stripe.String(in.Shipping.City),
				State:      stripe.String(in.Shipping.State),
				PostalCode: stripe.String(in.Shipping.PostalCode),
			},
		}
		if in.Shipping.Country != "" {
			params.Shipping.Address.Country = stripe.String(in.Shipping.Country)
		}
		if in.Phone != "" {
			params.Shipping.Phone = stripe.String(in.Phone)
		}
	}

	pi, err := s.intents.Confirm(id, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return intentFromStripe(pi), nil
}

func (s *StripeProcessor) CancelIntent(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	_, err := s.intents.Cancel(id, params)
	return mapStripeError(err)
}

func (s *StripeProcessor) ParseWebhook(payload []byte, signatureHeader string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "payment_intent.") || event.Data == nil {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent event: %w", err)
	}
	out.IntentID = pi.ID
	if pi.LastPaymentError != nil {
		out.FailureMessage = pi.LastPaymentError.Msg
	}
	return out, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func mapStripeError(err error) error {
	if err == nil {
		return nil
	}
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return err
	}
	switch {
	case serr.Type == stripe.ErrorTypeCard:
		return &DeclinedError{Code: string(serr.Code), Message: serr.Msg}
	case serr.Type == stripe.ErrorTypeIdempotency:
		return fmt.Errorf("%w: %s", ErrIdempotencyMismatch, serr.Msg)
	case serr.HTTPStatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrIntentNotFound, serr.Msg)
	default:
		return fmt.Errorf("stripe: %s", serr.Msg)
	}
}
