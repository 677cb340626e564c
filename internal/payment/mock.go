package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DeclineToken is a payment method the mock processor always declines.
const DeclineToken = "pm_card_chargeDeclined"

// MockProcessor keeps intents in memory. It is used for local development and
// tests when no processor account is configured.
type MockProcessor struct {
	mu        sync.Mutex
	intents   map[string]*Intent
	byKey     map[string]string
	keyParams map[string]string
	cancelled []string
	created   int
}

func NewMock() *MockProcessor {
	return &MockProcessor{
		intents:   make(map[string]*Intent),
		byKey:     make(map[string]string),
		keyParams: make(map[string]string),
	}
}

func (m *MockProcessor) CreateIntent(ctx context.Context, in CreateIntentInput) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	params := intentParams(in)
	if id, ok := m.byKey[in.IdempotencyKey]; ok && in.IdempotencyKey != "" {
		if m.keyParams[in.IdempotencyKey] != params {
			return nil, ErrIdempotencyMismatch
		}
		return cloneIntent(m.intents[id]), nil
	}
	id := "pi_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.NewString()[:8],
		Status:       StatusRequiresPaymentMethod,
		Amount:       in.Amount,
		Currency:     strings.ToLower(in.Currency),
		Metadata:     maps.Clone(in.Metadata),
	}
	m.intents[id] = intent
	if in.IdempotencyKey != "" {
		m.byKey[in.IdempotencyKey] = id
		m.keyParams[in.IdempotencyKey] = params
	}
	m.created++
	return cloneIntent(intent), nil
}

func (m *MockProcessor) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	return cloneIntent(intent), nil
}

func (m *MockProcessor) ConfirmIntent(ctx context.Context, id string, in ConfirmInput) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	if intent.Status == StatusCanceled {
		return nil, fmt.Errorf("payment intent %s is canceled", id)
	}
	if in.PaymentMethod == DeclineToken {
		return nil, &DeclinedError{Code: "card_declined", Message: "Your card was declined."}
	}
	intent.Status = StatusSucceeded
	return cloneIntent(intent), nil
}

func (m *MockProcessor) CancelIntent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return ErrIntentNotFound
	}
	intent.Status = StatusCanceled
	m.cancelled = append(m.cancelled, id)
	return nil
}

// ParseWebhook accepts an unsigned JSON body of the form
// {"id": "...", "type": "...", "intentId": "..."}.
func (m *MockProcessor) ParseWebhook(payload []byte, _ string) (*Event, error) {
	var body struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		IntentID string `json:"intentId"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return &Event{ID: body.ID, Type: body.Type, IntentID: body.IntentID, FailureMessage: body.Message}, nil
}

// Created reports how many distinct intents were created.
func (m *MockProcessor) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// Cancelled returns the ids of cancelled intents in order.
func (m *MockProcessor) Cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancelled...)
}

// intentParams fingerprints the parameters an idempotency key is bound to.
func intentParams(in CreateIntentInput) string {
	return fmt.Sprintf("%d|%s|%v", in.Amount, strings.ToLower(in.Currency), in.Metadata)
}

func cloneIntent(in *Intent) *Intent {
	out := *in
	out.Metadata = maps.Clone(in.Metadata)
	return &out
}
