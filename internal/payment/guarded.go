package payment

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("payment processor unavailable")

// GuardOptions tunes the timeout and circuit breaker around a Processor.
type GuardOptions struct {
	Timeout             time.Duration
	ConsecutiveFailures uint32
	OpenFor             time.Duration
	Logger              *log.Logger
}

// Guarded applies a per-call timeout and a circuit breaker to a Processor.
// Declines, unknown intents and idempotency mismatches count as successful
// calls for the breaker.
type Guarded struct {
	next    Processor
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[*Intent]
}

func NewGuarded(next Processor, opts GuardOptions) *Guarded {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = 5
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	threshold := opts.ConsecutiveFailures
	breaker := gobreaker.NewCircuitBreaker[*Intent](gobreaker.Settings{
		Name:    "payment-processor",
		Timeout: opts.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var declined *DeclinedError
			return err == nil || errors.As(err, &declined) || errors.Is(err, ErrIntentNotFound) || errors.Is(err, ErrIdempotencyMismatch)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("payment: breaker name=%s from=%s to=%s", name, from, to)
		},
	})
	return &Guarded{next: next, timeout: opts.Timeout, breaker: breaker}
}

func (g *Guarded) call(ctx context.Context, fn func(ctx context.Context) (*Intent, error)) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	intent, err := g.breaker.Execute(func() (*Intent, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	return intent, err
}

func (g *Guarded) CreateIntent(ctx context.Context, in CreateIntentInput) (*Intent, error) {
	return g.call(ctx, func(ctx context.Context) (*Intent, error) {
		return g.next.CreateIntent(ctx, in)
	})
}

func (g *Guarded) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	return g.call(ctx, func(ctx context.Context) (*Intent, error) {
		return g.next.RetrieveIntent(ctx, id)
	})
}

func (g *Guarded) ConfirmIntent(ctx context.Context, id string, in ConfirmInput) (*Intent, error) {
	return g.call(ctx, func(ctx context.Context) (*Intent, error) {
		return g.next.ConfirmIntent(ctx, id, in)
	})
}

func (g *Guarded) CancelIntent(ctx context.Context, id string) error {
	_, err := g.call(ctx, func(ctx context.Context) (*Intent, error) {
		return nil, g.next.CancelIntent(ctx, id)
	})
	return err
}

// ParseWebhook is local work and bypasses the breaker.
func (g *Guarded) ParseWebhook(payload []byte, signatureHeader string) (*Event, error) {
	return g.next.ParseWebhook(payload, signatureHeader)
}

// New returns the processor selected by provider name, wrapped in Guarded.
func New(provider string, stripeCfg StripeConfig, opts GuardOptions) (Processor, error) {
	var p Processor
	switch provider {
	case "mock":
		p = NewMock()
	case "stripe", "":
		sp, err := NewStripe(stripeCfg)
		if err != nil {
			return nil, err
		}
		p = sp
	default:
		return nil, errors.New("unknown payment provider " + provider)
	}
	return NewGuarded(p, opts), nil
}
