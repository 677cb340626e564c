package checkout

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrAmountMismatch is returned when the submitted amount differs from the
	// catalog-priced total.
	ErrAmountMismatch = errors.New("amount does not match cart total")
	// ErrIdempotencyConflict is returned when an idempotency key was already
	// used by a different user.
	ErrIdempotencyConflict = errors.New("idempotency key already used")
)

// ValidationError describes a malformed checkout request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// InvalidProductsError lists product ids that are unknown or not for sale.
type InvalidProductsError struct {
	IDs []int64
}

func (e *InvalidProductsError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "Productos no válidos o inexistentes: " + strings.Join(parts, ", ")
}
