package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInactiveProduct is returned when a product exists but is not for sale.
	ErrInactiveProduct = errors.New("product inactive")
)
