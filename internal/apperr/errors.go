// Package apperr holds the error kinds shared by the cart, checkout and
// purchase components. Callers match them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrUnauthorized    = errors.New("authentication required")
	ErrStorage         = errors.New("storage error")
)

// Storage marks err as a storage failure. Nil stays nil, and errors that
// already carry a domain kind are returned as is.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrEmptyCart) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
