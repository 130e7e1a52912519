package domain

import "github.com/pkg/errors"

// Error taxonomy. Callers classify failures with errors.Is.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrCartEmpty           = errors.New("cart is empty")
	ErrPaymentFailed       = errors.New("payment failed")
	ErrUnsupportedMethod   = errors.New("unsupported payment method")
	ErrOrderCreationFailed = errors.New("order creation failed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrOverRelease         = errors.New("release exceeds outstanding reservations")
	ErrUnknownEntity       = errors.New("unknown entity type")
)
