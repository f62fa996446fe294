package domain

import "errors"

var (
	// Money errors
	ErrInvalidAmount    = errors.New("amount must be a non-zero positive value")
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// Account errors
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountClosed     = errors.New("account is closed")
	ErrAccountNotFound   = errors.New("account not found")

	// Event stream errors
	ErrMalformedHistory       = errors.New("malformed account history")
	ErrUnknownEventType       = errors.New("unknown event type")
	ErrConcurrentModification = errors.New("account was modified concurrently")
	ErrStorageUnavailable     = errors.New("event storage unavailable")
)
