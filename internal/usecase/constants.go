package usecase

import "time"

const (
	// DefaultCommandTimeout bounds one load-decide-append cycle.
	DefaultCommandTimeout = 10 * time.Second

	// DefaultCurrency is used when neither the caller nor the configuration names one.
	DefaultCurrency = "EUR"

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPendingMarker is stored under a key while its first request runs.
	IdempotencyPendingMarker = "processing"
)

// Command names used in logs and metrics.
const (
	CommandOpen     = "open"
	CommandDeposit  = "deposit"
	CommandWithdraw = "withdraw"
	CommandClose    = "close"
	CommandBalance  = "balance"
)
