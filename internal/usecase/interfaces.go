package usecase

import (
	"context"
	"time"

	"github.com/iho/cashflow/internal/domain"
)

// EventStore is the append-only, per-account event log.
type EventStore interface {
	// LoadEvents returns the account stream in ascending sequence order.
	// An unknown account yields an empty slice and no error.
	LoadEvents(ctx context.Context, id domain.AccountID) ([]domain.RecordedEvent, error)
	// AppendEvents writes events at expectedVersion+1, expectedVersion+2, ...
	// in one atomic unit. It fails with domain.ErrConcurrentModification when
	// the stream's highest sequence number is not expectedVersion.
	AppendEvents(ctx context.Context, id domain.AccountID, expectedVersion int64, events []domain.Event) (int64, error)
}

// AccountLocker serialises commands per account id.
type AccountLocker interface {
	// Lock blocks until the account is held or ctx is done.
	Lock(ctx context.Context, id domain.AccountID) (unlock func(), err error)
}

// CommandObserver receives command outcomes, e.g. for metrics.
type CommandObserver interface {
	ObserveCommand(command string, err error, elapsed time.Duration)
	ObserveAppend(events []domain.Event)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request may be sent again.
	Release(ctx context.Context, key string) error
}
