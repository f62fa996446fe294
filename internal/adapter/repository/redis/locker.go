package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/cashflow/internal/domain"
)

const (
	defaultLockTTL       = 5 * time.Second
	defaultRetryInterval = 10 * time.Millisecond
	releaseTimeout       = time.Second
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serialises commands per account across processes with SET NX PX.
type Locker struct {
	client        *redis.Client
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	logger        zerolog.Logger
}

// NewLocker creates a Locker. A lock expires after ttl if its holder dies.
func NewLocker(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Locker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Locker{
		client:        client,
		prefix:        "cashflow:lock:account:",
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		logger:        logger.With().Str("component", "redis_locker").Logger(),
	}
}

// Lock blocks until the account lock is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, id domain.AccountID) (func(), error) {
	key := l.prefix + id.String()
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: acquire lock: %w", domain.ErrStorageUnavailable, err)
		}
		if ok {
			return l.unlockFunc(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlockFunc(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true

		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("failed to release account lock")
		}
	}
}
