package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iho/cashflow/internal/domain"
)

var testAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func opened(id domain.AccountID) domain.Event {
	return domain.AccountOpened{AccountID: id, At: testAt, OwnerName: "Ana", InitialBalance: domain.MustMoney("0", "EUR")}
}

func deposited(id domain.AccountID, amount string) domain.Event {
	return domain.MoneyDeposited{AccountID: id, At: testAt, Amount: domain.MustMoney(amount, "EUR")}
}

func TestEventStore_LoadUnknownIsEmpty(t *testing.T) {
	store := NewEventStore()

	events, err := store.LoadEvents(context.Background(), domain.NewAccountID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", events)
	}
}

func TestEventStore_AppendAssignsConsecutiveSequences(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()
	id := domain.NewAccountID()

	version, err := store.AppendEvents(ctx, id, 0, []domain.Event{opened(id)})
	if err != nil || version != 1 {
		t.Fatalf("first append: version=%d err=%v", version, err)
	}

	version, err = store.AppendEvents(ctx, id, 1, []domain.Event{deposited(id, "1.00"), deposited(id, "2.00")})
	if err != nil || version != 3 {
		t.Fatalf("batch append: version=%d err=%v", version, err)
	}

	events, err := store.LoadEvents(ctx, id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, e := range events {
		if e.Sequence != int64(i+1) {
			t.Errorf("event %d has sequence %d", i, e.Sequence)
		}
	}
	if events[2].Event.(domain.MoneyDeposited).Amount.StringFixed() != "2.00" {
		t.Errorf("events out of order: %+v", events)
	}
}

func TestEventStore_StaleVersionRejected(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()
	id := domain.NewAccountID()

	if _, err := store.AppendEvents(ctx, id, 0, []domain.Event{opened(id)}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	_, err := store.AppendEvents(ctx, id, 0, []domain.Event{opened(id)})
	if !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	_, err = store.AppendEvents(ctx, id, 5, []domain.Event{deposited(id, "1.00")})
	if !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification for version ahead, got %v", err)
	}

	events, _ := store.LoadEvents(ctx, id)
	if len(events) != 1 {
		t.Fatalf("rejected appends must not write, got %d events", len(events))
	}
}

func TestEventStore_ForeignEventRejected(t *testing.T) {
	store := NewEventStore()
	id := domain.NewAccountID()

	_, err := store.AppendEvents(context.Background(), id, 0, []domain.Event{opened(domain.NewAccountID())})
	if !errors.Is(err, domain.ErrMalformedHistory) {
		t.Fatalf("expected ErrMalformedHistory, got %v", err)
	}
}

func TestEventStore_CancelledContext(t *testing.T) {
	store := NewEventStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.LoadEvents(ctx, domain.NewAccountID()); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestEventStore_ConcurrentAppendsOneWinnerPerVersion(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()
	id := domain.NewAccountID()

	if _, err := store.AppendEvents(ctx, id, 0, []domain.Event{opened(id)}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	const writers = 50
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	wg.Add(writers)
	for range writers {
		go func() {
			defer wg.Done()
			_, err := store.AppendEvents(ctx, id, 1, []domain.Event{deposited(id, "1.00")})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrConcurrentModification):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 || conflicts.Load() != writers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", writers-1, successes.Load(), conflicts.Load())
	}
}
