package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/iho/cashflow/internal/domain"
)

// EventStore implements usecase.EventStore in process memory.
// Each account stream has its own mutex; streams never block each other.
type EventStore struct {
	mu      sync.Mutex
	streams map[domain.AccountID]*stream
}

type stream struct {
	mu     sync.RWMutex
	events []domain.RecordedEvent
}

// NewEventStore creates an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{streams: make(map[domain.AccountID]*stream)}
}

func (s *EventStore) stream(id domain.AccountID) *stream {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[id]
	if !ok {
		st = &stream{}
		s.streams[id] = st
	}
	return st
}

// LoadEvents returns a copy of the account stream in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, id domain.AccountID) ([]domain.RecordedEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	s.mu.Lock()
	st, ok := s.streams[id]
	s.mu.Unlock()
	if !ok {
		return []domain.RecordedEvent{}, nil
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]domain.RecordedEvent, len(st.events))
	copy(out, st.events)
	return out, nil
}

// AppendEvents appends events if the stream is still at expectedVersion.
func (s *EventStore) AppendEvents(ctx context.Context, id domain.AccountID, expectedVersion int64, events []domain.Event) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	if len(events) == 0 {
		return expectedVersion, nil
	}
	for _, e := range events {
		if e.StreamID() != id {
			return 0, fmt.Errorf("%w: event for %s appended to %s", domain.ErrMalformedHistory, e.StreamID(), id)
		}
	}

	st := s.stream(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	current := int64(len(st.events))
	if current != expectedVersion {
		return 0, fmt.Errorf("%w: stream %s is at %d, expected %d", domain.ErrConcurrentModification, id, current, expectedVersion)
	}

	for i, e := range events {
		st.events = append(st.events, domain.RecordedEvent{Event: e, Sequence: expectedVersion + int64(i) + 1})
	}

	return int64(len(st.events)), nil
}
