package memory

import (
	"context"
	"sync"

	"github.com/iho/cashflow/internal/domain"
)

// Locker implements usecase.AccountLocker with one channel-based mutex per
// account. Entries are dropped once nobody holds or waits for them.
type Locker struct {
	mu    sync.Mutex
	locks map[domain.AccountID]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewLocker creates a new Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[domain.AccountID]*entry)}
}

// Lock blocks until id is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, id domain.AccountID) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(id, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(id, e)
		})
	}, nil
}

func (l *Locker) release(id domain.AccountID, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, id)
	}
}

// Len reports how many accounts currently have holders or waiters.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
