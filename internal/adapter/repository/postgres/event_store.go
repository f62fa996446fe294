package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/cashflow/internal/adapter/repository/codec"
	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/infrastructure/postgres/generated"
	"github.com/iho/cashflow/internal/usecase"
)

const streamPositionConstraint = "account_events_stream_position"

type eventPool interface {
	pgxPool
	generated.DBTX
}

// EventStore implements usecase.EventStore on the account_events table.
type EventStore struct {
	queries   *generated.Queries
	txManager *TxManager
	idGen     usecase.IDGenerator
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return newEventStoreWithPool(pool, NewULIDGenerator())
}

func newEventStoreWithPool(pool eventPool, idGen usecase.IDGenerator) *EventStore {
	return &EventStore{
		queries:   generated.New(pool),
		txManager: newTxManagerWithPool(pool),
		idGen:     idGen,
	}
}

// LoadEvents returns the account stream ordered by sequence number.
func (s *EventStore) LoadEvents(ctx context.Context, id domain.AccountID) ([]domain.RecordedEvent, error) {
	rows, err := s.queries.ListAccountEvents(ctx, id.String())
	if err != nil {
		return nil, classifyError("load events", err)
	}

	recorded := make([]domain.RecordedEvent, 0, len(rows))
	for _, row := range rows {
		event, err := codec.Decode(row.EventType, row.Payload)
		if err != nil {
			return nil, fmt.Errorf("account %s sequence %d: %w", id, row.SequenceNumber, err)
		}
		recorded = append(recorded, domain.RecordedEvent{Event: event, Sequence: row.SequenceNumber})
	}

	return recorded, nil
}

// AppendEvents writes events after expectedVersion in one transaction.
// The stream is locked with a transaction-scoped advisory lock before the
// version check; the unique (account_id, sequence_number) constraint backs it.
func (s *EventStore) AppendEvents(ctx context.Context, id domain.AccountID, expectedVersion int64, events []domain.Event) (int64, error) {
	if len(events) == 0 {
		return expectedVersion, nil
	}

	params := make([]generated.InsertAccountEventParams, 0, len(events))
	for i, e := range events {
		if e.StreamID() != id {
			return 0, fmt.Errorf("%w: event for %s appended to %s", domain.ErrMalformedHistory, e.StreamID(), id)
		}

		env, err := codec.Encode(e)
		if err != nil {
			return 0, err
		}

		amount, currency := eventAmount(e)
		params = append(params, generated.InsertAccountEventParams{
			ID:             s.idGen.Generate(),
			AccountID:      id.String(),
			SequenceNumber: expectedVersion + int64(i) + 1,
			EventType:      string(env.Type),
			EventFlag:      string(env.Flag),
			Amount:         amount,
			Currency:       currency,
			Payload:        env.Payload,
			OccurredAt:     timeToPgTimestamptz(env.OccurredAt),
		})
	}

	err := s.txManager.InTx(ctx, func(tx *Tx) error {
		q := tx.Queries()

		if err := q.LockStream(ctx, id.String()); err != nil {
			return err
		}

		current, err := q.GetStreamVersion(ctx, id.String())
		if err != nil {
			return err
		}
		if current != expectedVersion {
			return fmt.Errorf("%w: account %s is at version %d, expected %d",
				domain.ErrConcurrentModification, id, current, expectedVersion)
		}

		for _, p := range params {
			if err := q.InsertAccountEvent(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, classifyError("append events", err)
	}

	return expectedVersion + int64(len(events)), nil
}

// eventAmount extracts the money column values stored next to the payload.
func eventAmount(e domain.Event) (pgtype.Numeric, pgtype.Text) {
	var m domain.Money
	switch ev := e.(type) {
	case domain.AccountOpened:
		m = ev.InitialBalance
	case domain.MoneyDeposited:
		m = ev.Amount
	case domain.MoneyWithdrawn:
		m = ev.Amount
	default:
		return pgtype.Numeric{}, pgtype.Text{}
	}
	return decimalToNumeric(m.Amount()), pgtype.Text{String: m.Currency(), Valid: true}
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
