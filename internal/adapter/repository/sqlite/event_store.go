// Package sqlite provides a SQLite-backed account event store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/oklog/ulid/v2"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/iho/cashflow/internal/adapter/repository/codec"
	"github.com/iho/cashflow/internal/adapter/repository/sqlite/migrations"
	"github.com/iho/cashflow/internal/domain"
)

// EventStore persists account streams in a single SQLite file.
type EventStore struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite event store and applies embedded migrations.
// Write transactions start IMMEDIATE so concurrent appends queue on the
// database lock instead of failing on upgrade.
func Open(path string) (*EventStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &EventStore{
		sqlDB: sqlDB,
		now:   time.Now,
	}, nil
}

func applyMigrations(sqlDB *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}
	// m.Close would close sqlDB through the driver.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the SQLite handle.
func (s *EventStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks that the database file is reachable.
func (s *EventStore) Ping(ctx context.Context) error {
	return classifyError("ping", s.sqlDB.PingContext(ctx))
}

// LoadEvents returns the account stream ordered by sequence number.
func (s *EventStore) LoadEvents(ctx context.Context, id domain.AccountID) ([]domain.RecordedEvent, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT sequence_number, event_type, payload
		   FROM account_events
		  WHERE account_id = ?
		  ORDER BY sequence_number ASC`,
		id.String(),
	)
	if err != nil {
		return nil, classifyError("load events", err)
	}
	defer rows.Close()

	recorded := make([]domain.RecordedEvent, 0)
	for rows.Next() {
		var (
			sequence  int64
			eventType string
			payload   string
		)
		if err := rows.Scan(&sequence, &eventType, &payload); err != nil {
			return nil, classifyError("scan event", err)
		}

		event, err := codec.Decode(eventType, []byte(payload))
		if err != nil {
			return nil, fmt.Errorf("account %s sequence %d: %w", id, sequence, err)
		}
		recorded = append(recorded, domain.RecordedEvent{Event: event, Sequence: sequence})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError("load events", err)
	}

	return recorded, nil
}

// AppendEvents writes events after expectedVersion in one transaction.
func (s *EventStore) AppendEvents(ctx context.Context, id domain.AccountID, expectedVersion int64, events []domain.Event) (int64, error) {
	if len(events) == 0 {
		return expectedVersion, nil
	}

	envelopes := make([]codec.Envelope, 0, len(events))
	for _, e := range events {
		if e.StreamID() != id {
			return 0, fmt.Errorf("%w: event for %s appended to %s", domain.ErrMalformedHistory, e.StreamID(), id)
		}
		env, err := codec.Encode(e)
		if err != nil {
			return 0, err
		}
		envelopes = append(envelopes, env)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, classifyError("begin append", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var current int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM account_events WHERE account_id = ?`,
		id.String(),
	).Scan(&current); err != nil {
		return 0, classifyError("read stream version", err)
	}
	if current != expectedVersion {
		return 0, fmt.Errorf("%w: account %s is at version %d, expected %d",
			domain.ErrConcurrentModification, id, current, expectedVersion)
	}

	recordedAt := toMillis(s.now())
	for i, env := range envelopes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO account_events (
			   id,
			   account_id,
			   sequence_number,
			   event_type,
			   event_flag,
			   payload,
			   occurred_at,
			   recorded_at
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ulid.Make().String(),
			id.String(),
			expectedVersion+int64(i)+1,
			string(env.Type),
			string(env.Flag),
			string(env.Payload),
			toMillis(env.OccurredAt),
			recordedAt,
		)
		if err != nil {
			return 0, classifyError("append event", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, classifyError("commit append", err)
	}
	committed = true

	return expectedVersion + int64(len(events)), nil
}

func classifyError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isConstraintError(err):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrConcurrentModification, err)
	case isSQLiteBusyError(err):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	// sql.ErrConnDone, a closed handle, context expiry.
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT || code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code() & 0xff
	return code == sqlite3lib.SQLITE_BUSY || code == sqlite3lib.SQLITE_LOCKED
}
