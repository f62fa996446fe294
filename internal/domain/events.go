package domain

import "time"

// EventType is the discriminator persisted with every event.
type EventType string

// Event types
const (
	EventTypeAccountOpened  EventType = "AccountOpened"
	EventTypeMoneyDeposited EventType = "MoneyDeposited"
	EventTypeMoneyWithdrawn EventType = "MoneyWithdrawn"
	EventTypeAccountClosed  EventType = "AccountClosed"
)

// EventFlag is a coarse category stored next to each event for querying.
type EventFlag string

// Event flags
const (
	EventFlagOpened    EventFlag = "OPENED"
	EventFlagDeposited EventFlag = "DEPOSITED"
	EventFlagWithdrawn EventFlag = "WITHDRAWN"
	EventFlagClosed    EventFlag = "CLOSED"
)

// Event is an immutable fact about one account.
// The set of implementations is closed: AccountOpened, MoneyDeposited,
// MoneyWithdrawn and AccountClosed.
type Event interface {
	StreamID() AccountID
	OccurredAt() time.Time
	Type() EventType
	Flag() EventFlag

	isAccountEvent()
}

// AccountOpened starts an account stream.
type AccountOpened struct {
	AccountID      AccountID
	At             time.Time
	OwnerName      string
	InitialBalance Money
}

// MoneyDeposited adds Amount to the balance.
type MoneyDeposited struct {
	AccountID AccountID
	At        time.Time
	Amount    Money
}

// MoneyWithdrawn removes Amount from the balance.
type MoneyWithdrawn struct {
	AccountID AccountID
	At        time.Time
	Amount    Money
}

// AccountClosed ends an account stream. Nothing may follow it.
type AccountClosed struct {
	AccountID AccountID
	At        time.Time
}

func (e AccountOpened) StreamID() AccountID   { return e.AccountID }
func (e AccountOpened) OccurredAt() time.Time { return e.At }
func (e AccountOpened) Type() EventType       { return EventTypeAccountOpened }
func (e AccountOpened) Flag() EventFlag       { return EventFlagOpened }
func (AccountOpened) isAccountEvent()         {}

func (e MoneyDeposited) StreamID() AccountID   { return e.AccountID }
func (e MoneyDeposited) OccurredAt() time.Time { return e.At }
func (e MoneyDeposited) Type() EventType       { return EventTypeMoneyDeposited }
func (e MoneyDeposited) Flag() EventFlag       { return EventFlagDeposited }
func (MoneyDeposited) isAccountEvent()         {}

func (e MoneyWithdrawn) StreamID() AccountID   { return e.AccountID }
func (e MoneyWithdrawn) OccurredAt() time.Time { return e.At }
func (e MoneyWithdrawn) Type() EventType       { return EventTypeMoneyWithdrawn }
func (e MoneyWithdrawn) Flag() EventFlag       { return EventFlagWithdrawn }
func (MoneyWithdrawn) isAccountEvent()         {}

func (e AccountClosed) StreamID() AccountID   { return e.AccountID }
func (e AccountClosed) OccurredAt() time.Time { return e.At }
func (e AccountClosed) Type() EventType       { return EventTypeAccountClosed }
func (e AccountClosed) Flag() EventFlag       { return EventFlagClosed }
func (AccountClosed) isAccountEvent()         {}

// RecordedEvent is an event together with its position in the account stream.
type RecordedEvent struct {
	Event    Event
	Sequence int64
}

// Events strips positions from recorded events.
func Events(recorded []RecordedEvent) []Event {
	events := make([]Event, len(recorded))
	for i, r := range recorded {
		events[i] = r.Event
	}
	return events
}
