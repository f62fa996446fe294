package domain

import (
	"fmt"
	"strings"
	"time"
)

// Account is the current state of an account, derived by folding its events.
// It is a value: every command returns a new Account and never mutates the receiver.
type Account struct {
	ID        AccountID
	OwnerName string
	Balance   Money
	Closed    bool
	// Version is the number of events folded so far, which is also the
	// sequence number of the last one.
	Version int64
}

// OpenAccount validates the input and emits the first event of a new stream.
func OpenAccount(id AccountID, ownerName, currency string, at time.Time) (Account, AccountOpened, error) {
	if id == "" {
		return Account{}, AccountOpened{}, fmt.Errorf("%w: empty", ErrInvalidAccountID)
	}
	if err := ValidateOwnerName(ownerName); err != nil {
		return Account{}, AccountOpened{}, err
	}

	initial, err := Zero(currency)
	if err != nil {
		return Account{}, AccountOpened{}, err
	}

	event := AccountOpened{
		AccountID:      id,
		At:             at.UTC(),
		OwnerName:      strings.TrimSpace(ownerName),
		InitialBalance: initial,
	}

	state, err := Account{}.Apply(event)
	if err != nil {
		return Account{}, AccountOpened{}, err
	}
	return state, event, nil
}

// Deposit emits MoneyDeposited for a positive amount in the account currency.
func (a Account) Deposit(amount Money, at time.Time) (Account, MoneyDeposited, error) {
	if err := a.checkMovement(amount); err != nil {
		return Account{}, MoneyDeposited{}, err
	}

	event := MoneyDeposited{AccountID: a.ID, At: at.UTC(), Amount: amount}

	state, err := a.Apply(event)
	if err != nil {
		return Account{}, MoneyDeposited{}, err
	}
	return state, event, nil
}

// Withdraw emits MoneyWithdrawn if the balance covers amount.
func (a Account) Withdraw(amount Money, at time.Time) (Account, MoneyWithdrawn, error) {
	if err := a.checkMovement(amount); err != nil {
		return Account{}, MoneyWithdrawn{}, err
	}

	cmp, err := a.Balance.Cmp(amount)
	if err != nil {
		return Account{}, MoneyWithdrawn{}, err
	}
	if cmp < 0 {
		return Account{}, MoneyWithdrawn{}, fmt.Errorf("%w: balance is %s, withdrawal is %s", ErrInsufficientFunds, a.Balance, amount)
	}

	event := MoneyWithdrawn{AccountID: a.ID, At: at.UTC(), Amount: amount}

	state, err := a.Apply(event)
	if err != nil {
		return Account{}, MoneyWithdrawn{}, err
	}
	return state, event, nil
}

// Close emits AccountClosed. The balance is frozen from then on.
func (a Account) Close(at time.Time) (Account, AccountClosed, error) {
	if a.Closed {
		return Account{}, AccountClosed{}, ErrAccountClosed
	}

	event := AccountClosed{AccountID: a.ID, At: at.UTC()}

	state, err := a.Apply(event)
	if err != nil {
		return Account{}, AccountClosed{}, err
	}
	return state, event, nil
}

func (a Account) checkMovement(amount Money) error {
	if a.Closed {
		return ErrAccountClosed
	}
	if err := ValidateCommandAmount(amount); err != nil {
		return err
	}
	if amount.Currency() != a.Balance.Currency() {
		return fmt.Errorf("%w: account holds %s, amount is %s", ErrCurrencyMismatch, a.Balance.Currency(), amount.Currency())
	}
	return nil
}

// FromEvents rebuilds an account from its full history.
// The history must be non-empty and start with AccountOpened.
func FromEvents(events []Event) (Account, error) {
	if len(events) == 0 {
		return Account{}, fmt.Errorf("%w: no events", ErrMalformedHistory)
	}
	if _, ok := events[0].(AccountOpened); !ok {
		return Account{}, fmt.Errorf("%w: first event is %s, want %s", ErrMalformedHistory, events[0].Type(), EventTypeAccountOpened)
	}

	var (
		state Account
		err   error
	)
	for i, e := range events {
		state, err = state.Apply(e)
		if err != nil {
			return Account{}, fmt.Errorf("event %d: %w", i+1, err)
		}
	}
	return state, nil
}

// Apply folds one event onto the state. An error means the history breaks an
// invariant: events after close, a second open, a foreign stream id, or money
// in another currency.
func (a Account) Apply(e Event) (Account, error) {
	_, isOpen := e.(AccountOpened)
	if a.ID == "" && !isOpen {
		return Account{}, fmt.Errorf("%w: %s before %s", ErrMalformedHistory, e.Type(), EventTypeAccountOpened)
	}
	if a.ID != "" && e.StreamID() != a.ID {
		return Account{}, fmt.Errorf("%w: event for %s in stream %s", ErrMalformedHistory, e.StreamID(), a.ID)
	}
	if a.Closed {
		return Account{}, fmt.Errorf("%w: %s after %s", ErrMalformedHistory, e.Type(), EventTypeAccountClosed)
	}

	next := a
	next.Version++

	switch ev := e.(type) {
	case AccountOpened:
		if a.ID != "" {
			return Account{}, fmt.Errorf("%w: account opened twice", ErrMalformedHistory)
		}
		next.ID = ev.AccountID
		next.OwnerName = ev.OwnerName
		next.Balance = ev.InitialBalance
	case MoneyDeposited:
		balance, err := a.Balance.Add(ev.Amount)
		if err != nil {
			return Account{}, fmt.Errorf("%w: %w", ErrMalformedHistory, err)
		}
		next.Balance = balance
	case MoneyWithdrawn:
		balance, err := a.Balance.Sub(ev.Amount)
		if err != nil {
			return Account{}, fmt.Errorf("%w: %w", ErrMalformedHistory, err)
		}
		next.Balance = balance
	case AccountClosed:
		next.Closed = true
	default:
		return Account{}, fmt.Errorf("%w: %T", ErrUnknownEventType, e)
	}

	return next, nil
}
