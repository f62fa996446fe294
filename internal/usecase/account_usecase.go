package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/cashflow/internal/domain"
)

// AccountUseCase runs account commands as load, fold, decide, append cycles.
// It never retries: a domain.ErrConcurrentModification goes back to the caller.
type AccountUseCase struct {
	store           EventStore
	locker          AccountLocker
	observer        CommandObserver
	logger          zerolog.Logger
	defaultCurrency string
	commandTimeout  time.Duration
	now             func() time.Time
	newID           func() domain.AccountID
}

// AccountUseCaseConfig holds the dependencies of AccountUseCase.
type AccountUseCaseConfig struct {
	Store           EventStore
	Locker          AccountLocker   // optional
	Observer        CommandObserver // optional
	Logger          *zerolog.Logger // optional
	DefaultCurrency string
	CommandTimeout  time.Duration
	Now             func() time.Time        // optional, for tests
	NewID           func() domain.AccountID // optional, for tests
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(cfg AccountUseCaseConfig) (*AccountUseCase, error) {
	if cfg.Store == nil {
		return nil, errors.New("event store is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, fmt.Errorf("default currency: %w", err)
	}

	uc := &AccountUseCase{
		store:           cfg.Store,
		locker:          cfg.Locker,
		observer:        cfg.Observer,
		logger:          zerolog.Nop(),
		defaultCurrency: currency,
		commandTimeout:  cfg.CommandTimeout,
		now:             cfg.Now,
		newID:           cfg.NewID,
	}
	if cfg.Logger != nil {
		uc.logger = cfg.Logger.With().Str("component", "account_usecase").Logger()
	}
	if uc.commandTimeout <= 0 {
		uc.commandTimeout = DefaultCommandTimeout
	}
	if uc.now == nil {
		uc.now = func() time.Time { return time.Now().UTC() }
	}
	if uc.newID == nil {
		uc.newID = domain.NewAccountID
	}

	return uc, nil
}

// AccountSnapshot is the caller-facing view of an account.
type AccountSnapshot struct {
	ID        domain.AccountID
	OwnerName string
	Balance   domain.Money
	Closed    bool
	Version   int64
}

func snapshotOf(a domain.Account) *AccountSnapshot {
	return &AccountSnapshot{
		ID:        a.ID,
		OwnerName: a.OwnerName,
		Balance:   a.Balance,
		Closed:    a.Closed,
		Version:   a.Version,
	}
}

// OpenAccountInput represents input for opening an account.
type OpenAccountInput struct {
	OwnerName string
	Currency  string // empty means the configured default
}

// OpenAccount starts a new account stream with a zero balance.
func (uc *AccountUseCase) OpenAccount(ctx context.Context, input OpenAccountInput) (snap *AccountSnapshot, err error) {
	defer uc.observe(CommandOpen, time.Now(), &err)

	ctx, cancel := context.WithTimeout(ctx, uc.commandTimeout)
	defer cancel()

	currency := input.Currency
	if strings.TrimSpace(currency) == "" {
		currency = uc.defaultCurrency
	}

	account, event, err := domain.OpenAccount(uc.newID(), input.OwnerName, currency, uc.now())
	if err != nil {
		return nil, err
	}

	if err := uc.append(ctx, account.ID, 0, event); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("account_id", account.ID.String()).
		Str("currency", account.Balance.Currency()).
		Msg("account opened")

	return snapshotOf(account), nil
}

// Deposit adds amount to the account balance.
func (uc *AccountUseCase) Deposit(ctx context.Context, id domain.AccountID, amount domain.Money) (snap *AccountSnapshot, err error) {
	defer uc.observe(CommandDeposit, time.Now(), &err)

	account, err := uc.execute(ctx, CommandDeposit, id, func(current domain.Account) (domain.Account, domain.Event, error) {
		return current.Deposit(amount, uc.now())
	})
	if err != nil {
		return nil, err
	}
	return snapshotOf(account), nil
}

// Withdraw removes amount from the account balance.
func (uc *AccountUseCase) Withdraw(ctx context.Context, id domain.AccountID, amount domain.Money) (snap *AccountSnapshot, err error) {
	defer uc.observe(CommandWithdraw, time.Now(), &err)

	account, err := uc.execute(ctx, CommandWithdraw, id, func(current domain.Account) (domain.Account, domain.Event, error) {
		return current.Withdraw(amount, uc.now())
	})
	if err != nil {
		return nil, err
	}
	return snapshotOf(account), nil
}

// CloseAccount closes the account and freezes its balance.
func (uc *AccountUseCase) CloseAccount(ctx context.Context, id domain.AccountID) (err error) {
	defer uc.observe(CommandClose, time.Now(), &err)

	_, err = uc.execute(ctx, CommandClose, id, func(current domain.Account) (domain.Account, domain.Event, error) {
		return current.Close(uc.now())
	})
	return err
}

// GetBalance replays the account history and returns its balance.
func (uc *AccountUseCase) GetBalance(ctx context.Context, id domain.AccountID) (balance domain.Money, err error) {
	defer uc.observe(CommandBalance, time.Now(), &err)

	ctx, cancel := context.WithTimeout(ctx, uc.commandTimeout)
	defer cancel()

	account, err := uc.load(ctx, id)
	if err != nil {
		return domain.Money{}, err
	}
	return account.Balance, nil
}

// GetAccount replays the account history and returns a snapshot.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id domain.AccountID) (*AccountSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.commandTimeout)
	defer cancel()

	account, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return snapshotOf(account), nil
}

// History returns the recorded events of an account in stream order.
func (uc *AccountUseCase) History(ctx context.Context, id domain.AccountID) ([]domain.RecordedEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.commandTimeout)
	defer cancel()

	recorded, err := uc.store.LoadEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(recorded) == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return recorded, nil
}

type decideFunc func(current domain.Account) (domain.Account, domain.Event, error)

// execute runs one read-modify-append cycle against a single account stream.
func (uc *AccountUseCase) execute(ctx context.Context, command string, id domain.AccountID, decide decideFunc) (domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.commandTimeout)
	defer cancel()

	if uc.locker != nil {
		unlock, err := uc.locker.Lock(ctx, id)
		if err != nil {
			return domain.Account{}, fmt.Errorf("lock account %s: %w", id, err)
		}
		defer unlock()
	}

	current, err := uc.load(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}

	next, event, err := decide(current)
	if err != nil {
		return domain.Account{}, err
	}

	if err := uc.append(ctx, id, current.Version, event); err != nil {
		return domain.Account{}, err
	}

	uc.logger.Debug().
		Str("command", command).
		Str("account_id", id.String()).
		Int64("version", next.Version).
		Str("balance", next.Balance.String()).
		Msg("command applied")

	return next, nil
}

// load folds the account stream. Sequence numbers must run 1..n without gaps,
// so the folded version equals the last sequence number read.
func (uc *AccountUseCase) load(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	recorded, err := uc.store.LoadEvents(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	if len(recorded) == 0 {
		return domain.Account{}, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}

	for i, r := range recorded {
		if r.Sequence != int64(i+1) {
			return domain.Account{}, fmt.Errorf("%w: sequence %d at position %d", domain.ErrMalformedHistory, r.Sequence, i+1)
		}
	}

	account, err := domain.FromEvents(domain.Events(recorded))
	if err != nil {
		uc.logger.Error().Err(err).Str("account_id", id.String()).Msg("account history does not fold")
		return domain.Account{}, err
	}
	return account, nil
}

func (uc *AccountUseCase) append(ctx context.Context, id domain.AccountID, expectedVersion int64, event domain.Event) error {
	events := []domain.Event{event}

	if _, err := uc.store.AppendEvents(ctx, id, expectedVersion, events); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			uc.logger.Warn().
				Str("account_id", id.String()).
				Int64("expected_version", expectedVersion).
				Msg("append rejected, stream moved")
		}
		return err
	}

	if uc.observer != nil {
		uc.observer.ObserveAppend(events)
	}
	return nil
}

func (uc *AccountUseCase) observe(command string, start time.Time, err *error) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObserveCommand(command, *err, time.Since(start))
}
