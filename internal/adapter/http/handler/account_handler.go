package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/iho/cashflow/internal/adapter/http/dto"
	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	OpenAccount(ctx context.Context, input usecase.OpenAccountInput) (*usecase.AccountSnapshot, error)
	Deposit(ctx context.Context, id domain.AccountID, amount domain.Money) (*usecase.AccountSnapshot, error)
	Withdraw(ctx context.Context, id domain.AccountID, amount domain.Money) (*usecase.AccountSnapshot, error)
	CloseAccount(ctx context.Context, id domain.AccountID) error
	GetBalance(ctx context.Context, id domain.AccountID) (domain.Money, error)
	GetAccount(ctx context.Context, id domain.AccountID) (*usecase.AccountSnapshot, error)
	History(ctx context.Context, id domain.AccountID) ([]domain.RecordedEvent, error)
}

// Retrier re-runs an operation that lost a concurrent append.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error { return operation() }

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	retrier   Retrier
}

// NewAccountHandler creates a new AccountHandler. A nil retrier runs every
// command once.
func NewAccountHandler(accountUC AccountService, retrier Retrier) *AccountHandler {
	if retrier == nil {
		retrier = noRetry{}
	}
	return &AccountHandler{accountUC: accountUC, retrier: retrier}
}

// Open opens a new account.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	snap, err := h.accountUC.OpenAccount(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to open account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromSnapshot(snap))
}

// Get returns the current state of an account.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeDomainError(w, "invalid account ID", err)
		return
	}

	snap, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromSnapshot(snap))
}

// Balance returns the balance of an account.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeDomainError(w, "invalid account ID", err)
		return
	}

	balance, err := h.accountUC.GetBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromMoney(id, balance))
}

// Events returns the recorded history of an account.
func (h *AccountHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeDomainError(w, "invalid account ID", err)
		return
	}

	history, err := h.accountUC.History(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get events", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsFromDomain(id, history))
}

// Deposit adds money to an account.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "failed to deposit", h.accountUC.Deposit)
}

// Withdraw removes money from an account.
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "failed to withdraw", h.accountUC.Withdraw)
}

type movement func(ctx context.Context, id domain.AccountID, amount domain.Money) (*usecase.AccountSnapshot, error)

func (h *AccountHandler) move(w http.ResponseWriter, r *http.Request, failure string, run movement) {
	id, err := accountIDParam(r)
	if err != nil {
		writeDomainError(w, "invalid account ID", err)
		return
	}

	var req dto.MoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	// An omitted currency means the account's own; it never changes.
	fallback := ""
	if !req.HasCurrency() {
		snap, err := h.accountUC.GetAccount(r.Context(), id)
		if err != nil {
			writeDomainError(w, failure, err)
			return
		}
		fallback = snap.Balance.Currency()
	}

	amount, err := req.ToMoney(fallback)
	if err != nil {
		writeDomainError(w, "invalid amount", err)
		return
	}

	var snap *usecase.AccountSnapshot
	err = h.retrier.Retry(r.Context(), func() error {
		var runErr error
		snap, runErr = run(r.Context(), id, amount)
		return runErr
	})
	if err != nil {
		writeDomainError(w, failure, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromSnapshot(snap))
}

// Close closes an account.
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeDomainError(w, "invalid account ID", err)
		return
	}

	err = h.retrier.Retry(r.Context(), func() error {
		return h.accountUC.CloseAccount(r.Context(), id)
	})
	if err != nil {
		writeDomainError(w, "failed to close account", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
