package dto

import (
	"time"

	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string `json:"id"`
	OwnerName string `json:"owner_name"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	Closed    bool   `json:"closed"`
	Version   int64  `json:"version"`
}

// AccountFromSnapshot converts a use case snapshot to a response.
func AccountFromSnapshot(s *usecase.AccountSnapshot) *AccountResponse {
	return &AccountResponse{
		ID:        s.ID.String(),
		OwnerName: s.OwnerName,
		Balance:   s.Balance.StringFixed(),
		Currency:  s.Balance.Currency(),
		Closed:    s.Closed,
		Version:   s.Version,
	}
}

// BalanceResponse is the balance of one account.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
}

// BalanceFromMoney builds a balance response.
func BalanceFromMoney(id domain.AccountID, m domain.Money) *BalanceResponse {
	return &BalanceResponse{
		AccountID: id.String(),
		Balance:   m.StringFixed(),
		Currency:  m.Currency(),
	}
}

// EventResponse represents one recorded event.
type EventResponse struct {
	Sequence   int64     `json:"sequence"`
	Type       string    `json:"type"`
	Flag       string    `json:"flag"`
	OccurredAt time.Time `json:"occurred_at"`
	OwnerName  string    `json:"owner_name,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	Currency   string    `json:"currency,omitempty"`
}

// EventFromDomain converts a recorded event to a response.
func EventFromDomain(r domain.RecordedEvent) *EventResponse {
	resp := &EventResponse{
		Sequence:   r.Sequence,
		Type:       string(r.Event.Type()),
		Flag:       string(r.Event.Flag()),
		OccurredAt: r.Event.OccurredAt(),
	}

	switch e := r.Event.(type) {
	case domain.AccountOpened:
		resp.OwnerName = e.OwnerName
		resp.Amount = e.InitialBalance.StringFixed()
		resp.Currency = e.InitialBalance.Currency()
	case domain.MoneyDeposited:
		resp.Amount = e.Amount.StringFixed()
		resp.Currency = e.Amount.Currency()
	case domain.MoneyWithdrawn:
		resp.Amount = e.Amount.StringFixed()
		resp.Currency = e.Amount.Currency()
	}

	return resp
}

// EventsResponse is an account's history.
type EventsResponse struct {
	AccountID string           `json:"account_id"`
	Events    []*EventResponse `json:"events"`
}

// EventsFromDomain converts an account history to a response.
func EventsFromDomain(id domain.AccountID, recorded []domain.RecordedEvent) *EventsResponse {
	events := make([]*EventResponse, len(recorded))
	for i, r := range recorded {
		events[i] = EventFromDomain(r)
	}
	return &EventsResponse{AccountID: id.String(), Events: events}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
