// Package codec converts account events to and from their stored JSON form.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iho/cashflow/internal/domain"
)

// Envelope is an encoded event ready to be written as one stream record.
type Envelope struct {
	Type       domain.EventType
	Flag       domain.EventFlag
	Payload    []byte
	OccurredAt time.Time
}

type openedPayload struct {
	AccountID  string `json:"account_id"`
	OccurredAt string `json:"occurred_at"`
	OwnerName  string `json:"owner_name"`
	Amount     string `json:"initial_balance"`
	Currency   string `json:"currency"`
}

type movementPayload struct {
	AccountID  string `json:"account_id"`
	OccurredAt string `json:"occurred_at"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

type closedPayload struct {
	AccountID  string `json:"account_id"`
	OccurredAt string `json:"occurred_at"`
}

// Encode serialises an event. Amounts are written as fixed two-decimal strings
// and timestamps as RFC 3339 with nanoseconds, so Decode restores them exactly.
func Encode(e domain.Event) (Envelope, error) {
	var payload any

	switch ev := e.(type) {
	case domain.AccountOpened:
		payload = openedPayload{
			AccountID:  ev.AccountID.String(),
			OccurredAt: formatTime(ev.At),
			OwnerName:  ev.OwnerName,
			Amount:     ev.InitialBalance.StringFixed(),
			Currency:   ev.InitialBalance.Currency(),
		}
	case domain.MoneyDeposited:
		payload = movementOf(ev.AccountID, ev.At, ev.Amount)
	case domain.MoneyWithdrawn:
		payload = movementOf(ev.AccountID, ev.At, ev.Amount)
	case domain.AccountClosed:
		payload = closedPayload{
			AccountID:  ev.AccountID.String(),
			OccurredAt: formatTime(ev.At),
		}
	default:
		return Envelope{}, fmt.Errorf("%w: %T", domain.ErrUnknownEventType, e)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", e.Type(), err)
	}

	return Envelope{
		Type:       e.Type(),
		Flag:       e.Flag(),
		Payload:    data,
		OccurredAt: e.OccurredAt().UTC(),
	}, nil
}

// Decode rebuilds an event from its discriminator and payload.
func Decode(eventType string, payload []byte) (domain.Event, error) {
	switch domain.EventType(eventType) {
	case domain.EventTypeAccountOpened:
		var p openedPayload
		if err := unmarshal(eventType, payload, &p); err != nil {
			return nil, err
		}
		at, err := parseTime(eventType, p.OccurredAt)
		if err != nil {
			return nil, err
		}
		balance, err := parseMoney(eventType, p.Amount, p.Currency)
		if err != nil {
			return nil, err
		}
		return domain.AccountOpened{
			AccountID:      domain.AccountID(p.AccountID),
			At:             at,
			OwnerName:      p.OwnerName,
			InitialBalance: balance,
		}, nil

	case domain.EventTypeMoneyDeposited, domain.EventTypeMoneyWithdrawn:
		var p movementPayload
		if err := unmarshal(eventType, payload, &p); err != nil {
			return nil, err
		}
		at, err := parseTime(eventType, p.OccurredAt)
		if err != nil {
			return nil, err
		}
		amount, err := parseMoney(eventType, p.Amount, p.Currency)
		if err != nil {
			return nil, err
		}
		if domain.EventType(eventType) == domain.EventTypeMoneyDeposited {
			return domain.MoneyDeposited{AccountID: domain.AccountID(p.AccountID), At: at, Amount: amount}, nil
		}
		return domain.MoneyWithdrawn{AccountID: domain.AccountID(p.AccountID), At: at, Amount: amount}, nil

	case domain.EventTypeAccountClosed:
		var p closedPayload
		if err := unmarshal(eventType, payload, &p); err != nil {
			return nil, err
		}
		at, err := parseTime(eventType, p.OccurredAt)
		if err != nil {
			return nil, err
		}
		return domain.AccountClosed{AccountID: domain.AccountID(p.AccountID), At: at}, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEventType, eventType)
	}
}

func movementOf(id domain.AccountID, at time.Time, amount domain.Money) movementPayload {
	return movementPayload{
		AccountID:  id.String(),
		OccurredAt: formatTime(at),
		Amount:     amount.StringFixed(),
		Currency:   amount.Currency(),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func unmarshal(eventType string, payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decode %s payload: %w", domain.ErrMalformedHistory, eventType, err)
	}
	return nil
}

func parseTime(eventType, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s occurred_at: %w", domain.ErrMalformedHistory, eventType, err)
	}
	return t.UTC(), nil
}

func parseMoney(eventType, amount, currency string) (domain.Money, error) {
	m, err := domain.ParseMoney(amount, currency)
	if err != nil {
		return domain.Money{}, fmt.Errorf("%w: %s amount: %w", domain.ErrMalformedHistory, eventType, err)
	}
	return m, nil
}
