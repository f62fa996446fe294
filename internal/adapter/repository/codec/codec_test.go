package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cashflow/internal/domain"
)

func TestRoundTrip(t *testing.T) {
	id := domain.NewAccountID()
	at := time.Date(2026, 5, 17, 9, 30, 15, 123456789, time.UTC)

	tests := []struct {
		name     string
		event    domain.Event
		wantFlag domain.EventFlag
	}{
		{
			name:     "opened",
			event:    domain.AccountOpened{AccountID: id, At: at, OwnerName: "Ana", InitialBalance: domain.MustMoney("0", "EUR")},
			wantFlag: domain.EventFlagOpened,
		},
		{
			name:     "deposited",
			event:    domain.MoneyDeposited{AccountID: id, At: at, Amount: domain.MustMoney("50.10", "EUR")},
			wantFlag: domain.EventFlagDeposited,
		},
		{
			name:     "withdrawn",
			event:    domain.MoneyWithdrawn{AccountID: id, At: at, Amount: domain.MustMoney("0.01", "EUR")},
			wantFlag: domain.EventFlagWithdrawn,
		},
		{
			name:     "closed",
			event:    domain.AccountClosed{AccountID: id, At: at},
			wantFlag: domain.EventFlagClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Encode(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.event.Type(), env.Type)
			assert.Equal(t, tt.wantFlag, env.Flag)
			assert.True(t, env.OccurredAt.Equal(at))

			decoded, err := Decode(string(env.Type), env.Payload)
			require.NoError(t, err)
			assert.Equal(t, tt.event.Type(), decoded.Type())
			assert.Equal(t, id, decoded.StreamID())
			assert.True(t, decoded.OccurredAt().Equal(at))

			switch want := tt.event.(type) {
			case domain.AccountOpened:
				got := decoded.(domain.AccountOpened)
				assert.Equal(t, want.OwnerName, got.OwnerName)
				assert.True(t, want.InitialBalance.Equal(got.InitialBalance))
			case domain.MoneyDeposited:
				assert.True(t, want.Amount.Equal(decoded.(domain.MoneyDeposited).Amount))
			case domain.MoneyWithdrawn:
				assert.True(t, want.Amount.Equal(decoded.(domain.MoneyWithdrawn).Amount))
			}
		})
	}
}

func TestEncode_PayloadShape(t *testing.T) {
	env, err := Encode(domain.MoneyDeposited{
		AccountID: "0b8c3c52-7a6f-4b0e-9d7e-3e1e4f0c2a11",
		At:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Amount:    domain.MustMoney("12.5", "EUR"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"account_id": "0b8c3c52-7a6f-4b0e-9d7e-3e1e4f0c2a11",
		"occurred_at": "2026-01-01T00:00:00Z",
		"amount": "12.50",
		"currency": "EUR"
	}`, string(env.Payload))
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode("InterestAccrued", []byte(`{}`))
	require.True(t, errors.Is(err, domain.ErrUnknownEventType), "got %v", err)
}

func TestDecode_BadPayload(t *testing.T) {
	tests := []struct {
		name      string
		eventType domain.EventType
		payload   string
	}{
		{name: "not json", eventType: domain.EventTypeAccountClosed, payload: `{`},
		{name: "bad time", eventType: domain.EventTypeAccountClosed, payload: `{"account_id":"a","occurred_at":"yesterday"}`},
		{name: "bad amount", eventType: domain.EventTypeMoneyDeposited, payload: `{"account_id":"a","occurred_at":"2026-01-01T00:00:00Z","amount":"ten","currency":"EUR"}`},
		{name: "bad currency", eventType: domain.EventTypeMoneyWithdrawn, payload: `{"account_id":"a","occurred_at":"2026-01-01T00:00:00Z","amount":"1.00","currency":"EURO"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(string(tt.eventType), []byte(tt.payload))
			require.ErrorIs(t, err, domain.ErrMalformedHistory)
		})
	}
}
