package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits Money keeps.
const MoneyScale = 2

// Money is an immutable amount in a single currency.
// The amount always has at most MoneyScale fractional digits.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney builds Money, rounding the amount half-to-even to two decimals.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount.RoundBank(MoneyScale), currency: code}, nil
}

// NewMoneyStrict builds Money and rejects amounts with more than two decimals.
func NewMoneyStrict(amount decimal.Decimal, currency string) (Money, error) {
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return Money{}, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount, MoneyScale)
	}
	return NewMoney(amount, currency)
}

// ParseMoney parses a decimal string such as "12.50" into Money.
func ParseMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a decimal", ErrInvalidAmount, amount)
	}
	return NewMoney(d, currency)
}

// MustMoney is ParseMoney for literals known to be valid.
func MustMoney(amount, currency string) Money {
	m, err := ParseMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) (Money, error) {
	return NewMoney(decimal.Zero, currency)
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the ISO 4217 code.
func (m Money) Currency() string { return m.currency }

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m - other.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Mul multiplies by factor and rounds half-to-even to two decimals.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor).RoundBank(MoneyScale), currency: m.currency}
}

// Div divides by divisor and rounds half-to-even to two decimals.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, fmt.Errorf("%w: division by zero", ErrInvalidAmount)
	}
	// Truncate to cents, then settle the discarded part exactly:
	// m = divisor*q + r, so the dropped fraction of a cent is r/(divisor*cent).
	q, r := m.amount.QuoRem(divisor, MoneyScale)
	if r.IsZero() {
		return Money{amount: q, currency: m.currency}, nil
	}

	cent := decimal.New(1, -MoneyScale)
	cmp := r.Abs().Mul(decimal.NewFromInt(2)).Cmp(divisor.Abs().Mul(cent))
	if cmp > 0 || (cmp == 0 && !q.Shift(MoneyScale).Mod(decimal.NewFromInt(2)).IsZero()) {
		if m.amount.Sign()*divisor.Sign() < 0 {
			q = q.Sub(cent)
		} else {
			q = q.Add(cent)
		}
	}
	return Money{amount: q, currency: m.currency}, nil
}

// Cmp compares amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// IsZero reports whether the amount is zero, whatever the currency.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Equal reports whether both currency and amount match.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// StringFixed returns the amount with exactly two decimals, e.g. "30.00".
func (m Money) StringFixed() string {
	return m.amount.StringFixed(MoneyScale)
}

func (m Money) String() string {
	return m.StringFixed() + " " + m.currency
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes the amount as a fixed two-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.StringFixed(), Currency: m.currency})
}

// UnmarshalJSON decodes {"amount":"1.00","currency":"EUR"}.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

func normalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if err := ValidateCurrency(code); err != nil {
		return "", err
	}
	return code, nil
}
