package dto

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/cashflow/internal/domain"
	"github.com/iho/cashflow/internal/usecase"
)

// OpenAccountRequest represents a request to open an account.
type OpenAccountRequest struct {
	OwnerName string `json:"owner_name"`
	Currency  string `json:"currency,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *OpenAccountRequest) ToUseCaseInput() usecase.OpenAccountInput {
	return usecase.OpenAccountInput{
		OwnerName: r.OwnerName,
		Currency:  r.Currency,
	}
}

// MoneyRequest is the body of a deposit or withdrawal.
// Amount is a decimal string with at most two fractional digits.
type MoneyRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// HasCurrency reports whether the request names a currency.
func (r *MoneyRequest) HasCurrency() bool {
	return strings.TrimSpace(r.Currency) != ""
}

// ToMoney parses the amount. fallbackCurrency is used when the request
// omits the currency.
func (r *MoneyRequest) ToMoney(fallbackCurrency string) (domain.Money, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return domain.Money{}, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, r.Amount)
	}

	currency := r.Currency
	if !r.HasCurrency() {
		currency = fallbackCurrency
	}

	return domain.NewMoneyStrict(amount, currency)
}
