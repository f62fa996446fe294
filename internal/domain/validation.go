package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidOwnerName = errors.New("invalid owner name")
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrInvalidAccountID = errors.New("invalid account ID")
	ErrAmountTooLarge   = errors.New("amount exceeds maximum allowed")
)

// Validation constants
const (
	MaxOwnerNameLength = 255
	MinOwnerNameLength = 1
	MaxCommandAmount   = "1000000000000" // 1 trillion
)

var maxCommandAmount = decimal.RequireFromString(MaxCommandAmount)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "RUB": true, "TRY": true, "HKD": true,
	"DKK": true, "PLN": true, "CZK": true, "HUF": true,
}

// ValidateOwnerName validates the account owner's display name.
func ValidateOwnerName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinOwnerNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidOwnerName)
	}

	if len(name) > MaxOwnerNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidOwnerName, MaxOwnerNameLength)
	}

	return nil
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %q is not a supported ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateCommandAmount checks an amount passed to deposit or withdraw.
// Zero and negative amounts are rejected; so is anything above MaxCommandAmount.
func ValidateCommandAmount(amount Money) error {
	if amount.IsZero() || amount.IsNegative() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}

	if amount.Amount().GreaterThan(maxCommandAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxCommandAmount)
	}

	return nil
}
