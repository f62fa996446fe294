package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AccountID identifies an account stream. It is a UUID v4 in canonical text form.
type AccountID string

// NewAccountID generates a fresh random account ID.
func NewAccountID() AccountID {
	return AccountID(uuid.NewString())
}

// ParseAccountID validates s and returns it in canonical lower-case form.
func ParseAccountID(s string) (AccountID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountID, s)
	}
	return AccountID(id.String()), nil
}

func (id AccountID) String() string { return string(id) }
