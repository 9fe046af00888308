package domain

import (
	"strings"
	"unicode"
)

// Money is a non-negative monetary amount with an ISO 4217 currency code.
// No rounding happens here; rounding to the minor currency unit is a
// presentation-layer concern.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// NewMoney validates and builds a Money value. Negative amounts and
// malformed currency codes are rejected.
func NewMoney(amount float64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, NewInvalidInputError("money amount cannot be negative", currency)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 || !isAlpha(currency) {
		return Money{}, NewInvalidInputError("currency must be a 3-letter ISO 4217 code", currency)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
