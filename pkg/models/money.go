package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the only currency the brokerage operates in.
const DefaultCurrency = "PLN"

// Money is an exact decimal amount in a specific currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney creates a Money value in the default currency.
func NewMoney(amount decimal.Decimal) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

// Equal reports whether two amounts are the same value in the same currency.
// Amounts in different currencies are never equal.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}
