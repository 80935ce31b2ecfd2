// Package money holds the fixed-point money and quantity primitives used by
// every aggregate above it. Amounts are shopspring decimals, never floats.
package money

import (
	"fmt"

	"github.com/NawarAli1912/EStore.API-sub000/internal/errs"
	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyMismatch    = errs.Validation("money.currency_mismatch", "operands have different currencies")
	ErrNonPositiveQuantity = errs.Validation("money.non_positive_quantity", "quantity must be at least 1")
)

// DiscountScale is the number of decimal places a derived unit price keeps.
// Rounding is half-up and happens once, at the point the price is computed.
const DiscountScale = 2

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// FromString parses a decimal literal, e.g. "99.00".
func FromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("parse money amount %q: %w", amount, err)
	}
	return Money{Amount: d, Currency: currency}, nil
}

func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// MulInt scales by a whole quantity. Currency preserving, exact.
func (m Money) MulInt(n int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(n))), Currency: m.Currency}
}

// MulDecimal scales by an arbitrary factor and rounds to DiscountScale.
// This is the only place money arithmetic rounds.
func (m Money) MulDecimal(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor).Round(DiscountScale), Currency: m.Currency}
}

func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

func (m Money) String() string {
	return m.Amount.StringFixed(DiscountScale) + " " + m.Currency
}

// Quantity is a count of units, always >= 1 once constructed.
type Quantity int

func NewQuantity(n int) (Quantity, error) {
	if n < 1 {
		return 0, ErrNonPositiveQuantity
	}
	return Quantity(n), nil
}

func (q Quantity) Int() int {
	return int(q)
}
