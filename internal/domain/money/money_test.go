package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Add_SameCurrency(t *testing.T) {
	a, err := FromString("99.00", "USD")
	require.NoError(t, err)
	b, err := FromString("1.50", "USD")
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "100.50 USD", sum.String())
}

func TestMoney_Add_CurrencyMismatch(t *testing.T) {
	a, _ := FromString("10.00", "USD")
	b, _ := FromString("10.00", "EUR")

	_, err := a.Add(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = a.Sub(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_MulInt(t *testing.T) {
	price, _ := FromString("99.00", "USD")

	total := price.MulInt(3)
	assert.Equal(t, "297.00 USD", total.String())
	assert.Equal(t, "USD", total.Currency)
}

func TestMoney_MulDecimal_RoundsHalfUpToTwoPlaces(t *testing.T) {
	price, _ := FromString("33.33", "USD")

	// 33.33 * 0.90 = 29.997 -> 30.00
	discounted := price.MulDecimal(decimal.NewFromFloat(0.90))
	assert.Equal(t, "30.00 USD", discounted.String())
}

func TestMoney_Sub_ToZero(t *testing.T) {
	a, _ := FromString("5.00", "USD")
	b, _ := FromString("5.00", "USD")

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.IsZero())
	assert.False(t, diff.IsNegative())
}

func TestNewQuantity(t *testing.T) {
	q, err := NewQuantity(3)
	require.NoError(t, err)
	assert.Equal(t, 3, q.Int())

	_, err = NewQuantity(0)
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)

	_, err = NewQuantity(-1)
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)
}
