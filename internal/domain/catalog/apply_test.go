package catalog

import (
	"testing"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/money"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(prices map[uuid.UUID]money.Money) PriceLookup {
	return func(id uuid.UUID) (money.Money, bool) {
		m, ok := prices[id]
		return m, ok
	}
}

func totalOfLineItems(t *testing.T, o *order.Order) money.Money {
	t.Helper()
	sum := money.Zero("USD")
	for _, li := range o.LineItems() {
		next, err := sum.Add(li.Price)
		require.NoError(t, err)
		sum = next
	}
	return sum
}

func TestApplyOffer_Bundle_EmitsQtyLineItemsPerProduct(t *testing.T) {
	start, end := activeWindow()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	offer, err := NewBundleOffer("bundle", "", ids, decimal.NewFromFloat(0.10), start, end)
	require.NoError(t, err)

	prices := map[uuid.UUID]money.Money{
		ids[0]: usd(t, "10.00"),
		ids[1]: usd(t, "20.00"),
		ids[2]: usd(t, "30.00"),
	}
	o := order.Create(uuid.New(), order.ShippingInfo{}, "USD")

	require.NoError(t, ApplyOffer(o, offer, 2, lookupFrom(prices)))

	// qty line items per bundled product, not qty total
	assert.Len(t, o.LineItems(), 6)
	assert.True(t, o.HasOffer(offer.ID))

	// 2 * (9 + 18 + 27) = 108
	assert.Equal(t, "108.00 USD", o.TotalPrice().String())
	assert.True(t, o.TotalPrice().Equal(totalOfLineItems(t, o)))

	for _, li := range o.LineItems() {
		assert.Equal(t, order.LineItemTypeOffer, li.Type)
		require.NotNil(t, li.RelatedOfferID)
		assert.Equal(t, offer.ID, *li.RelatedOfferID)
	}
}

func TestApplyOffer_Percentage(t *testing.T) {
	start, end := activeWindow()
	productID := uuid.New()
	offer, err := NewPercentageOffer("deal", "", productID, decimal.NewFromFloat(0.50), start, end)
	require.NoError(t, err)

	o := order.Create(uuid.New(), order.ShippingInfo{}, "USD")
	prices := map[uuid.UUID]money.Money{productID: usd(t, "40.00")}

	require.NoError(t, ApplyOffer(o, offer, 3, lookupFrom(prices)))

	assert.Len(t, o.LineItems(), 3)
	assert.Equal(t, "60.00 USD", o.TotalPrice().String())
}

func TestApplyOffer_AlreadyInOrder(t *testing.T) {
	start, end := activeWindow()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	offer, err := NewBundleOffer("bundle", "", ids, decimal.NewFromFloat(0.10), start, end)
	require.NoError(t, err)

	prices := map[uuid.UUID]money.Money{
		ids[0]: usd(t, "10.00"),
		ids[1]: usd(t, "20.00"),
	}
	o := order.Create(uuid.New(), order.ShippingInfo{}, "USD")
	require.NoError(t, ApplyOffer(o, offer, 1, lookupFrom(prices)))
	require.Len(t, o.LineItems(), 2)

	// a second application would double the offer's line items
	err = ApplyOffer(o, offer, 1, lookupFrom(prices))
	assert.ErrorIs(t, err, ErrOfferAlreadyInOrder)

	assert.Len(t, o.LineItems(), 2)
	assert.Equal(t, "27.00 USD", o.TotalPrice().String())
}

func TestRetractOffer_NotInOrder(t *testing.T) {
	start, end := activeWindow()
	offer, err := NewPercentageOffer("deal", "", uuid.New(), decimal.NewFromFloat(0.50), start, end)
	require.NoError(t, err)

	o := order.Create(uuid.New(), order.ShippingInfo{}, "USD")

	err = RetractOffer(o, offer, 1)
	assert.ErrorIs(t, err, ErrOfferNotInOrder)
	assert.Empty(t, o.LineItems())
}

func TestRetractOffer_TargetsOnlyTaggedLineItems(t *testing.T) {
	start, end := activeWindow()
	productID := uuid.New()
	offer, err := NewPercentageOffer("deal", "", productID, decimal.NewFromFloat(0.10), start, end)
	require.NoError(t, err)

	o := order.Create(uuid.New(), order.ShippingInfo{}, "USD")

	// plain product line items for the same product
	require.NoError(t, o.AddItems(productID, usd(t, "50.00"), 2, order.LineItemTypeProduct, nil))
	// offer line items
	require.NoError(t, ApplyOffer(o, offer, 2, lookupFrom(map[uuid.UUID]money.Money{productID: usd(t, "50.00")})))
	require.Len(t, o.LineItems(), 4)

	require.NoError(t, RetractOffer(o, offer, 2))

	items := o.LineItems()
	require.Len(t, items, 2)
	for _, li := range items {
		assert.Equal(t, order.LineItemTypeProduct, li.Type)
		assert.Nil(t, li.RelatedOfferID)
	}
	assert.False(t, o.HasOffer(offer.ID))
	assert.Equal(t, "100.00 USD", o.TotalPrice().String())
}

func TestRetractOffer_DesyncedBundleFailsWithoutReconciling(t *testing.T) {
	start, end := activeWindow()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	offer, err := NewBundleOffer("bundle", "", ids, decimal.NewFromFloat(0.10), start, end)
	require.NoError(t, err)

	prices := map[uuid.UUID]money.Money{
		ids[0]: usd(t, "10.00"),
		ids[1]: usd(t, "10.00"),
	}
	o := order.Create(uuid.New(), order.ShippingInfo{}, "USD")
	require.NoError(t, ApplyOffer(o, offer, 1, lookupFrom(prices)))

	// removing 2 when only 1 per product exists must fail on the first product
	err = RetractOffer(o, offer, 2)
	assert.ErrorIs(t, err, order.ErrExceedsAvailableQuantity)
	assert.True(t, o.HasOffer(offer.ID))
}
