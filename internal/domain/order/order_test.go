package order

import (
	"testing"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/money"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(t *testing.T, amount string) money.Money {
	t.Helper()
	m, err := money.FromString(amount, "USD")
	require.NoError(t, err)
	return m
}

// requireTotalInvariant asserts the core pricing invariant: the incremental
// total always equals the sum of line-item prices.
func requireTotalInvariant(t *testing.T, o *Order) {
	t.Helper()
	sum := money.Zero("USD")
	for _, li := range o.LineItems() {
		next, err := sum.Add(li.Price)
		require.NoError(t, err)
		sum = next
	}
	require.True(t, o.TotalPrice().Equal(sum),
		"total %s != sum of line items %s", o.TotalPrice(), sum)
}

func TestCreate_StartsPendingAndEmpty(t *testing.T) {
	customerID := uuid.New()
	o := Create(customerID, ShippingInfo{ShippingCompany: "DHL"}, "USD")

	assert.Equal(t, StatusPending, o.Status())
	assert.True(t, o.TotalPrice().IsZero())
	assert.Empty(t, o.LineItems())
	assert.Equal(t, customerID, o.CustomerID)

	events := o.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderCreated, events[0].EventType())
}

func TestAddItems_AppendsAndBumpsTotal(t *testing.T) {
	o := Create(uuid.New(), ShippingInfo{}, "USD")
	productID := uuid.New()

	require.NoError(t, o.AddItems(productID, usd(t, "99.00"), 3, LineItemTypeProduct, nil))

	assert.Len(t, o.LineItems(), 3)
	assert.Equal(t, "297.00 USD", o.TotalPrice().String())
	requireTotalInvariant(t, o)
}

func TestAddItems_RejectsNonPositiveQuantity(t *testing.T) {
	o := Create(uuid.New(), ShippingInfo{}, "USD")
	productID := uuid.New()

	err := o.AddItems(productID, usd(t, "10.00"), 0, LineItemTypeProduct, nil)
	assert.ErrorIs(t, err, money.ErrNonPositiveQuantity)
	err = o.AddItems(productID, usd(t, "10.00"), -5, LineItemTypeProduct, nil)
	assert.ErrorIs(t, err, money.ErrNonPositiveQuantity)

	assert.Empty(t, o.LineItems())
	assert.True(t, o.TotalPrice().IsZero())
	requireTotalInvariant(t, o)
}

func TestRemoveItems_RejectsNonPositiveQuantity(t *testing.T) {
	o := Create(uuid.New(), ShippingInfo{}, "USD")
	productID := uuid.New()
	require.NoError(t, o.AddItems(productID, usd(t, "10.00"), 2, LineItemTypeProduct, nil))

	err := o.RemoveItems(productID, -3, nil)
	assert.ErrorIs(t, err, money.ErrNonPositiveQuantity)

	assert.Len(t, o.LineItems(), 2)
	assert.Equal(t, "20.00 USD", o.TotalPrice().String())
	requireTotalInvariant(t, o)
}

func TestAddItems_OfferTagInvariant(t *testing.T) {
	o := Create(uuid.New(), ShippingInfo{}, "USD")

	// offer type without a related offer id
	err := o.AddItems(uuid.New(), usd(t, "10.00"), 1, LineItemTypeOffer, nil)
	assert.ErrorIs(t, err, ErrOfferLineItemTag)

	// product type with a related offer id
	offerID := uuid.New()
	err = o.AddItems(uuid.New(), usd(t, "10.00"), 1, LineItemTypeProduct, &offerID)
	assert.ErrorIs(t, err, ErrOfferLineItemTag)

	assert.Empty(t, o.LineItems())
	requireTotalInvariant(t, o)
}

func TestRemoveItems_RemovesExactlyQty(t *testing.T) {
	o := Create(uuid.New(), ShippingInfo{}, "USD")
	productID := uuid.New()
	require.NoError(t, o.AddItems(productID, usd(t, "10.00"), 5, LineItemTypeProduct, nil))

	require.NoError(t, o.RemoveItems(productID, 2, nil))

	assert.Len(t, o.LineItems(), 3)
	assert.Equal(t, "30.00 USD", o.TotalPrice().String())
	requireTotalInvariant(t, o)
}

func TestRemoveItems_ExceedsAvailable(t *testing.T) {
	o := Create(uuid.New(), ShippingInfo{}, "USD")
	productID := uuid.New()
	require.NoError(t, o.AddItems(productID, usd(t, "10.00"), 2, LineItemTypeProduct, nil))

	err := o.RemoveItems(productID, 3, nil)
	assert.ErrorIs(t, err, ErrExceedsAvailableQuantity)
	assert.Len(t, o.LineItems(), 2)
	requireTotalInvariant(t, o)
}

func TestRemoveItems_DistinguishesOfferTags(t *testing.T) {
	o := Create(uuid.New(), ShippingInfo{}, "USD")
	productID := uuid.New()
	offerID := uuid.New()
	require.NoError(t, o.AddItems(productID, usd(t, "20.00"), 2, LineItemTypeProduct, nil))
	require.NoError(t, o.AddItems(productID, usd(t, "18.00"), 2, LineItemTypeOffer, &offerID))

	// removing by offer tag leaves plain product items alone
	require.NoError(t, o.RemoveItems(productID, 2, &offerID))
	items := o.LineItems()
	require.Len(t, items, 2)
	for _, li := range items {
		assert.Equal(t, LineItemTypeProduct, li.Type)
	}
	assert.Equal(t, "40.00 USD", o.TotalPrice().String())
	requireTotalInvariant(t, o)

	// and untagged removal does not touch a different offer's items
	otherOffer := uuid.New()
	err := o.RemoveItems(productID, 2, &otherOffer)
	assert.ErrorIs(t, err, ErrExceedsAvailableQuantity)
}

func TestStateMachine_Transitions(t *testing.T) {
	t.Run("pending to approved", func(t *testing.T) {
		o := Create(uuid.New(), ShippingInfo{}, "USD")
		require.NoError(t, o.Approve())
		assert.Equal(t, StatusApproved, o.Status())
	})

	t.Run("pending to rejected to approved", func(t *testing.T) {
		o := Create(uuid.New(), ShippingInfo{}, "USD")
		require.NoError(t, o.Reject())
		assert.Equal(t, StatusRejected, o.Status())
		require.NoError(t, o.Approve())
		assert.Equal(t, StatusApproved, o.Status())
	})

	t.Run("approved is terminal", func(t *testing.T) {
		o := Create(uuid.New(), ShippingInfo{}, "USD")
		require.NoError(t, o.Approve())
		assert.ErrorIs(t, o.Reject(), ErrInvalidTransition)
		assert.ErrorIs(t, o.Cancel(), ErrInvalidTransition)
		assert.ErrorIs(t, o.Approve(), ErrInvalidTransition)
	})

	t.Run("cancel only from pending", func(t *testing.T) {
		o := Create(uuid.New(), ShippingInfo{}, "USD")
		require.NoError(t, o.Cancel())
		assert.Equal(t, StatusCancelled, o.Status())

		o2 := Create(uuid.New(), ShippingInfo{}, "USD")
		require.NoError(t, o2.Reject())
		assert.ErrorIs(t, o2.Cancel(), ErrInvalidTransition)
	})
}

func TestMutationsRequirePending(t *testing.T) {
	o := Create(uuid.New(), ShippingInfo{}, "USD")
	productID := uuid.New()
	require.NoError(t, o.AddItems(productID, usd(t, "10.00"), 1, LineItemTypeProduct, nil))
	require.NoError(t, o.Approve())

	assert.ErrorIs(t, o.AddItems(productID, usd(t, "10.00"), 1, LineItemTypeProduct, nil), ErrNotPending)
	assert.ErrorIs(t, o.RemoveItems(productID, 1, nil), ErrNotPending)
	assert.ErrorIs(t, o.UpdateShippingInfo(ShippingInfo{ShippingCompany: "UPS"}), ErrNotPending)
}

func TestItemCountsByProduct(t *testing.T) {
	o := Create(uuid.New(), ShippingInfo{}, "USD")
	p1, p2 := uuid.New(), uuid.New()
	offerID := uuid.New()
	require.NoError(t, o.AddItems(p1, usd(t, "10.00"), 3, LineItemTypeProduct, nil))
	require.NoError(t, o.AddItems(p1, usd(t, "9.00"), 1, LineItemTypeOffer, &offerID))
	require.NoError(t, o.AddItems(p2, usd(t, "5.00"), 2, LineItemTypeProduct, nil))

	counts := o.ItemCountsByProduct()
	assert.Equal(t, 4, counts[p1])
	assert.Equal(t, 2, counts[p2])
}

func TestPendingEvents_CollectedAndCleared(t *testing.T) {
	o := Create(uuid.New(), ShippingInfo{}, "USD")
	require.NoError(t, o.Approve())

	events := o.PendingEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventOrderCreated, events[0].EventType())
	assert.Equal(t, EventOrderApproved, events[1].EventType())

	o.ClearEvents()
	assert.Empty(t, o.PendingEvents())
}

func TestRestore_DoesNotRaiseEvents(t *testing.T) {
	src := Create(uuid.New(), ShippingInfo{}, "USD")
	require.NoError(t, src.AddItems(uuid.New(), usd(t, "10.00"), 1, LineItemTypeProduct, nil))

	restored := Restore(src.ID, src.CustomerID, src.ShippingInfo, src.Status(),
		src.TotalPrice(), src.LineItems(), src.RequestedOfferIDs(), 3, src.CreatedAt, src.UpdatedAt)

	assert.Empty(t, restored.PendingEvents())
	assert.Equal(t, 3, restored.Version)
	assert.True(t, restored.TotalPrice().Equal(src.TotalPrice()))
	requireTotalInvariant(t, restored)
}
