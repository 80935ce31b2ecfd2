package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/cart"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/catalog"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/event"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/money"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/order"
	"github.com/NawarAli1912/EStore.API-sub000/internal/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct(t *testing.T, price string, qty int) *catalog.Product {
	t.Helper()
	m, err := money.FromString(price, "USD")
	require.NoError(t, err)
	return catalog.NewProduct("widget", "", m, qty)
}

func TestMemoryStore_WithinTx_DiscardsBufferedWritesOnError(t *testing.T) {
	store := NewMemoryStore()
	p := testProduct(t, "10.00", 5)
	customerID := uuid.New()
	boom := errors.New("boom")

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.SaveProducts(ctx, []*catalog.Product{p}))
		require.NoError(t, tx.SaveCart(ctx, cart.New(customerID)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		products, err := tx.Products(ctx, []uuid.UUID{p.ID})
		require.NoError(t, err)
		assert.Empty(t, products)
		return nil
	}))
	_, err = store.CartByCustomer(context.Background(), customerID)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestMemoryStore_SaveOrder_VersionConflict(t *testing.T) {
	store := NewMemoryStore()
	o := order.Create(uuid.New(), order.ShippingInfo{}, "USD")
	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.SaveOrder(ctx, o)
	}))

	load := func() *order.Order {
		loaded, err := store.Order(context.Background(), o.ID)
		require.NoError(t, err)
		return loaded
	}
	first, second := load(), load()

	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.SaveOrder(ctx, first)
	}))

	// the second copy is now stale; its commit must fail and drop every
	// buffered write with it
	customerID := uuid.New()
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.SaveCart(ctx, cart.New(customerID)))
		return tx.SaveOrder(ctx, second)
	})
	assert.ErrorIs(t, err, ErrVersionConflict)
	_, err = store.CartByCustomer(context.Background(), customerID)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestMemoryStore_SaveProducts_VersionConflict(t *testing.T) {
	store := NewMemoryStore()
	p := testProduct(t, "10.00", 5)
	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.SaveProducts(ctx, []*catalog.Product{p})
	}))

	stale := *p // version 0, the store holds version 1
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.SaveProducts(ctx, []*catalog.Product{&stale})
	})
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestMemoryStore_InsertIdempotentRequest(t *testing.T) {
	store := NewMemoryStore()
	requestID := uuid.New()

	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.InsertIdempotentRequest(ctx, requestID, "orders.create")
	}))

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.InsertIdempotentRequest(ctx, requestID, "orders.create")
	})
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	// duplicate within one transaction is caught too
	other := uuid.New()
	err = store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.InsertIdempotentRequest(ctx, other, "orders.update"))
		return tx.InsertIdempotentRequest(ctx, other, "orders.update")
	})
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestMemoryStore_OutboxFlow(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UTC()

	var envelopes []event.Envelope
	for i := 0; i < 3; i++ {
		env, err := event.Seal(order.Created{OrderID: uuid.New(), CustomerID: uuid.New()}, now)
		require.NoError(t, err)
		envelopes = append(envelopes, env)
	}
	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.AppendOutbox(ctx, envelopes)
	}))

	pending, err := store.FetchPending(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(1), pending[0].ID)
	assert.Equal(t, int64(2), pending[1].ID)

	done := pending[0]
	done.Done = true
	done.ProcessedAt = &now
	require.NoError(t, store.SaveResults(context.Background(), []outbox.Message{done}))

	pending, err = store.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(2), pending[0].ID)
	assert.Equal(t, int64(3), pending[1].ID)
}
