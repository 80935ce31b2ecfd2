// Package storage defines the persistence ports the engine runs against and
// ships two implementations: an in-memory store and a postgres store. Every
// command executes inside one unit of work; the cart, order, product, outbox
// and idempotency writes of a command commit together or not at all.
package storage

import (
	"context"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/cart"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/catalog"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/event"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/order"
	"github.com/NawarAli1912/EStore.API-sub000/internal/errs"
	"github.com/google/uuid"
)

var (
	ErrCartNotFound     = errs.NotFound("storage.cart_not_found", "cart not found")
	ErrOrderNotFound    = errs.NotFound("storage.order_not_found", "order not found")
	ErrDuplicateRequest = errs.Conflict("request.already_exists", "request id was already processed")
	ErrVersionConflict  = errs.Conflict("storage.version_conflict", "concurrent modification, retry the command")
)

// IdempotentRequest dedupes command execution by a caller-supplied id.
type IdempotentRequest struct {
	ID          uuid.UUID
	CommandName string
	CreatedAt   time.Time
}

// Tx is the read-modify-write surface of one transaction. Catalog getters
// return maps keyed by id; missing ids are simply absent, never an error.
type Tx interface {
	CartByCustomer(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error)
	SaveCart(ctx context.Context, c *cart.Cart) error

	Order(ctx context.Context, id uuid.UUID) (*order.Order, error)
	SaveOrder(ctx context.Context, o *order.Order) error

	Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error)
	SaveProducts(ctx context.Context, products []*catalog.Product) error

	Offers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Offer, error)
	SaveOffers(ctx context.Context, offers []*catalog.Offer) error

	// AppendOutbox stages serialized events; they become durable with the
	// same commit as the business change that raised them.
	AppendOutbox(ctx context.Context, envelopes []event.Envelope) error

	// InsertIdempotentRequest fails with ErrDuplicateRequest when the id was
	// seen before; the caller must not run the command body on failure.
	InsertIdempotentRequest(ctx context.Context, id uuid.UUID, commandName string) error
}

// Store opens units of work and serves the read paths that do not mutate.
type Store interface {
	// WithinTx runs fn inside one transaction. Any error from fn rolls the
	// whole transaction back; nil commits it.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CartByCustomer(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error)
	Order(ctx context.Context, id uuid.UUID) (*order.Order, error)

	// RefreshOfferStatuses re-derives every offer's status from its date
	// window and reports how many changed. Run by the relay worker's sweeper.
	RefreshOfferStatuses(ctx context.Context, now time.Time) (int, error)
}
