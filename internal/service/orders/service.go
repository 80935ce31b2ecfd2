// Package orders is the use-case layer over the aggregates: it builds orders
// from carts against a catalog snapshot, moves stock, drives the order state
// machine and captures every raised event into the outbox. Each command runs
// in one transaction and is deduplicated by a caller-supplied request id.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/cart"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/catalog"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/event"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/order"
	"github.com/NawarAli1912/EStore.API-sub000/internal/errs"
	"github.com/NawarAli1912/EStore.API-sub000/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrEmptyCart            = errs.Validation("order.empty_cart", "cannot checkout an empty cart")
	ErrDuplicateUpdateEntry = errs.Validation("order.duplicate_update_entry", "an id appears more than once in the update request")
)

// Command names recorded on idempotent requests.
const (
	CommandCreateOrder    = "orders.create"
	CommandApproveOrder   = "orders.approve"
	CommandRejectOrder    = "orders.reject"
	CommandCancelOrder    = "orders.cancel"
	CommandUpdateOrder    = "orders.update"
	CommandUpdateShipping = "orders.update_shipping"
)

type Service struct {
	store    storage.Store
	log      *slog.Logger
	currency string
	now      func() time.Time
}

func NewService(store storage.Store, log *slog.Logger, currency string) *Service {
	return &Service{store: store, log: log, currency: currency, now: func() time.Time { return time.Now().UTC() }}
}

type CreateOrderRequest struct {
	RequestID  uuid.UUID
	CustomerID uuid.UUID
	Shipping   order.ShippingInfo
}

// CreateOrder turns the customer's cart into a priced pending order,
// reserving stock for every unit. Failures across the whole pass are
// accumulated; any failure aborts the transaction so neither stock nor the
// order is partially persisted. On success the cart is cleared.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	var created *order.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertIdempotentRequest(ctx, req.RequestID, CommandCreateOrder); err != nil {
			return err
		}

		c, err := tx.CartByCustomer(ctx, req.CustomerID)
		if errors.Is(err, storage.ErrCartNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if c.Empty() {
			return ErrEmptyCart
		}

		snap, err := s.snapshotForCart(ctx, tx, c)
		if err != nil {
			return err
		}

		o := order.Create(req.CustomerID, req.Shipping, s.currency)
		touched := make(map[uuid.UUID]*catalog.Product)

		var list errs.List
		for _, item := range c.Items() {
			switch item.Type {
			case cart.ItemTypeProduct:
				list.Add(s.addProductItem(o, snap, touched, item))
			case cart.ItemTypeOffer:
				list.Add(s.addOfferItem(o, snap, touched, item))
			default:
				return errs.Unexpected("order.unknown_cart_item_type", fmt.Sprintf("unknown cart item type %q", item.Type))
			}
		}
		if err := list.OrNil(); err != nil {
			return err
		}

		cartID := c.ID
		c.Clear()
		events := append(o.PendingEvents(), order.CartCheckedOut{
			CartID:     cartID,
			CustomerID: req.CustomerID,
			OrderID:    o.ID,
		})

		if err := s.persist(ctx, tx, o, touched, events); err != nil {
			return err
		}
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		o.ClearEvents()
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("order created", "order_id", created.ID, "customer_id", req.CustomerID,
		"total", created.TotalPrice().String(), "line_items", len(created.LineItems()))
	return created, nil
}

func (s *Service) addProductItem(o *order.Order, snap catalog.Snapshot, touched map[uuid.UUID]*catalog.Product, item cart.CartItem) error {
	p, ok := snap.Product(item.ItemID)
	if !ok {
		return errs.NotFound("order.product_not_found", fmt.Sprintf("product %s is not in the catalog", item.ItemID))
	}
	if err := p.DecreaseStock(item.Quantity); err != nil {
		return err
	}
	touched[p.ID] = p
	return o.AddItems(p.ID, p.Price, item.Quantity, order.LineItemTypeProduct, nil)
}

func (s *Service) addOfferItem(o *order.Order, snap catalog.Snapshot, touched map[uuid.UUID]*catalog.Product, item cart.CartItem) error {
	offer, ok := snap.Offer(item.ItemID)
	if !ok {
		return errs.NotFound("order.offer_not_found", fmt.Sprintf("offer %s is not in the catalog", item.ItemID))
	}
	if !offer.Eligible(s.now()) {
		return catalog.ErrOfferNotEligible
	}

	// reserve stock for every affected product before pricing anything
	var list errs.List
	for _, productID := range offer.AffectedProducts() {
		p, ok := snap.Product(productID)
		if !ok {
			list.Add(errs.NotFound("order.product_not_found", fmt.Sprintf("offer product %s is not in the catalog", productID)))
			continue
		}
		if err := p.DecreaseStock(item.Quantity); err != nil {
			list.Add(err)
			continue
		}
		touched[p.ID] = p
	}
	if err := list.OrNil(); err != nil {
		return err
	}

	return catalog.ApplyOffer(o, offer, item.Quantity, snap.PriceOf)
}

// snapshotForCart loads the catalog view one checkout works against: the
// cart's products and offers plus every product the offers price.
func (s *Service) snapshotForCart(ctx context.Context, tx storage.Tx, c *cart.Cart) (catalog.Snapshot, error) {
	var productIDs, offerIDs []uuid.UUID
	for _, item := range c.Items() {
		switch item.Type {
		case cart.ItemTypeProduct:
			productIDs = append(productIDs, item.ItemID)
		case cart.ItemTypeOffer:
			offerIDs = append(offerIDs, item.ItemID)
		}
	}
	return s.snapshot(ctx, tx, productIDs, offerIDs)
}

// snapshot loads offers first so bundle product ids can join the product
// fetch. Missing ids stay absent; the orchestration pass reports them.
func (s *Service) snapshot(ctx context.Context, tx storage.Tx, productIDs, offerIDs []uuid.UUID) (catalog.Snapshot, error) {
	offers, err := tx.Offers(ctx, offerIDs)
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("load offers: %w", err)
	}
	seen := make(map[uuid.UUID]struct{}, len(productIDs))
	allProductIDs := make([]uuid.UUID, 0, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			allProductIDs = append(allProductIDs, id)
		}
	}
	for _, offer := range offers {
		for _, id := range offer.AffectedProducts() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				allProductIDs = append(allProductIDs, id)
			}
		}
	}
	products, err := tx.Products(ctx, allProductIDs)
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("load products: %w", err)
	}
	snap := catalog.Snapshot{Products: products, Offers: offers}
	return snap, nil
}

// persist writes the order, the touched products and the sealed events in
// the surrounding transaction.
func (s *Service) persist(ctx context.Context, tx storage.Tx, o *order.Order, touched map[uuid.UUID]*catalog.Product, events []event.Event) error {
	if err := tx.SaveOrder(ctx, o); err != nil {
		return err
	}
	if len(touched) > 0 {
		products := make([]*catalog.Product, 0, len(touched))
		for _, p := range touched {
			products = append(products, p)
		}
		if err := tx.SaveProducts(ctx, products); err != nil {
			return err
		}
	}
	if len(events) == 0 {
		return nil
	}
	envelopes := make([]event.Envelope, 0, len(events))
	now := s.now()
	for _, ev := range events {
		env, err := event.Seal(ev, now)
		if err != nil {
			return err
		}
		envelopes = append(envelopes, env)
	}
	return tx.AppendOutbox(ctx, envelopes)
}
