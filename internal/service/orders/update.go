package orders

import (
	"context"
	"fmt"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/catalog"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/order"
	"github.com/NawarAli1912/EStore.API-sub000/internal/errs"
	"github.com/NawarAli1912/EStore.API-sub000/internal/storage"
	"github.com/google/uuid"
)

type ItemQuantity struct {
	ID       uuid.UUID
	Quantity int
}

// UpdateOrderRequest bulk-adds and bulk-removes products and offers on a
// pending order in one command.
type UpdateOrderRequest struct {
	RequestID uuid.UUID
	OrderID   uuid.UUID

	AddProducts    []ItemQuantity
	DeleteProducts []ItemQuantity
	AddOffers      []ItemQuantity
	DeleteOffers   []ItemQuantity
}

func (r UpdateOrderRequest) validate() error {
	var list errs.List
	for _, set := range [][]ItemQuantity{r.AddProducts, r.DeleteProducts, r.AddOffers, r.DeleteOffers} {
		for _, entry := range set {
			if entry.Quantity < 1 {
				list.Add(errs.Validation("order.non_positive_quantity",
					fmt.Sprintf("quantity for %s must be at least 1", entry.ID)))
			}
		}
	}
	if overlaps(r.AddProducts, r.DeleteProducts) || overlaps(r.AddOffers, r.DeleteOffers) {
		list.Add(ErrDuplicateUpdateEntry)
	}
	if repeats(r.AddOffers) || repeats(r.DeleteOffers) {
		list.Add(ErrDuplicateUpdateEntry)
	}
	return list.OrNil()
}

func overlaps(add, del []ItemQuantity) bool {
	ids := make(map[uuid.UUID]struct{}, len(add))
	for _, entry := range add {
		ids[entry.ID] = struct{}{}
	}
	for _, entry := range del {
		if _, ok := ids[entry.ID]; ok {
			return true
		}
	}
	return false
}

// repeats reports whether an id occurs twice within one set. Products may be
// listed once and merged by quantity; offers are all-or-nothing, a repeated
// offer id is always a caller bug.
func repeats(set []ItemQuantity) bool {
	seen := make(map[uuid.UUID]struct{}, len(set))
	for _, entry := range set {
		if _, ok := seen[entry.ID]; ok {
			return true
		}
		seen[entry.ID] = struct{}{}
	}
	return false
}

// UpdateOrder applies the request's adds and deletes in a single pass. Every
// product and offer touched, directly or transitively through an offer, is
// validated against the catalog before anything mutates; any failure rolls
// the whole command back.
func (s *Service) UpdateOrder(ctx context.Context, req UpdateOrderRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertIdempotentRequest(ctx, req.RequestID, CommandUpdateOrder); err != nil {
			return err
		}
		o, err := tx.Order(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if o.Status() != order.StatusPending {
			return order.ErrNotPending
		}

		snap, err := s.snapshot(ctx, tx, ids(req.AddProducts, req.DeleteProducts), ids(req.AddOffers, req.DeleteOffers))
		if err != nil {
			return err
		}
		if err := validateAgainstSnapshot(req, snap); err != nil {
			return err
		}

		touched := make(map[uuid.UUID]*catalog.Product)

		// deletes first so returned stock is visible to the adds
		for _, entry := range req.DeleteProducts {
			if err := o.RemoveItems(entry.ID, entry.Quantity, nil); err != nil {
				return err
			}
			p, _ := snap.Product(entry.ID)
			p.IncreaseStock(entry.Quantity)
			touched[p.ID] = p
		}
		for _, entry := range req.DeleteOffers {
			offer, _ := snap.Offer(entry.ID)
			if err := catalog.RetractOffer(o, offer, entry.Quantity); err != nil {
				return err
			}
			for _, productID := range offer.AffectedProducts() {
				p, _ := snap.Product(productID)
				p.IncreaseStock(entry.Quantity)
				touched[p.ID] = p
			}
		}

		for _, entry := range req.AddProducts {
			p, _ := snap.Product(entry.ID)
			if err := p.DecreaseStock(entry.Quantity); err != nil {
				return err
			}
			touched[p.ID] = p
			if err := o.AddItems(p.ID, p.Price, entry.Quantity, order.LineItemTypeProduct, nil); err != nil {
				return err
			}
		}
		for _, entry := range req.AddOffers {
			offer, _ := snap.Offer(entry.ID)
			if !offer.Eligible(s.now()) {
				return catalog.ErrOfferNotEligible
			}
			for _, productID := range offer.AffectedProducts() {
				p, _ := snap.Product(productID)
				if err := p.DecreaseStock(entry.Quantity); err != nil {
					return err
				}
				touched[p.ID] = p
			}
			if err := catalog.ApplyOffer(o, offer, entry.Quantity, snap.PriceOf); err != nil {
				return err
			}
		}

		o.MarkUpdated()
		if err := s.persist(ctx, tx, o, touched, o.PendingEvents()); err != nil {
			return err
		}
		o.ClearEvents()
		s.log.Info("order updated", "order_id", req.OrderID,
			"added_products", len(req.AddProducts), "removed_products", len(req.DeleteProducts),
			"added_offers", len(req.AddOffers), "removed_offers", len(req.DeleteOffers))
		return nil
	})
}

func ids(sets ...[]ItemQuantity) []uuid.UUID {
	var out []uuid.UUID
	for _, set := range sets {
		for _, entry := range set {
			out = append(out, entry.ID)
		}
	}
	return out
}

// validateAgainstSnapshot checks existence of every id the update touches,
// including products reached only through an offer, before any mutation.
func validateAgainstSnapshot(req UpdateOrderRequest, snap catalog.Snapshot) error {
	var list errs.List
	for _, entry := range append(append([]ItemQuantity(nil), req.AddProducts...), req.DeleteProducts...) {
		if _, ok := snap.Product(entry.ID); !ok {
			list.Add(errs.NotFound("order.product_not_found", fmt.Sprintf("product %s is not in the catalog", entry.ID)))
		}
	}
	for _, entry := range append(append([]ItemQuantity(nil), req.AddOffers...), req.DeleteOffers...) {
		offer, ok := snap.Offer(entry.ID)
		if !ok {
			list.Add(errs.NotFound("order.offer_not_found", fmt.Sprintf("offer %s is not in the catalog", entry.ID)))
			continue
		}
		for _, productID := range offer.AffectedProducts() {
			if _, ok := snap.Product(productID); !ok {
				list.Add(errs.NotFound("order.product_not_found",
					fmt.Sprintf("offer %s prices product %s which is not in the catalog", entry.ID, productID)))
			}
		}
	}
	return list.OrNil()
}
