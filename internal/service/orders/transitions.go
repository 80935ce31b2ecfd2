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

// ApproveOrder approves a pending or rejected order. The rejected path
// returned its stock when it was rejected, so approval re-verifies and
// re-decrements stock for every distinct product; if any product is no
// longer active or short, nothing is touched. Pending approval deliberately
// does not re-check stock: it was reserved at cart-to-order time.
func (s *Service) ApproveOrder(ctx context.Context, requestID, orderID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertIdempotentRequest(ctx, requestID, CommandApproveOrder); err != nil {
			return err
		}
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}

		touched := make(map[uuid.UUID]*catalog.Product)
		if o.Status() == order.StatusRejected {
			if err := s.reserveForReapproval(ctx, tx, o, touched); err != nil {
				return err
			}
		}
		if err := o.Approve(); err != nil {
			return err
		}
		if err := s.persist(ctx, tx, o, touched, o.PendingEvents()); err != nil {
			return err
		}
		o.ClearEvents()
		s.log.Info("order approved", "order_id", orderID)
		return nil
	})
}

// reserveForReapproval re-verifies every distinct product of a rejected
// order, then decrements. Validation is a separate pass so a late failure
// cannot leave a partial reservation.
func (s *Service) reserveForReapproval(ctx context.Context, tx storage.Tx, o *order.Order, touched map[uuid.UUID]*catalog.Product) error {
	counts := o.ItemCountsByProduct()
	ids := make([]uuid.UUID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	products, err := tx.Products(ctx, ids)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	var list errs.List
	for id, n := range counts {
		p, ok := products[id]
		if !ok {
			list.Add(errs.NotFound("order.product_not_found", fmt.Sprintf("product %s is not in the catalog", id)))
			continue
		}
		if !p.Active() {
			list.Add(catalog.ErrProductInactive)
			continue
		}
		if p.Quantity < n {
			list.Add(catalog.ErrInsufficientStock)
		}
	}
	if err := list.OrNil(); err != nil {
		return err
	}

	for id, n := range counts {
		p := products[id]
		if err := p.DecreaseStock(n); err != nil {
			return err // verified above; a failure here is a race the tx retries
		}
		touched[id] = p
	}
	return nil
}

// RejectOrder rejects a pending order and returns its stock, one unit per
// line item grouped by product.
func (s *Service) RejectOrder(ctx context.Context, requestID, orderID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertIdempotentRequest(ctx, requestID, CommandRejectOrder); err != nil {
			return err
		}
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}

		counts := o.ItemCountsByProduct()
		ids := make([]uuid.UUID, 0, len(counts))
		for id := range counts {
			ids = append(ids, id)
		}
		products, err := tx.Products(ctx, ids)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}

		touched := make(map[uuid.UUID]*catalog.Product)
		for id, n := range counts {
			p, ok := products[id]
			if !ok {
				// the product was sold, it must exist; a miss is a data bug
				return errs.Unexpected("order.product_not_found", fmt.Sprintf("product %s missing while returning stock", id))
			}
			p.IncreaseStock(n)
			touched[id] = p
		}

		if err := o.Reject(); err != nil {
			return err
		}
		if err := s.persist(ctx, tx, o, touched, o.PendingEvents()); err != nil {
			return err
		}
		o.ClearEvents()
		s.log.Info("order rejected", "order_id", orderID)
		return nil
	})
}

// CancelOrder cancels a pending order.
func (s *Service) CancelOrder(ctx context.Context, requestID, orderID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertIdempotentRequest(ctx, requestID, CommandCancelOrder); err != nil {
			return err
		}
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.Cancel(); err != nil {
			return err
		}
		if err := s.persist(ctx, tx, o, nil, o.PendingEvents()); err != nil {
			return err
		}
		o.ClearEvents()
		s.log.Info("order cancelled", "order_id", orderID)
		return nil
	})
}

// UpdateShipping replaces the shipping info of a pending order.
func (s *Service) UpdateShipping(ctx context.Context, requestID, orderID uuid.UUID, shipping order.ShippingInfo) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertIdempotentRequest(ctx, requestID, CommandUpdateShipping); err != nil {
			return err
		}
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.UpdateShippingInfo(shipping); err != nil {
			return err
		}
		if err := s.persist(ctx, tx, o, nil, o.PendingEvents()); err != nil {
			return err
		}
		o.ClearEvents()
		return nil
	})
}
