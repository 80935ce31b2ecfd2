package catalog

import (
	"fmt"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/order"
	"github.com/NawarAli1912/EStore.API-sub000/internal/errs"
)

var (
	ErrOfferNotInOrder     = errs.Validation("offer.not_in_order", "offer is not part of the order")
	ErrOfferAlreadyInOrder = errs.Validation("offer.already_in_order", "offer is already part of the order")
)

// ApplyOffer is the addition strategy: it prices the offer through
// DiscountedPrices and emits qty line items per affected product, each tagged
// with the offer id, then records the offer on the order. A bundle with three
// products added with qty 2 therefore emits six line items. An offer already
// recorded on the order cannot be applied again; the requested-offer set
// guards both directions.
func ApplyOffer(o *order.Order, offer *Offer, qty int, priceOf PriceLookup) error {
	if o.HasOffer(offer.ID) {
		return ErrOfferAlreadyInOrder
	}
	prices, err := DiscountedPrices(offer, priceOf)
	if err != nil {
		return err
	}
	offerID := offer.ID
	for _, productID := range offer.AffectedProducts() {
		price, ok := prices[productID]
		if !ok {
			// DiscountedPrices guarantees the key; a miss here is a bug.
			return ErrNotInPriceLookup
		}
		if err := o.AddItems(productID, price, qty, order.LineItemTypeOffer, &offerID); err != nil {
			return err
		}
	}
	o.RecordOffer(offerID)
	return nil
}

// RetractOffer is the removal strategy: it removes qty line items per
// affected product, targeting only items tagged with this offer's id. Plain
// product items and other offers' items for the same product are untouched.
//
// Removal assumes every bundled product was added in lockstep with the same
// quantity. If a prior partial removal desynchronized per-product counts the
// first short product fails the call and the surrounding transaction aborts;
// nothing is silently reconciled.
func RetractOffer(o *order.Order, offer *Offer, qty int) error {
	if !o.HasOffer(offer.ID) {
		return ErrOfferNotInOrder
	}
	switch offer.Type {
	case OfferTypePercentage, OfferTypeBundle:
		offerID := offer.ID
		for _, productID := range offer.AffectedProducts() {
			if err := o.RemoveItems(productID, qty, &offerID); err != nil {
				return err
			}
		}
		o.ReleaseOffer(offerID)
		return nil
	default:
		return errs.Unexpected("offer.unknown_type", fmt.Sprintf("unknown offer type %q", offer.Type))
	}
}
