package catalog

import (
	"fmt"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/money"
	"github.com/NawarAli1912/EStore.API-sub000/internal/errs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotInPriceLookup means the price lookup was missing a product the offer
// prices. Existence is checked before pricing runs, so hitting this is a
// programmer error, not user input.
var ErrNotInPriceLookup = errs.Unexpected("offer.not_in_price_lookup", "offer product missing from price lookup")

// PriceLookup resolves a product's base price. The second return mirrors map
// access: false when the product is unknown.
type PriceLookup func(productID uuid.UUID) (money.Money, bool)

// DiscountedPrices is the pure pricing strategy: it maps an offer and a price
// lookup to the discounted unit price of every affected product. The result
// always has an entry per affected product.
func DiscountedPrices(offer *Offer, priceOf PriceLookup) (map[uuid.UUID]money.Money, error) {
	factor := decimal.NewFromInt(1).Sub(offer.Discount)

	switch offer.Type {
	case OfferTypePercentage, OfferTypeBundle:
		affected := offer.AffectedProducts()
		prices := make(map[uuid.UUID]money.Money, len(affected))
		for _, productID := range affected {
			base, ok := priceOf(productID)
			if !ok {
				return nil, ErrNotInPriceLookup
			}
			prices[productID] = base.MulDecimal(factor)
		}
		return prices, nil
	default:
		return nil, errs.Unexpected("offer.unknown_type", fmt.Sprintf("unknown offer type %q", offer.Type))
	}
}
