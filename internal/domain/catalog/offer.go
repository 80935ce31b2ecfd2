package catalog

import (
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/errs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDiscount   = errs.Validation("offer.invalid_discount", "discount must be in (0, 1]")
	ErrPercentageProduct = errs.Validation("offer.percentage_product", "percentage offer needs exactly one product")
	ErrBundleProducts    = errs.Validation("offer.bundle_products", "bundle offer needs at least two products")
	ErrOfferNotEligible  = errs.Validation("offer.not_eligible", "offer is not published or has expired")
)

// OfferType is a closed tagged union. Adding a kind means extending this
// enum and the switches in pricing.go and apply.go.
type OfferType string

const (
	OfferTypePercentage OfferType = "PERCENTAGE"
	OfferTypeBundle     OfferType = "BUNDLE"
)

type OfferStatus string

const (
	OfferStatusDraft     OfferStatus = "DRAFT"
	OfferStatusPublished OfferStatus = "PUBLISHED"
	OfferStatusExpired   OfferStatus = "EXPIRED"
)

// Offer is one promotional offer. ProductID is set for percentage offers,
// ProductIDs for bundles; Discount applies uniformly to every priced product.
type Offer struct {
	ID          uuid.UUID
	Name        string
	Description string
	Type        OfferType
	Status      OfferStatus
	StartDate   time.Time
	EndDate     time.Time
	ProductID   uuid.UUID
	ProductIDs  []uuid.UUID
	Discount    decimal.Decimal
}

func validDiscount(discount decimal.Decimal) bool {
	return discount.GreaterThan(decimal.Zero) && discount.LessThanOrEqual(decimal.NewFromInt(1))
}

// NewPercentageOffer builds a single-product discount offer. Status is
// derived from the date window at creation.
func NewPercentageOffer(name, description string, productID uuid.UUID, discount decimal.Decimal, start, end time.Time) (*Offer, error) {
	if !validDiscount(discount) {
		return nil, ErrInvalidDiscount
	}
	if productID == uuid.Nil {
		return nil, ErrPercentageProduct
	}
	o := &Offer{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Type:        OfferTypePercentage,
		StartDate:   start,
		EndDate:     end,
		ProductID:   productID,
		Discount:    discount,
	}
	o.Status = o.StatusFor(time.Now().UTC())
	return o, nil
}

// NewBundleOffer builds a bundle offer over at least two products, applying
// the same discount to every bundled product's price.
func NewBundleOffer(name, description string, productIDs []uuid.UUID, discount decimal.Decimal, start, end time.Time) (*Offer, error) {
	if !validDiscount(discount) {
		return nil, ErrInvalidDiscount
	}
	if len(productIDs) < 2 {
		return nil, ErrBundleProducts
	}
	o := &Offer{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Type:        OfferTypeBundle,
		StartDate:   start,
		EndDate:     end,
		ProductIDs:  append([]uuid.UUID(nil), productIDs...),
		Discount:    discount,
	}
	o.Status = o.StatusFor(time.Now().UTC())
	return o, nil
}

// AffectedProducts lists every product the offer prices, regardless of type.
func (o *Offer) AffectedProducts() []uuid.UUID {
	switch o.Type {
	case OfferTypePercentage:
		return []uuid.UUID{o.ProductID}
	case OfferTypeBundle:
		return append([]uuid.UUID(nil), o.ProductIDs...)
	default:
		return nil
	}
}

// StatusFor derives the status from the date window relative to now.
// An expired offer stays addressable for historical orders but is no longer
// eligible for new carts or orders.
func (o *Offer) StatusFor(now time.Time) OfferStatus {
	if now.After(o.EndDate) {
		return OfferStatusExpired
	}
	if now.Before(o.StartDate) {
		return OfferStatusDraft
	}
	return OfferStatusPublished
}

// RefreshStatus re-derives the status; the relay worker runs this on a
// schedule. Returns true when the status changed.
func (o *Offer) RefreshStatus(now time.Time) bool {
	next := o.StatusFor(now)
	if next == o.Status {
		return false
	}
	o.Status = next
	return true
}

func (o *Offer) Eligible(now time.Time) bool {
	return o.StatusFor(now) == OfferStatusPublished
}
