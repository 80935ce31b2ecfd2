// Package order holds the order aggregate root: priced line items, shipping
// info and the Pending/Approved/Rejected/Cancelled state machine. Once
// approved an order is immutable; line-item prices are historical facts.
package order

import (
	"sort"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/event"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/money"
	"github.com/NawarAli1912/EStore.API-sub000/internal/errs"
	"github.com/google/uuid"
)

var (
	ErrNotPending               = errs.Validation("order.not_pending", "operation is only valid on a pending order")
	ErrInvalidTransition        = errs.Validation("order.invalid_transition", "order status does not allow this transition")
	ErrExceedsAvailableQuantity = errs.Validation("order.exceeds_available_quantity", "order holds fewer matching line items than requested")
	ErrOfferLineItemTag         = errs.Unexpected("order.offer_line_item_tag", "related offer id must be set exactly when the line item type is offer")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

type LineItemType string

const (
	LineItemTypeProduct LineItemType = "PRODUCT"
	LineItemTypeOffer   LineItemType = "OFFER"
)

// LineItem is one unit of a product at the price captured when it was added.
// RelatedOfferID is set exactly when Type is offer.
type LineItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	Price          money.Money
	Type           LineItemType
	RelatedOfferID *uuid.UUID
}

func newLineItem(orderID, productID uuid.UUID, price money.Money, itemType LineItemType, relatedOfferID *uuid.UUID) (LineItem, error) {
	if (itemType == LineItemTypeOffer) != (relatedOfferID != nil) {
		return LineItem{}, ErrOfferLineItemTag
	}
	return LineItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		ProductID:      productID,
		Price:          price,
		Type:           itemType,
		RelatedOfferID: relatedOfferID,
	}, nil
}

func (li LineItem) matches(productID uuid.UUID, relatedOfferID *uuid.UUID) bool {
	if li.ProductID != productID {
		return false
	}
	if relatedOfferID == nil {
		return li.RelatedOfferID == nil
	}
	return li.RelatedOfferID != nil && *li.RelatedOfferID == *relatedOfferID
}

type ShippingInfo struct {
	ShippingCompany string
	CompanyLocation string
	PhoneNumber     string
}

type Order struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	ShippingInfo ShippingInfo
	Version      int // optimistic concurrency token
	CreatedAt    time.Time
	UpdatedAt    time.Time

	status          Status
	total           money.Money
	lineItems       []LineItem
	requestedOffers map[uuid.UUID]struct{}
	events          []event.Event
}

// Create starts a pending order with no line items and a zero total.
func Create(customerID uuid.UUID, shipping ShippingInfo, currency string) *Order {
	now := time.Now().UTC()
	o := &Order{
		ID:              uuid.New(),
		CustomerID:      customerID,
		ShippingInfo:    shipping,
		CreatedAt:       now,
		UpdatedAt:       now,
		status:          StatusPending,
		total:           money.Zero(currency),
		requestedOffers: make(map[uuid.UUID]struct{}),
	}
	o.raise(Created{OrderID: o.ID, CustomerID: customerID})
	return o
}

// Restore rebuilds an order from persisted state without raising events.
func Restore(id, customerID uuid.UUID, shipping ShippingInfo, status Status, total money.Money,
	lineItems []LineItem, requestedOffers []uuid.UUID, version int, createdAt, updatedAt time.Time) *Order {
	o := &Order{
		ID:              id,
		CustomerID:      customerID,
		ShippingInfo:    shipping,
		Version:         version,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
		status:          status,
		total:           total,
		lineItems:       append([]LineItem(nil), lineItems...),
		requestedOffers: make(map[uuid.UUID]struct{}, len(requestedOffers)),
	}
	for _, id := range requestedOffers {
		o.requestedOffers[id] = struct{}{}
	}
	return o
}

func (o *Order) Status() Status { return o.status }

// TotalPrice is maintained incrementally: every add/remove adjusts it by
// exactly the delta it introduced, never a recompute.
func (o *Order) TotalPrice() money.Money { return o.total }

func (o *Order) LineItems() []LineItem {
	return append([]LineItem(nil), o.lineItems...)
}

// RequestedOfferIDs lists the offers currently contributing line items.
func (o *Order) RequestedOfferIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(o.requestedOffers))
	for id := range o.requestedOffers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (o *Order) HasOffer(offerID uuid.UUID) bool {
	_, ok := o.requestedOffers[offerID]
	return ok
}

// RecordOffer marks an offer as contributing line items. Used by the offer
// application strategy after its line items were added.
func (o *Order) RecordOffer(offerID uuid.UUID) {
	o.requestedOffers[offerID] = struct{}{}
}

func (o *Order) ReleaseOffer(offerID uuid.UUID) {
	delete(o.requestedOffers, offerID)
}

// AddItems appends qty line items for the product at the given unit price and
// bumps the total by price x qty. Pending orders only; qty must be at least 1
// or the total would move without matching line items.
func (o *Order) AddItems(productID uuid.UUID, price money.Money, qty int, itemType LineItemType, relatedOfferID *uuid.UUID) error {
	if o.status != StatusPending {
		return ErrNotPending
	}
	if _, err := money.NewQuantity(qty); err != nil {
		return err
	}
	items := make([]LineItem, 0, qty)
	for i := 0; i < qty; i++ {
		item, err := newLineItem(o.ID, productID, price, itemType, relatedOfferID)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	total, err := o.total.Add(price.MulInt(qty))
	if err != nil {
		return err
	}
	o.lineItems = append(o.lineItems, items...)
	o.total = total
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveItems removes exactly qty line items matching (productID,
// relatedOfferID) and subtracts their sum from the total. Fails without
// mutating when fewer matching items exist.
func (o *Order) RemoveItems(productID uuid.UUID, qty int, relatedOfferID *uuid.UUID) error {
	if o.status != StatusPending {
		return ErrNotPending
	}
	if _, err := money.NewQuantity(qty); err != nil {
		return err
	}
	matching := 0
	for _, li := range o.lineItems {
		if li.matches(productID, relatedOfferID) {
			matching++
		}
	}
	if matching < qty {
		return ErrExceedsAvailableQuantity
	}

	removed := money.Zero(o.total.Currency)
	kept := make([]LineItem, 0, len(o.lineItems)-qty)
	toRemove := qty
	for _, li := range o.lineItems {
		if toRemove > 0 && li.matches(productID, relatedOfferID) {
			sum, err := removed.Add(li.Price)
			if err != nil {
				return err
			}
			removed = sum
			toRemove--
			continue
		}
		kept = append(kept, li)
	}
	total, err := o.total.Sub(removed)
	if err != nil {
		return err
	}
	o.lineItems = kept
	o.total = total
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// ItemCountsByProduct groups line items per product, the shape the stock
// return/re-reserve passes work on.
func (o *Order) ItemCountsByProduct() map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int)
	for _, li := range o.lineItems {
		counts[li.ProductID]++
	}
	return counts
}

// Approve flips to Approved. Valid from Pending and from Rejected; the
// Rejected path's stock re-verification is the orchestrator's job and must
// have happened before this call.
func (o *Order) Approve() error {
	if o.status != StatusPending && o.status != StatusRejected {
		return ErrInvalidTransition
	}
	o.status = StatusApproved
	o.UpdatedAt = time.Now().UTC()
	o.raise(Approved{OrderID: o.ID})
	return nil
}

// Reject flips to Rejected. Pending only; stock return is the orchestrator's
// job.
func (o *Order) Reject() error {
	if o.status != StatusPending {
		return ErrInvalidTransition
	}
	o.status = StatusRejected
	o.UpdatedAt = time.Now().UTC()
	o.raise(Rejected{OrderID: o.ID})
	return nil
}

func (o *Order) Cancel() error {
	if o.status != StatusPending {
		return ErrInvalidTransition
	}
	o.status = StatusCancelled
	o.UpdatedAt = time.Now().UTC()
	o.raise(Cancelled{OrderID: o.ID})
	return nil
}

func (o *Order) UpdateShippingInfo(shipping ShippingInfo) error {
	if o.status != StatusPending {
		return ErrNotPending
	}
	o.ShippingInfo = shipping
	o.UpdatedAt = time.Now().UTC()
	o.raise(Updated{OrderID: o.ID})
	return nil
}

// MarkUpdated raises a single Updated event after a bulk item update.
func (o *Order) MarkUpdated() {
	o.raise(Updated{OrderID: o.ID})
}

func (o *Order) raise(ev event.Event) {
	o.events = append(o.events, ev)
}

// PendingEvents returns the events raised since the aggregate was loaded.
// The orchestrator collects them and hands them to the store's commit.
func (o *Order) PendingEvents() []event.Event {
	return append([]event.Event(nil), o.events...)
}

func (o *Order) ClearEvents() {
	o.events = nil
}
