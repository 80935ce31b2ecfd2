package order

import "github.com/google/uuid"

// Event type tags, the stable names subscribers key on.
const (
	EventOrderCreated   = "order.created"
	EventOrderApproved  = "order.approved"
	EventOrderRejected  = "order.rejected"
	EventOrderCancelled = "order.cancelled"
	EventOrderUpdated   = "order.updated"
	EventCartCheckedOut = "cart.checked_out"
)

type Created struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

func (e Created) EventType() string   { return EventOrderCreated }
func (e Created) AggregateID() string { return e.OrderID.String() }

type Approved struct {
	OrderID uuid.UUID `json:"order_id"`
}

func (e Approved) EventType() string   { return EventOrderApproved }
func (e Approved) AggregateID() string { return e.OrderID.String() }

type Rejected struct {
	OrderID uuid.UUID `json:"order_id"`
}

func (e Rejected) EventType() string   { return EventOrderRejected }
func (e Rejected) AggregateID() string { return e.OrderID.String() }

type Cancelled struct {
	OrderID uuid.UUID `json:"order_id"`
}

func (e Cancelled) EventType() string   { return EventOrderCancelled }
func (e Cancelled) AggregateID() string { return e.OrderID.String() }

type Updated struct {
	OrderID uuid.UUID `json:"order_id"`
}

func (e Updated) EventType() string   { return EventOrderUpdated }
func (e Updated) AggregateID() string { return e.OrderID.String() }

// CartCheckedOut is raised by the checkout pass once a cart became an order;
// cart-focused subscribers (cache invalidation and the like) key on it.
type CartCheckedOut struct {
	CartID     uuid.UUID `json:"cart_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	OrderID    uuid.UUID `json:"order_id"`
}

func (e CartCheckedOut) EventType() string   { return EventCartCheckedOut }
func (e CartCheckedOut) AggregateID() string { return e.OrderID.String() }
