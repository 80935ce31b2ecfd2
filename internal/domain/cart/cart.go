// Package cart holds the customer cart aggregate. A cart is owned 1:1 by a
// customer and is only mutated through AddItem/RemoveItem/Clear.
package cart

import (
	"sort"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/money"
	"github.com/NawarAli1912/EStore.API-sub000/internal/errs"
	"github.com/google/uuid"
)

var (
	ErrItemNotFound     = errs.NotFound("cart.item_not_found", "item is not in the cart")
	ErrNegativeQuantity = errs.Validation("cart.negative_quantity", "cannot remove more than the cart holds")
)

// ItemType tags what a cart entry refers to.
type ItemType string

const (
	ItemTypeProduct ItemType = "PRODUCT"
	ItemTypeOffer   ItemType = "OFFER"
)

// CartItem is one cart entry. Identity is (ItemID, Type); quantity never
// takes part in equality.
type CartItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	Type     ItemType  `json:"type"`
	Quantity int       `json:"quantity"`
}

func NewCartItem(itemID uuid.UUID, itemType ItemType, quantity int) (CartItem, error) {
	q, err := money.NewQuantity(quantity)
	if err != nil {
		return CartItem{}, err
	}
	return CartItem{ItemID: itemID, Type: itemType, Quantity: q.Int()}, nil
}

type itemKey struct {
	id       uuid.UUID
	itemType ItemType
}

type Cart struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	items      map[itemKey]CartItem
	UpdatedAt  time.Time
}

// New creates the empty cart that accompanies a new customer.
func New(customerID uuid.UUID) *Cart {
	return &Cart{
		ID:         uuid.New(),
		CustomerID: customerID,
		items:      make(map[itemKey]CartItem),
		UpdatedAt:  time.Now().UTC(),
	}
}

// Restore rebuilds a cart from persisted state.
func Restore(id, customerID uuid.UUID, items []CartItem, updatedAt time.Time) *Cart {
	c := &Cart{ID: id, CustomerID: customerID, items: make(map[itemKey]CartItem, len(items)), UpdatedAt: updatedAt}
	for _, item := range items {
		c.items[itemKey{item.ItemID, item.Type}] = item
	}
	return c
}

// AddItem merges quantities when an entry with the same identity exists,
// otherwise inserts the item. The item's quantity must be at least 1; the
// aggregate guards this itself so callers handing in raw structs cannot
// store a negative entry.
func (c *Cart) AddItem(item CartItem) error {
	if _, err := money.NewQuantity(item.Quantity); err != nil {
		return err
	}
	key := itemKey{item.ItemID, item.Type}
	if existing, ok := c.items[key]; ok {
		item.Quantity += existing.Quantity
	}
	c.items[key] = item
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveItem subtracts the item's quantity from the matching entry. Removing
// past zero is an error, not a clamp; removing to exactly zero deletes the
// entry. The removal quantity must be at least 1, a negative quantity would
// otherwise grow the entry.
func (c *Cart) RemoveItem(item CartItem) error {
	if _, err := money.NewQuantity(item.Quantity); err != nil {
		return err
	}
	key := itemKey{item.ItemID, item.Type}
	existing, ok := c.items[key]
	if !ok {
		return ErrItemNotFound
	}
	remaining := existing.Quantity - item.Quantity
	if remaining < 0 {
		return ErrNegativeQuantity
	}
	if remaining == 0 {
		delete(c.items, key)
	} else {
		existing.Quantity = remaining
		c.items[key] = existing
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// Clear empties the cart. Called after a successful checkout.
func (c *Cart) Clear() {
	c.items = make(map[itemKey]CartItem)
	c.UpdatedAt = time.Now().UTC()
}

func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Items returns the entries in a stable order (by id, products before offers
// on ties) so orchestration passes are deterministic.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID.String() < out[j].ItemID.String()
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Get returns the entry with the given identity, if present.
func (c *Cart) Get(itemID uuid.UUID, itemType ItemType) (CartItem, bool) {
	item, ok := c.items[itemKey{itemID, itemType}]
	return item, ok
}
