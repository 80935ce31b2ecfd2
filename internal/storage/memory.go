package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/cart"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/catalog"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/event"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/order"
	"github.com/NawarAli1912/EStore.API-sub000/internal/outbox"
	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store. Writes made inside a unit
// of work are buffered on the tx and applied under one lock at commit, so a
// failed pass leaves nothing behind.
type MemoryStore struct {
	mu           sync.RWMutex
	carts        map[uuid.UUID]*cart.Cart // keyed by customer id
	orders       map[uuid.UUID]*order.Order
	products     map[uuid.UUID]*catalog.Product
	offers       map[uuid.UUID]*catalog.Offer
	requests     map[uuid.UUID]IdempotentRequest
	messages     []outbox.Message
	nextOutboxID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:        make(map[uuid.UUID]*cart.Cart),
		orders:       make(map[uuid.UUID]*order.Order),
		products:     make(map[uuid.UUID]*catalog.Product),
		offers:       make(map[uuid.UUID]*catalog.Offer),
		requests:     make(map[uuid.UUID]IdempotentRequest),
		nextOutboxID: 1,
	}
}

func copyCart(c *cart.Cart) *cart.Cart {
	return cart.Restore(c.ID, c.CustomerID, c.Items(), c.UpdatedAt)
}

func copyOrder(o *order.Order) *order.Order {
	return order.Restore(o.ID, o.CustomerID, o.ShippingInfo, o.Status(), o.TotalPrice(),
		o.LineItems(), o.RequestedOfferIDs(), o.Version, o.CreatedAt, o.UpdatedAt)
}

func copyProduct(p *catalog.Product) *catalog.Product {
	cp := *p
	return &cp
}

func copyOffer(o *catalog.Offer) *catalog.Offer {
	cp := *o
	cp.ProductIDs = append([]uuid.UUID(nil), o.ProductIDs...)
	return &cp
}

type memTx struct {
	s *MemoryStore

	carts    []*cart.Cart
	orders   []*order.Order
	products []*catalog.Product
	offers   []*catalog.Offer
	outbox   []outbox.Message
	requests []IdempotentRequest
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		return err // buffered writes are simply dropped
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// version checks before any write so the commit stays all-or-nothing
	for _, o := range tx.orders {
		if existing, ok := s.orders[o.ID]; ok && existing.Version != o.Version {
			return ErrVersionConflict
		}
	}
	for _, p := range tx.products {
		if existing, ok := s.products[p.ID]; ok && existing.Version != p.Version {
			return ErrVersionConflict
		}
	}
	for _, req := range tx.requests {
		if _, ok := s.requests[req.ID]; ok {
			return ErrDuplicateRequest
		}
	}

	for _, c := range tx.carts {
		s.carts[c.CustomerID] = copyCart(c)
	}
	for _, o := range tx.orders {
		cp := copyOrder(o)
		cp.Version++
		s.orders[o.ID] = cp
	}
	for _, p := range tx.products {
		cp := copyProduct(p)
		cp.Version++
		s.products[p.ID] = cp
	}
	for _, o := range tx.offers {
		s.offers[o.ID] = copyOffer(o)
	}
	for _, req := range tx.requests {
		s.requests[req.ID] = req
	}
	for _, msg := range tx.outbox {
		msg.ID = s.nextOutboxID
		s.nextOutboxID++
		s.messages = append(s.messages, msg)
	}
	return nil
}

func (tx *memTx) CartByCustomer(_ context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	return tx.s.cartByCustomer(customerID)
}

func (tx *memTx) SaveCart(_ context.Context, c *cart.Cart) error {
	tx.carts = append(tx.carts, copyCart(c))
	return nil
}

func (tx *memTx) Order(_ context.Context, id uuid.UUID) (*order.Order, error) {
	return tx.s.orderByID(id)
}

func (tx *memTx) SaveOrder(_ context.Context, o *order.Order) error {
	tx.orders = append(tx.orders, copyOrder(o))
	return nil
}

func (tx *memTx) Products(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	out := make(map[uuid.UUID]*catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := tx.s.products[id]; ok {
			out[id] = copyProduct(p)
		}
	}
	return out, nil
}

func (tx *memTx) SaveProducts(_ context.Context, products []*catalog.Product) error {
	for _, p := range products {
		tx.products = append(tx.products, copyProduct(p))
	}
	return nil
}

func (tx *memTx) Offers(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Offer, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	out := make(map[uuid.UUID]*catalog.Offer, len(ids))
	for _, id := range ids {
		if o, ok := tx.s.offers[id]; ok {
			out[id] = copyOffer(o)
		}
	}
	return out, nil
}

func (tx *memTx) SaveOffers(_ context.Context, offers []*catalog.Offer) error {
	for _, o := range offers {
		tx.offers = append(tx.offers, copyOffer(o))
	}
	return nil
}

func (tx *memTx) AppendOutbox(_ context.Context, envelopes []event.Envelope) error {
	for _, env := range envelopes {
		content, err := env.Encode()
		if err != nil {
			return err
		}
		tx.outbox = append(tx.outbox, outbox.Message{
			Type:       env.Type,
			Content:    content,
			OccurredAt: env.OccurredAt,
		})
	}
	return nil
}

func (tx *memTx) InsertIdempotentRequest(_ context.Context, id uuid.UUID, commandName string) error {
	tx.s.mu.RLock()
	_, seen := tx.s.requests[id]
	tx.s.mu.RUnlock()
	if seen {
		return ErrDuplicateRequest
	}
	for _, req := range tx.requests {
		if req.ID == id {
			return ErrDuplicateRequest
		}
	}
	tx.requests = append(tx.requests, IdempotentRequest{ID: id, CommandName: commandName, CreatedAt: time.Now().UTC()})
	return nil
}

func (s *MemoryStore) cartByCustomer(customerID uuid.UUID) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[customerID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return copyCart(c), nil
}

func (s *MemoryStore) CartByCustomer(_ context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	return s.cartByCustomer(customerID)
}

func (s *MemoryStore) orderByID(id uuid.UUID) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (s *MemoryStore) Order(_ context.Context, id uuid.UUID) (*order.Order, error) {
	return s.orderByID(id)
}

func (s *MemoryStore) RefreshOfferStatuses(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, o := range s.offers {
		if o.RefreshStatus(now) {
			changed++
		}
	}
	return changed, nil
}

// FetchPending implements outbox.Store: done = false rows, oldest first.
func (s *MemoryStore) FetchPending(_ context.Context, limit int) ([]outbox.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []outbox.Message
	for _, msg := range s.messages {
		if !msg.Done {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveResults implements outbox.Store: persists a relay run's row updates.
func (s *MemoryStore) SaveResults(_ context.Context, messages []outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, updated := range messages {
		for i := range s.messages {
			if s.messages[i].ID == updated.ID {
				s.messages[i] = updated
				break
			}
		}
	}
	return nil
}

// Messages returns a copy of every outbox row, newest last. Test helper.
func (s *MemoryStore) Messages() []outbox.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Message(nil), s.messages...)
}
