package catalog

import (
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/money"
	"github.com/google/uuid"
)

// Snapshot is the catalog view one command works against: built once at the
// start of orchestration from the lookup port and passed explicitly through
// every call. Missing ids are simply absent. Never shared across commands.
type Snapshot struct {
	Products map[uuid.UUID]*Product
	Offers   map[uuid.UUID]*Offer
}

func NewSnapshot(products []*Product, offers []*Offer) Snapshot {
	s := Snapshot{
		Products: make(map[uuid.UUID]*Product, len(products)),
		Offers:   make(map[uuid.UUID]*Offer, len(offers)),
	}
	for _, p := range products {
		s.Products[p.ID] = p
	}
	for _, o := range offers {
		s.Offers[o.ID] = o
	}
	return s
}

func (s Snapshot) Product(id uuid.UUID) (*Product, bool) {
	p, ok := s.Products[id]
	return p, ok
}

func (s Snapshot) Offer(id uuid.UUID) (*Offer, bool) {
	o, ok := s.Offers[id]
	return o, ok
}

// PriceOf adapts the snapshot to the pricing strategy's lookup shape.
func (s Snapshot) PriceOf(id uuid.UUID) (money.Money, bool) {
	p, ok := s.Products[id]
	if !ok {
		return money.Money{}, false
	}
	return p.Price, true
}
