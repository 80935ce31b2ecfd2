// Package carts is the cart command/query service: mutations run through the
// aggregate inside a transaction, reads go through a redis read-through
// cache guarded by singleflight.
package carts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/cart"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/event"
	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/order"
	"github.com/NawarAli1912/EStore.API-sub000/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// View is the serializable read shape of a cart.
type View struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Items      []cart.CartItem `json:"items"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func viewOf(c *cart.Cart) *View {
	return &View{ID: c.ID, CustomerID: c.CustomerID, Items: c.Items(), UpdatedAt: c.UpdatedAt}
}

type Service struct {
	store storage.Store
	cache Cache
	log   *slog.Logger
	sfg   singleflight.Group // prevents cache stampede
}

func NewService(store storage.Store, cache Cache, log *slog.Logger) *Service {
	return &Service{store: store, cache: cache, log: log}
}

// GetCart returns the customer's cart view. A customer without a cart row
// reads as an empty cart. Concurrent misses for the same customer collapse
// into one store read.
func (s *Service) GetCart(ctx context.Context, customerID uuid.UUID) (*View, error) {
	v, err, _ := s.sfg.Do(customerID.String(), func() (interface{}, error) {
		view, err := s.cache.Get(ctx, customerID)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("cart cache get failed", "error", err) // degrade to the store
		}

		c, err := s.store.CartByCustomer(ctx, customerID)
		if errors.Is(err, storage.ErrCartNotFound) {
			return &View{CustomerID: customerID}, nil
		}
		if err != nil {
			return nil, err
		}

		view = viewOf(c)
		go func() {
			if err := s.cache.Set(context.Background(), customerID, view); err != nil {
				s.log.Warn("cart cache set failed", "error", err)
			}
		}()
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*View), nil
}

// AddItem merges the item into the customer's cart, creating the cart on
// first use.
func (s *Service) AddItem(ctx context.Context, customerID uuid.UUID, item cart.CartItem) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		c, err := tx.CartByCustomer(ctx, customerID)
		if errors.Is(err, storage.ErrCartNotFound) {
			c = cart.New(customerID)
		} else if err != nil {
			return err
		}
		if err := c.AddItem(item); err != nil {
			return err
		}
		return tx.SaveCart(ctx, c)
	})
	if err != nil {
		return err
	}
	s.invalidate(customerID)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, customerID uuid.UUID, item cart.CartItem) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		c, err := tx.CartByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if err := c.RemoveItem(item); err != nil {
			return err
		}
		return tx.SaveCart(ctx, c)
	})
	if err != nil {
		return err
	}
	s.invalidate(customerID)
	return nil
}

func (s *Service) ClearCart(ctx context.Context, customerID uuid.UUID) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		c, err := tx.CartByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		c.Clear()
		return tx.SaveCart(ctx, c)
	})
	if err != nil {
		return err
	}
	s.invalidate(customerID)
	return nil
}

func (s *Service) invalidate(customerID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, customerID); err != nil {
		s.log.Warn("cart cache invalidate failed", "error", err)
	}
}

// CheckoutInvalidator returns an outbox handler that drops the cached cart
// view once its cart became an order. Redelivery is harmless: deleting an
// absent key is a no-op.
func (s *Service) CheckoutInvalidator() func(ctx context.Context, env event.Envelope) error {
	return func(ctx context.Context, env event.Envelope) error {
		var payload order.CartCheckedOut
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return err
		}
		return s.cache.Delete(ctx, payload.CustomerID)
	}
}
