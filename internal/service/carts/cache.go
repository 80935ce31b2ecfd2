package carts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache holds read-side cart views keyed by customer id.
type Cache interface {
	Get(ctx context.Context, customerID uuid.UUID) (*View, error)
	Set(ctx context.Context, customerID uuid.UUID, view *View) error
	Delete(ctx context.Context, customerID uuid.UUID) error
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, customerID uuid.UUID) (*View, error) {
	data, err := r.client.Get(ctx, cacheKey(customerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var view View
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("unmarshal cart view failed: %w", err)
	}
	return &view, nil
}

func (r *RedisCache) Set(ctx context.Context, customerID uuid.UUID, view *View) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal cart view failed: %w", err)
	}

	// jitter spreads expirations so a burst of misses cannot line up
	ttl := r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	if err := r.client.Set(ctx, cacheKey(customerID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, customerID uuid.UUID) error {
	if err := r.client.Del(ctx, cacheKey(customerID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(customerID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", customerID)
}
