package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
)

const cartKeyPrefix = "pos:cart:"

// CartStore keeps POS carts in Redis. Every write refreshes the TTL, so an
// abandoned register session expires on its own.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore creates a cart store.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

// Get returns the session's cart, or an empty cart when none is stored.
func (s *CartStore) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	raw, err := s.client.Get(ctx, cartKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &domain.Cart{SessionID: sessionID, Lines: []domain.CartLine{}}, nil
		}
		return nil, fmt.Errorf("get cart %s: %w", sessionID, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", sessionID, err)
	}
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return &cart, nil
}

// Save replaces the session's cart.
func (s *CartStore) Save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", cart.SessionID, err)
	}
	if err := s.client.Set(ctx, cartKeyPrefix+cart.SessionID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart %s: %w", cart.SessionID, err)
	}
	return nil
}

// Delete removes the session's cart. Deleting a missing cart is not an error.
func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete cart %s: %w", sessionID, err)
	}
	return nil
}
