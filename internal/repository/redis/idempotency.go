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

const checkoutKeyPrefix = "checkout:idem:"

const (
	statePending = "pending"
	stateDone    = "done"
)

// ErrCheckoutInProgress means another request holding the same key has not
// finished yet.
var ErrCheckoutInProgress = errors.New("checkout with this idempotency key is in progress")

// ErrKeyReused means the key was first used for a different request.
var ErrKeyReused = errors.New("idempotency key was used for a different request")

type checkoutRecord struct {
	State       string       `json:"state"`
	Fingerprint string       `json:"fingerprint"`
	Sale        *domain.Sale `json:"sale,omitempty"`
}

// CheckoutIdempotencyStore remembers finished checkouts by client-supplied
// key so a retried request gets the original receipt instead of a second sale.
type CheckoutIdempotencyStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewCheckoutIdempotencyStore creates a store keeping results for ttl. An
// in-flight key is held for pendingTTL, which must exceed the longest a
// checkout can run.
func NewCheckoutIdempotencyStore(client *redis.Client, ttl, pendingTTL time.Duration) *CheckoutIdempotencyStore {
	return &CheckoutIdempotencyStore{client: client, ttl: ttl, pendingTTL: pendingTTL}
}

// Reserve claims key for the request identified by fingerprint. It returns
// the stored sale when the same request already completed. A nil sale and nil
// error means the caller owns the key and must Complete or Release it.
func (s *CheckoutIdempotencyStore) Reserve(ctx context.Context, key, fingerprint string) (*domain.Sale, error) {
	pending, err := json.Marshal(checkoutRecord{State: statePending, Fingerprint: fingerprint})
	if err != nil {
		return nil, fmt.Errorf("encode idempotency record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, checkoutKeyPrefix+key, pending, s.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, checkoutKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET.
			return s.Reserve(ctx, key, fingerprint)
		}
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var rec checkoutRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	switch {
	case rec.Fingerprint != fingerprint:
		return nil, ErrKeyReused
	case rec.State != stateDone || rec.Sale == nil:
		return nil, ErrCheckoutInProgress
	default:
		return rec.Sale, nil
	}
}

// Complete stores the sale under key.
func (s *CheckoutIdempotencyStore) Complete(ctx context.Context, key, fingerprint string, sale *domain.Sale) error {
	raw, err := json.Marshal(checkoutRecord{State: stateDone, Fingerprint: fingerprint, Sale: sale})
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, checkoutKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store checkout result: %w", err)
	}
	return nil
}

// Release drops a reservation after a failed checkout so the client can retry.
func (s *CheckoutIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, checkoutKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
