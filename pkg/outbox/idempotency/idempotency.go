// Package idempotency dedupes Pub/Sub deliveries per consumer. Pub/Sub is
// at-least-once, so a consumer claims each event ID before acting on it.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store is the redis surface the dedupe needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Dedupe tracks handled event IDs for one consumer under
// so:idempotency:evt:processed:<consumer>:<event_id>.
type Dedupe struct {
	store Store
	scope string
	ttl   time.Duration
}

// New builds a Dedupe for consumer. A zero ttl keeps markers forever.
func New(store Store, consumer string, ttl time.Duration) (*Dedupe, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Dedupe{store: store, scope: "evt:processed:" + consumer, ttl: ttl}, nil
}

// Claim marks eventID as handled and reports whether this call was the first.
func (d *Dedupe) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("event id is required")
	}
	return d.store.SetNX(ctx, d.key(eventID), "1", d.ttl)
}

// Forget drops the marker so a redelivery is handled again.
func (d *Dedupe) Forget(ctx context.Context, eventID uuid.UUID) error {
	return d.store.Del(ctx, d.key(eventID))
}

func (d *Dedupe) key(eventID uuid.UUID) string {
	return d.store.IdempotencyKey(d.scope, eventID.String())
}
