package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storeorders/pkg/redis"
)

type brokenStore struct{ *redis.Client }

func (brokenStore) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func newDedupe(t *testing.T, consumer string) (*Dedupe, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	d, err := New(redis.NewFromRedis(raw), consumer, time.Hour)
	require.NoError(t, err)
	return d, mr
}

func TestClaimOnlyOnce(t *testing.T) {
	ctx := context.Background()
	d, mr := newDedupe(t, "order-notifications")
	eventID := uuid.New()

	first, err := d.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, again)

	key := "so:idempotency:evt:processed:order-notifications:" + eventID.String()
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))
}

func TestConsumersAreIndependent(t *testing.T) {
	ctx := context.Background()
	d, mr := newDedupe(t, "order-notifications")
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	other, err := New(redis.NewFromRedis(raw), "audit", time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	ok, err := d.Claim(ctx, eventID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = other.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestForgetAllowsReprocessing(t *testing.T) {
	ctx := context.Background()
	d, mr := newDedupe(t, "order-notifications")
	eventID := uuid.New()

	_, err := d.Claim(ctx, eventID)
	require.NoError(t, err)
	require.NoError(t, d.Forget(ctx, eventID))

	ok, err := d.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	ok, err = d.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, ok, "marker expires after ttl")
}

func TestClaimValidation(t *testing.T) {
	d, _ := newDedupe(t, "order-notifications")
	_, err := d.Claim(context.Background(), uuid.Nil)
	assert.Error(t, err)

	broken, err := New(brokenStore{&redis.Client{}}, "order-notifications", time.Hour)
	require.NoError(t, err)
	_, err = broken.Claim(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "connection refused")
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, "c", time.Hour)
	assert.Error(t, err)
	_, err = New(brokenStore{&redis.Client{}}, "", time.Hour)
	assert.Error(t, err)
	_, err = New(brokenStore{&redis.Client{}}, "c", -time.Second)
	assert.Error(t, err)
}
