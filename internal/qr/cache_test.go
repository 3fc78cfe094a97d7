package qr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// failingStore simulates a backing-store outage.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Set(context.Context, string, string, time.Duration) error { return errStoreDown }
func (failingStore) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, errStoreDown
}
func (failingStore) Get(context.Context, string) (string, bool, error) { return "", false, errStoreDown }
func (failingStore) Delete(context.Context, string) error              { return errStoreDown }
func (failingStore) Keys(context.Context, string) ([]string, error)    { return nil, errStoreDown }
func (failingStore) Ping(context.Context) error                        { return errStoreDown }

func payloadExpiring(eventID string, ttl time.Duration) domain.QRPayload {
	now := time.Now()
	return domain.QRPayload{
		EventID:   eventID,
		IssuedAt:  now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
		Nonce:     "0123456789abcdef0123456789abcdef",
	}
}

func newTestCache() *Cache {
	return NewCache(NewMemoryStore(), zap.NewNop())
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache()
	payload := payloadExpiring("evt-1", time.Minute)

	require.True(t, cache.Put(ctx, "evt-1", "tok-1", payload, 60))

	entry, ok := cache.Get(ctx, "evt-1", "tok-1")
	require.True(t, ok)
	assert.Equal(t, payload, entry.QRPayload)
	assert.False(t, entry.IsUsed)
	assert.NotZero(t, entry.CachedAt)

	_, ok = cache.Get(ctx, "evt-1", "other-token")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "evt-2", "tok-1")
	assert.False(t, ok, "entries are keyed by event and token")
}

func TestMarkUsedAndIsUsed(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache()

	assert.False(t, cache.IsUsed(ctx, "tok-1"))
	require.True(t, cache.MarkUsed(ctx, "tok-1", 3600))
	assert.True(t, cache.IsUsed(ctx, "tok-1"))
	assert.False(t, cache.IsUsed(ctx, "tok-2"))
}

func TestTryConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache()

	assert.True(t, cache.TryConsume(ctx, "tok-1", 3600))
	assert.False(t, cache.TryConsume(ctx, "tok-1", 3600), "second consume must lose")
	assert.True(t, cache.IsUsed(ctx, "tok-1"))

	require.True(t, cache.ReleaseConsumed(ctx, "tok-1"))
	assert.True(t, cache.TryConsume(ctx, "tok-1", 3600), "released marker is consumable again")
}

func TestActiveForEventPicksLatestUnexpired(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache()

	old := payloadExpiring("evt-1", time.Minute)
	old.IssuedAt -= 10_000
	expired := payloadExpiring("evt-1", -time.Minute)
	newest := payloadExpiring("evt-1", time.Minute)

	require.True(t, cache.Put(ctx, "evt-1", "tok-old", old, 60))
	require.True(t, cache.Put(ctx, "evt-1", "tok-expired", expired, 60))
	require.True(t, cache.Put(ctx, "evt-1", "tok-new", newest, 60))
	require.True(t, cache.Put(ctx, "evt-2", "tok-other", payloadExpiring("evt-2", time.Minute), 60))

	entry, token, ok := cache.ActiveForEvent(ctx, "evt-1")
	require.True(t, ok)
	assert.Equal(t, "tok-new", token)
	assert.Equal(t, newest.IssuedAt, entry.IssuedAt)

	_, _, ok = cache.ActiveForEvent(ctx, "evt-3")
	assert.False(t, ok)
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache()

	require.True(t, cache.Put(ctx, "evt-1", "tok-live", payloadExpiring("evt-1", time.Minute), 60))
	require.True(t, cache.Put(ctx, "evt-1", "tok-dead-1", payloadExpiring("evt-1", -time.Second), 60))
	require.True(t, cache.Put(ctx, "evt-1", "tok-dead-2", payloadExpiring("evt-1", -time.Minute), 60))

	assert.Equal(t, 2, cache.CleanupExpired(ctx, "evt-1"))
	assert.Equal(t, 0, cache.CleanupExpired(ctx, "evt-1"))

	_, ok := cache.Get(ctx, "evt-1", "tok-live")
	assert.True(t, ok, "live entry survives cleanup")
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache()

	empty := cache.Stats(ctx, "evt-1")
	assert.Equal(t, domain.QRStats{HitRatio: 1}, empty)

	require.True(t, cache.Put(ctx, "evt-1", "tok-a", payloadExpiring("evt-1", time.Minute), 60))
	require.True(t, cache.Put(ctx, "evt-1", "tok-b", payloadExpiring("evt-1", time.Minute), 60))
	require.True(t, cache.Put(ctx, "evt-1", "tok-c", payloadExpiring("evt-1", -time.Minute), 60))

	stats := cache.Stats(ctx, "evt-1")
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.Expired)
	assert.InDelta(t, 2.0/3.0, stats.HitRatio, 1e-9)
}

func TestStoreOutageDegradesToSafeDefaults(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(failingStore{}, zap.NewNop())

	assert.False(t, cache.Put(ctx, "evt-1", "tok-1", payloadExpiring("evt-1", time.Minute), 60))

	_, ok := cache.Get(ctx, "evt-1", "tok-1")
	assert.False(t, ok, "presence checks fail closed")

	assert.False(t, cache.IsUsed(ctx, "tok-1"), "used check fails open")
	assert.False(t, cache.MarkUsed(ctx, "tok-1", 3600))
	assert.False(t, cache.TryConsume(ctx, "tok-1", 3600))
	assert.Equal(t, 0, cache.CleanupExpired(ctx, "evt-1"))

	stats := cache.Stats(ctx, "evt-1")
	assert.Zero(t, stats.Total)

	_, _, ok = cache.ActiveForEvent(ctx, "evt-1")
	assert.False(t, ok)

	assert.Error(t, cache.Ping(ctx))
}

func TestTTLEvictionHidesEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cache := NewCache(store, zap.NewNop())

	base := time.Now()
	store.now = func() time.Time { return base }
	require.True(t, cache.Put(ctx, "evt-1", "tok-1", payloadExpiring("evt-1", time.Second), 1))

	store.now = func() time.Time { return base.Add(2 * time.Second) }
	_, ok := cache.Get(ctx, "evt-1", "tok-1")
	assert.False(t, ok, "TTL eviction must read as absence")
}
