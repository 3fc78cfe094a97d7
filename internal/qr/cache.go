package qr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/domain"
)

const (
	entryKeyPrefix = "qr:"
	usedKeyPrefix  = "used:"
)

// usedMarker is the record written once when a token is redeemed. Presence is
// the only signal ever consulted.
type usedMarker struct {
	Token  string `json:"token"`
	UsedAt int64  `json:"usedAt"`
}

// Cache owns every read and write under the qr: and used: key prefixes.
// Caching is a performance/security layer: every method swallows backing-store
// errors into a safe default instead of propagating, so a store outage
// degrades the request path rather than crashing it.
type Cache struct {
	store  TTLStore
	logger *zap.Logger
}

// NewCache wraps the given TTL store.
func NewCache(store TTLStore, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

func entryKey(eventID, token string) string {
	return fmt.Sprintf("%s%s:%s", entryKeyPrefix, eventID, token)
}

func usedKey(token string) string {
	return usedKeyPrefix + token
}

// Put stores the cache entry for a freshly minted token with TTL equal to the
// token's expiration window. The store's TTL eviction is the primary expiry
// enforcement mechanism.
func (c *Cache) Put(ctx context.Context, eventID, token string, payload domain.QRPayload, ttlSeconds int) bool {
	entry := domain.QRCacheEntry{
		QRPayload: payload,
		CachedAt:  time.Now().UnixMilli(),
		IsUsed:    false,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("marshal cache entry", zap.Error(err))
		return false
	}
	if err := c.store.Set(ctx, entryKey(eventID, token), string(data), time.Duration(ttlSeconds)*time.Second); err != nil {
		c.logger.Warn("cache put failed", zap.String("event_id", eventID), zap.Error(err))
		return false
	}
	return true
}

// Get returns the cache entry for (eventID, token), or ok=false when absent,
// evicted, or the store errored. Absence and eviction are indistinguishable.
func (c *Cache) Get(ctx context.Context, eventID, token string) (*domain.QRCacheEntry, bool) {
	val, found, err := c.store.Get(ctx, entryKey(eventID, token))
	if err != nil {
		c.logger.Warn("cache get failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	var entry domain.QRCacheEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		c.logger.Warn("unmarshal cache entry", zap.Error(err))
		return nil, false
	}
	return &entry, true
}

// MarkUsed writes the consumed marker. Its TTL outlives the token so replay is
// blocked even slightly after the entry itself has expired.
func (c *Cache) MarkUsed(ctx context.Context, token string, ttlSeconds int) bool {
	data, err := json.Marshal(usedMarker{Token: token, UsedAt: time.Now().UnixMilli()})
	if err != nil {
		return false
	}
	if err := c.store.Set(ctx, usedKey(token), string(data), time.Duration(ttlSeconds)*time.Second); err != nil {
		c.logger.Warn("mark used failed", zap.Error(err))
		return false
	}
	return true
}

// TryConsume atomically creates the consumed marker if absent. Its result is
// the authoritative single-use decision: of any number of concurrent callers
// presenting the same token, exactly one sees true.
func (c *Cache) TryConsume(ctx context.Context, token string, ttlSeconds int) bool {
	data, err := json.Marshal(usedMarker{Token: token, UsedAt: time.Now().UnixMilli()})
	if err != nil {
		return false
	}
	ok, err := c.store.SetNX(ctx, usedKey(token), string(data), time.Duration(ttlSeconds)*time.Second)
	if err != nil {
		c.logger.Warn("try consume failed", zap.Error(err))
		return false
	}
	return ok
}

// ReleaseConsumed removes the consumed marker, used to roll back a consume
// whose follow-up persistence failed.
func (c *Cache) ReleaseConsumed(ctx context.Context, token string) bool {
	if err := c.store.Delete(ctx, usedKey(token)); err != nil {
		c.logger.Warn("release consumed failed", zap.Error(err))
		return false
	}
	return true
}

// IsUsed reports whether the consumed marker exists. It fails open: a store
// error reads as "not used", because the validation path independently checks
// the signed payload's expiry, bounding the damage of a false negative.
func (c *Cache) IsUsed(ctx context.Context, token string) bool {
	_, found, err := c.store.Get(ctx, usedKey(token))
	if err != nil {
		c.logger.Warn("is used check failed", zap.Error(err))
		return false
	}
	return found
}

// ActiveForEvent scans the event's entries and returns the unexpired one with
// the greatest issuedAt. Operational tooling only; the validation path never
// calls it.
func (c *Cache) ActiveForEvent(ctx context.Context, eventID string) (*domain.QRCacheEntry, string, bool) {
	keys, err := c.store.Keys(ctx, entryKeyPrefix+eventID+":*")
	if err != nil {
		c.logger.Warn("scan event entries failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, "", false
	}

	now := time.Now().UnixMilli()
	var (
		latest    *domain.QRCacheEntry
		latestKey string
	)
	for _, key := range keys {
		val, found, err := c.store.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		var entry domain.QRCacheEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			continue
		}
		if entry.ExpiresAt <= now {
			continue
		}
		if latest == nil || entry.IssuedAt > latest.IssuedAt {
			copied := entry
			latest = &copied
			latestKey = key
		}
	}
	if latest == nil {
		return nil, "", false
	}
	token := latestKey[len(entryKeyPrefix+eventID+":"):]
	return latest, token, true
}

// CleanupExpired deletes entries whose payload expiry has passed. The store's
// own TTL reclaims them eventually; this frees keys proactively.
func (c *Cache) CleanupExpired(ctx context.Context, eventID string) int {
	keys, err := c.store.Keys(ctx, entryKeyPrefix+eventID+":*")
	if err != nil {
		c.logger.Warn("cleanup scan failed", zap.String("event_id", eventID), zap.Error(err))
		return 0
	}

	now := time.Now().UnixMilli()
	removed := 0
	for _, key := range keys {
		val, found, err := c.store.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		var entry domain.QRCacheEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			continue
		}
		if entry.ExpiresAt > now {
			continue
		}
		if err := c.store.Delete(ctx, key); err == nil {
			removed++
		}
	}
	return removed
}

// Stats aggregates the event's current cache contents for diagnostics.
func (c *Cache) Stats(ctx context.Context, eventID string) domain.QRStats {
	stats := domain.QRStats{HitRatio: 1}
	keys, err := c.store.Keys(ctx, entryKeyPrefix+eventID+":*")
	if err != nil {
		c.logger.Warn("stats scan failed", zap.String("event_id", eventID), zap.Error(err))
		return stats
	}

	now := time.Now().UnixMilli()
	for _, key := range keys {
		val, found, err := c.store.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		var entry domain.QRCacheEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			continue
		}
		stats.Total++
		if entry.ExpiresAt > now {
			stats.Active++
		} else {
			stats.Expired++
		}
	}
	if stats.Total > 0 {
		stats.HitRatio = float64(stats.Active) / float64(stats.Total)
	}
	return stats
}

// Ping verifies the backing store is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
