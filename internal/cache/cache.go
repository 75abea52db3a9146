// Package cache provides the best-effort TTL result cache shared by
// independent queries. Failures are part of the contract, not exceptions: a
// broken or unreachable store reads as a miss and writes as a no-op, so the
// pipeline stays correct with the cache entirely absent, only slower.
package cache

import (
	"context"
	"time"
)

// DefaultTTL matches the reference deployment's one-hour result lifetime.
const DefaultTTL = time.Hour

// Cache is a key-value store with per-entry expiry. Implementations never
// return errors; Get answers (nil, false) on any failure and SetWithExpiry
// silently drops the write. Entries expire only by TTL; there is no explicit
// eviction. Concurrent use from independent queries is safe and
// last-writer-wins.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	SetWithExpiry(ctx context.Context, key string, ttl time.Duration, value []byte)
}
