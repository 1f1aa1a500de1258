package cache

import (
	"context"
	"time"
)

// IdempotencyStore tracks request keys that have already been handled.
// Clients send an Idempotency-Key header on mutating ledger calls; a
// retry with the same key is rejected instead of double-recording a
// bill or payment.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL. Returns true
	// if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether a key has already been processed.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the store.
	Close() error
}
