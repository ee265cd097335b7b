package shared

import (
	"context"
	"time"
)

// IdempotencyStore records keys that have already been claimed so repeated
// deliveries or concurrent workers can skip work that is already done or
// underway. Each claim carries an owner token; only the owner may release it.
type IdempotencyStore interface {
	// Claim takes key for ttl.
	// Returns the owner token and true if the key was newly claimed, or an
	// empty token and false if it was already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (string, bool, error)

	// IsProcessed checks if a key is currently held
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim before its TTL expires. A claim that has expired
	// and been taken by another owner is left alone.
	Release(ctx context.Context, key, token string) error

	// Close closes the store and releases resources
	Close() error
}
