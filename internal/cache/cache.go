// Package cache provides the process-wide permission cache adapters.
//
// A Store holds serialized permission snapshots keyed by (user, context).
// Stores are best-effort: a miss, a lost write, or a backend outage is never
// an error, because every entry is validated against the global permissions
// version before use and recomputed when stale.
package cache

import "context"

// Store is the cross-request permission cache contract.
// Implementations must be safe for concurrent use. Last writer wins per key;
// stale writes are rendered harmless by the version stamp inside the value.
type Store interface {
	// Fetch returns the value stored under key, if any.
	Fetch(ctx context.Context, key string) ([]byte, bool)

	// Store saves value under key, replacing any previous value.
	Store(ctx context.Context, key string, value []byte)
}

// Noop is a Store that never holds anything, for deployments that run with
// the request-scoped cache only.
type Noop struct{}

func (Noop) Fetch(ctx context.Context, key string) ([]byte, bool) { return nil, false }

func (Noop) Store(ctx context.Context, key string, value []byte) {}

var _ Store = Noop{}
