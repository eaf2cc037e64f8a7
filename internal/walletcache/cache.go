// Package walletcache caches wallet-selection query results. Plays
// with cache_wallets configured reuse a prior result for its TTL
// instead of re-running the query on every candidate.
package walletcache

import (
	"context"
	"time"
)

// Cache stores wallet lists keyed by the selection query text.
type Cache interface {
	// Get returns the cached wallet list and whether it was present.
	Get(ctx context.Context, query string) ([]string, bool, error)

	// Set stores the wallet list under the query for the given TTL.
	Set(ctx context.Context, query string, wallets []string, ttl time.Duration) error
}

// QueryRunner executes a wallet-selection query against its source of
// truth. Implementations live outside this package.
type QueryRunner interface {
	Run(ctx context.Context, query string) ([]string, error)
}
