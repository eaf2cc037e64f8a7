package walletcache

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/observability"
)

// Resolver runs a play's wallet-selection query through the cache.
// Cache errors degrade to a direct query, never to a failed resolve.
type Resolver struct {
	runner  QueryRunner
	cache   Cache
	metrics *observability.Metrics
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMetrics records cache hits and misses.
func WithMetrics(m *observability.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver wires a resolver. cache may be nil to disable caching
// entirely.
func NewResolver(runner QueryRunner, cache Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{runner: runner, cache: cache}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the wallets selected by the play's query, serving
// from cache when the play has cache_wallets configured.
func (r *Resolver) Resolve(ctx context.Context, play *domain.Play) ([]string, error) {
	useCache := r.cache != nil && play.CacheWallets.Enabled() && play.WalletQuery != ""

	if useCache {
		wallets, hit, err := r.cache.Get(ctx, play.WalletQuery)
		if err != nil {
			log.Warn().Err(err).Int64("play", play.PlayID).Msg("wallet cache read failed")
		} else if hit {
			if r.metrics != nil {
				r.metrics.WalletCacheHits.Inc()
			}
			return wallets, nil
		}
		// A failed read counts as a miss: the query runs either way.
		if r.metrics != nil {
			r.metrics.WalletCacheMisses.Inc()
		}
	}

	wallets, err := r.runner.Run(ctx, play.WalletQuery)
	if err != nil {
		return nil, err
	}

	if useCache {
		ttl := time.Duration(play.CacheWallets.TTLSeconds) * time.Second
		if err := r.cache.Set(ctx, play.WalletQuery, wallets, ttl); err != nil {
			log.Warn().Err(err).Int64("play", play.PlayID).Msg("wallet cache write failed")
		}
	}
	return wallets, nil
}
