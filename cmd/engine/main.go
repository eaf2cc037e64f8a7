// Package main runs the live wallet-follow engine: it subscribes to the
// market-data feed, admits trade candidates against their plays, and
// tracks open positions to exit.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wallet-follow-engine/internal/admission"
	"wallet-follow-engine/internal/config"
	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/engine"
	"wallet-follow-engine/internal/features"
	"wallet-follow-engine/internal/filter"
	"wallet-follow-engine/internal/observability"
	"wallet-follow-engine/internal/pricefeed"
	"wallet-follow-engine/internal/storage"
	chstore "wallet-follow-engine/internal/storage/clickhouse"
	"wallet-follow-engine/internal/storage/migrations"
	pgstore "wallet-follow-engine/internal/storage/postgres"
	"wallet-follow-engine/internal/tracker"
	"wallet-follow-engine/internal/walletcache"
)

const (
	tickFlushInterval = 5 * time.Second
	tickFlushSize     = 500
)

func main() {
	configPath := flag.String("config", "engine.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("postgres migrations")
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Clickhouse.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("clickhouse migrations")
	}
	defer chConn.Close()

	var prices storage.PriceSeriesStore = storage.NewBreakerPriceSeries(
		"clickhouse", chstore.NewPriceSeriesStore(chConn))

	plays := pgstore.NewPlayStore(pool)
	projects := pgstore.NewFilterProjectStore(pool)
	positions := pgstore.NewPositionStore(pool)
	audits := pgstore.NewAuditStore(pool)

	metrics := observability.NewMetrics("")

	decider := admission.NewDecider(
		features.NewExtractor(prices),
		plays, positions, audits,
		filter.NewManualSelector(projects),
		nil,
	)
	tr := tracker.NewTracker(positions)

	eng := engine.New(decider, tr, plays, positions,
		engine.WithCycleInterval(cfg.Engine.CycleInterval),
		engine.WithMetrics(metrics),
	)
	if err := eng.Restore(ctx, cfg.Feed.Assets); err != nil {
		log.Fatal().Err(err).Msg("restore open positions")
	}

	wallets, err := followedWallets(ctx, cfg, pool, plays, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve followed wallets")
	}
	log.Info().Int("wallets", len(wallets)).Strs("assets", cfg.Feed.Assets).Msg("subscribing")

	feedCfg := pricefeed.DefaultConfig()
	feedCfg.OnReconnect = metrics.FeedReconnects.Inc
	feed, err := pricefeed.NewClient(ctx, cfg.Feed.Endpoint, &feedCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect feed")
	}
	defer feed.Close()

	ticks, err := feed.SubscribePrices(ctx, cfg.Feed.Assets)
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe prices")
	}
	candidates, err := feed.SubscribeTrades(ctx, wallets)
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe trades")
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr)
	}

	// Ticks both persist to ClickHouse and drive the exit tracker.
	engineTicks := make(chan *domain.PricePoint, 10000)
	go persistTicks(ctx, prices, ticks, engineTicks, metrics)

	if err := eng.Run(ctx, candidates, engineTicks); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("engine stopped")
	}
	log.Info().Msg("shutdown complete")
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.NewConsoleWriter())
	}
}

// followedWallets resolves the wallet lists of every active play,
// deduplicated, through the Redis-backed cache when configured.
func followedWallets(ctx context.Context, cfg config.Config, pool *pgstore.Pool, plays storage.PlayStore, metrics *observability.Metrics) ([]string, error) {
	var cache walletcache.Cache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, wallet cache disabled")
		} else {
			cache = walletcache.NewRedisCache(client)
		}
	}
	resolver := walletcache.NewResolver(pgstore.NewWalletQueryRunner(pool), cache,
		walletcache.WithMetrics(metrics))

	active, err := plays.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var wallets []string
	for _, play := range active {
		resolved, err := resolver.Resolve(ctx, play)
		if err != nil {
			log.Error().Err(err).Int64("play", play.PlayID).Msg("wallet resolve failed")
			continue
		}
		for _, w := range resolved {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			wallets = append(wallets, w)
		}
	}
	return wallets, nil
}

// persistTicks forwards feed ticks to the engine and batches them into
// the price store. A failed flush drops the batch; the gate treats the
// gap as missing data.
func persistTicks(
	ctx context.Context,
	prices storage.PriceSeriesStore,
	in <-chan *domain.PricePoint,
	out chan<- *domain.PricePoint,
	metrics *observability.Metrics,
) {
	defer close(out)

	flush := time.NewTicker(tickFlushInterval)
	defer flush.Stop()

	var batch []*domain.PricePoint
	flushBatch := func() {
		if len(batch) == 0 {
			return
		}
		if err := prices.InsertBulk(ctx, batch); err != nil {
			log.Error().Err(err).Int("points", len(batch)).Msg("price flush failed")
			metrics.StoreErrors.WithLabelValues("price_series").Inc()
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-flush.C:
			flushBatch()
		case tick, ok := <-in:
			if !ok {
				flushBatch()
				return
			}
			batch = append(batch, tick)
			if len(batch) >= tickFlushSize {
				flushBatch()
			}
			select {
			case out <- tick:
			default:
				log.Warn().Str("asset", tick.AssetID).Msg("tick buffer full, dropping")
			}
		}
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
