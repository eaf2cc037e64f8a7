// Package main replays a recorded candidate file against historical
// prices and prints the admission and exit outcomes each play would
// have produced. Replay never writes to production tables.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wallet-follow-engine/internal/config"
	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/replay"
	"wallet-follow-engine/internal/storage"
	chstore "wallet-follow-engine/internal/storage/clickhouse"
	pgstore "wallet-follow-engine/internal/storage/postgres"
)

// candidateRecord is the on-disk candidate format.
type candidateRecord struct {
	Wallet         string  `json:"wallet"`
	Side           string  `json:"side"`
	AssetID        string  `json:"asset_id"`
	Price          float64 `json:"price"`
	ObservedTimeMs int64   `json:"timestamp_ms"`
	PlayID         int64   `json:"play_id"`
}

func main() {
	configPath := flag.String("config", "engine.yaml", "Path to YAML config")
	candidatesPath := flag.String("candidates", "", "Path to candidate JSON file (required)")
	ratePerSecond := flag.Float64("rate", 0, "Price-store reads per second (0 = unlimited)")
	horizon := flag.Duration("horizon", 24*time.Hour, "Exit simulation horizon past entry")
	outputJSON := flag.Bool("json", false, "Print the summary as JSON")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if *candidatesPath == "" {
		log.Fatal().Msg("--candidates is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	candidates, err := loadCandidates(*candidatesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load candidates")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	chConn, err := chstore.NewConn(ctx, cfg.Clickhouse.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect clickhouse")
	}
	defer chConn.Close()

	var prices storage.PriceSeriesStore = storage.NewBreakerPriceSeries(
		"clickhouse", chstore.NewPriceSeriesStore(chConn))

	opts := []replay.Option{replay.WithHorizon(*horizon)}
	if *ratePerSecond > 0 {
		opts = append(opts, replay.WithRateLimit(*ratePerSecond))
	}
	runner := replay.NewRunner(prices, pgstore.NewPlayStore(pool), pgstore.NewFilterProjectStore(pool), opts...)

	summary, results, err := runner.Run(ctx, candidates)
	if err != nil {
		log.Fatal().Err(err).Msg("replay failed")
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			log.Fatal().Err(err).Msg("encode summary")
		}
		return
	}
	printSummary(summary, results)
}

func loadCandidates(path string) ([]*domain.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []candidateRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	candidates := make([]*domain.Candidate, 0, len(records))
	for _, rec := range records {
		kind := domain.WalletKindLong
		if rec.Side == "SHORT" {
			kind = domain.WalletKindShort
		}
		candidates = append(candidates, &domain.Candidate{
			WalletAddress:  rec.Wallet,
			WalletKind:     kind,
			AssetID:        rec.AssetID,
			ObservedPrice:  rec.Price,
			ObservedTimeMs: rec.ObservedTimeMs,
			PlayID:         rec.PlayID,
		})
	}
	return candidates, nil
}

func printSummary(summary *replay.Summary, results []*replay.Result) {
	fmt.Printf("Candidates:  %d\n", summary.Candidates)
	fmt.Printf("Admitted:    %d\n", summary.Admitted)
	for reason, n := range summary.Rejected {
		fmt.Printf("Rejected:    %d (%s)\n", n, reason)
	}
	for reason, n := range summary.Exited {
		fmt.Printf("Exited:      %d (%s)\n", n, reason)
	}
	fmt.Printf("Still open:  %d\n", summary.StillOpen)
	fmt.Printf("Wins/Losses: %d/%d\n", summary.Wins, summary.Losses)
	fmt.Printf("Mean P/L:    %.2f%%\n", summary.MeanProfitLossPct)

	for _, res := range results {
		if res.Position == nil || res.Position.Status == domain.StatusPending {
			continue
		}
		p := res.Position
		pl := 0.0
		if p.ProfitLossPct != nil {
			pl = *p.ProfitLossPct
		}
		fmt.Printf("  %s %s entry=%.4f exit=%.4f reason=%s pl=%.2f%%\n",
			p.PositionID, p.AssetID, p.EntryPrice, exitPrice(p), p.ExitReason, pl)
	}
}

func exitPrice(p *domain.Position) float64 {
	if p.ExitPrice != nil {
		return *p.ExitPrice
	}
	return 0
}
