// Package playconfig decodes the JSON-typed play columns into domain
// configuration. Plays are operator-edited rows, so decoding is
// lenient: an absent or malformed blob disables that feature with a
// warning instead of taking the whole play down.
package playconfig

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"wallet-follow-engine/internal/domain"
)

// Row is one plays-table row before JSON decoding. The blob fields
// hold raw column bytes; nil or empty means the feature is off.
type Row struct {
	PlayID      int64
	Name        string
	WalletQuery string

	SellLogic        []byte
	TriggerOnPerp    []byte
	TimingConditions []byte
	BundleTrades     []byte
	CacheWallets     []byte
	EntryGate        []byte

	PatternValidatorEnable bool
	PatternUpdateByAI      bool
	ProjectIDs             []int64
	FilterCombine          string

	MaxBuysPerCycle int
	ShortPlay       bool
}

type sellLogicJSON struct {
	DecreaseTolerancePct float64 `json:"decrease_tolerance_pct"`
	IncreaseTiers        []struct {
		RangeFromPct float64 `json:"range_from_pct"`
		RangeToPct   float64 `json:"range_to_pct"`
		TolerancePct float64 `json:"tolerance_pct"`
	} `json:"increase_tiers"`
}

type triggerJSON struct {
	Mode string `json:"mode"`
}

type timingJSON struct {
	WindowMinutes int    `json:"window_minutes"`
	RequireTrend  string `json:"require_trend"`
}

type bundleJSON struct {
	NumTrades     int `json:"num_trades"`
	WindowSeconds int `json:"window_seconds"`
}

type cacheJSON struct {
	TTLSeconds int `json:"ttl_seconds"`
}

type entryGateJSON struct {
	MinChangePct float64 `json:"min_change_pct"`
	OnMissing    string  `json:"on_missing"`
}

func blank(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// DecodeSellLogic parses the sell_logic column. The result is
// validated; an invalid tier schedule is an error.
func DecodeSellLogic(raw []byte) (domain.SellLogic, error) {
	var logic domain.SellLogic
	if blank(raw) {
		return logic, nil
	}

	var blob sellLogicJSON
	if err := json.Unmarshal(raw, &blob); err != nil {
		return logic, fmt.Errorf("decode sell_logic: %w", err)
	}

	logic.DecreaseTolerancePct = blob.DecreaseTolerancePct
	for _, t := range blob.IncreaseTiers {
		logic.IncreaseTiers = append(logic.IncreaseTiers, &domain.IncreaseTier{
			RangeFromPct: t.RangeFromPct,
			RangeToPct:   t.RangeToPct,
			TolerancePct: t.TolerancePct,
		})
	}

	if err := logic.Validate(); err != nil {
		return domain.SellLogic{}, fmt.Errorf("sell_logic: %w", err)
	}
	return logic, nil
}

// DecodeTriggerMode parses the trigger_on_perp column. Unknown or
// absent modes default to ANY.
func DecodeTriggerMode(raw []byte) (domain.TriggerMode, error) {
	if blank(raw) {
		return domain.TriggerAny, nil
	}
	var blob triggerJSON
	if err := json.Unmarshal(raw, &blob); err != nil {
		return domain.TriggerAny, fmt.Errorf("decode trigger_on_perp: %w", err)
	}
	switch domain.TriggerMode(blob.Mode) {
	case domain.TriggerLongOnly:
		return domain.TriggerLongOnly, nil
	case domain.TriggerShortOnly:
		return domain.TriggerShortOnly, nil
	default:
		return domain.TriggerAny, nil
	}
}

// DecodeTimingConditions parses the timing_conditions column.
func DecodeTimingConditions(raw []byte) (domain.TimingConditions, error) {
	var tc domain.TimingConditions
	if blank(raw) {
		return tc, nil
	}
	var blob timingJSON
	if err := json.Unmarshal(raw, &blob); err != nil {
		return tc, fmt.Errorf("decode timing_conditions: %w", err)
	}
	tc.WindowMinutes = blob.WindowMinutes
	tc.RequireTrend = domain.Trend(blob.RequireTrend)
	return tc, nil
}

// DecodeBundleConfig parses the bundle_trades column.
func DecodeBundleConfig(raw []byte) (domain.BundleConfig, error) {
	var bc domain.BundleConfig
	if blank(raw) {
		return bc, nil
	}
	var blob bundleJSON
	if err := json.Unmarshal(raw, &blob); err != nil {
		return bc, fmt.Errorf("decode bundle_trades: %w", err)
	}
	bc.NumTrades = blob.NumTrades
	bc.WindowSeconds = blob.WindowSeconds
	return bc, nil
}

// DecodeWalletCache parses the cache_wallets column.
func DecodeWalletCache(raw []byte) (domain.WalletCacheConfig, error) {
	var wc domain.WalletCacheConfig
	if blank(raw) {
		return wc, nil
	}
	var blob cacheJSON
	if err := json.Unmarshal(raw, &blob); err != nil {
		return wc, fmt.Errorf("decode cache_wallets: %w", err)
	}
	wc.TTLSeconds = blob.TTLSeconds
	return wc, nil
}

// DecodeEntryGate parses the entry_gate column. Absent means no
// movement requirement with the admit-on-missing policy.
func DecodeEntryGate(raw []byte) (domain.EntryGate, error) {
	gate := domain.EntryGate{OnMissing: domain.GateAdmitOnMissing}
	if blank(raw) {
		return gate, nil
	}
	var blob entryGateJSON
	if err := json.Unmarshal(raw, &blob); err != nil {
		return gate, fmt.Errorf("decode entry_gate: %w", err)
	}
	gate.MinChangePct = blob.MinChangePct
	if domain.GatePolicy(blob.OnMissing) == domain.GateRejectOnMissing {
		gate.OnMissing = domain.GateRejectOnMissing
	}
	return gate, nil
}

// FromRow assembles a Play from a decoded row. Blob failures disable
// the affected feature and log a warning keyed by play id; the play
// itself always loads.
func FromRow(row *Row) *domain.Play {
	play := &domain.Play{
		PlayID:                 row.PlayID,
		Name:                   row.Name,
		WalletQuery:            row.WalletQuery,
		PatternValidatorEnable: row.PatternValidatorEnable,
		SelectionMode:          domain.SelectionManual,
		ProjectIDs:             row.ProjectIDs,
		FilterCombine:          domain.CombineAny,
		MaxBuysPerCycle:        row.MaxBuysPerCycle,
		ShortPlay:              row.ShortPlay,
	}

	if row.PatternUpdateByAI {
		play.SelectionMode = domain.SelectionAIManaged
	}
	if domain.CombineMode(row.FilterCombine) == domain.CombineAll {
		play.FilterCombine = domain.CombineAll
	}

	var err error
	if play.SellLogic, err = DecodeSellLogic(row.SellLogic); err != nil {
		warn(row.PlayID, err)
	}
	if play.TriggerOnPerp, err = DecodeTriggerMode(row.TriggerOnPerp); err != nil {
		warn(row.PlayID, err)
	}
	if play.TimingConditions, err = DecodeTimingConditions(row.TimingConditions); err != nil {
		warn(row.PlayID, err)
	}
	if play.BundleTrades, err = DecodeBundleConfig(row.BundleTrades); err != nil {
		warn(row.PlayID, err)
	}
	if play.CacheWallets, err = DecodeWalletCache(row.CacheWallets); err != nil {
		warn(row.PlayID, err)
	}
	if play.EntryGate, err = DecodeEntryGate(row.EntryGate); err != nil {
		warn(row.PlayID, err)
	}

	return play
}

func warn(playID int64, err error) {
	log.Warn().Err(err).Int64("play", playID).Msg("play blob disabled")
}
