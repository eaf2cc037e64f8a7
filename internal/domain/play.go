package domain

// TriggerMode restricts which wallet actions may trigger an entry.
type TriggerMode string

const (
	TriggerAny       TriggerMode = "ANY"
	TriggerLongOnly  TriggerMode = "LONG_ONLY"
	TriggerShortOnly TriggerMode = "SHORT_ONLY"
)

// Allows reports whether a wallet action of the given kind may trigger.
func (m TriggerMode) Allows(kind WalletKind) bool {
	switch m {
	case TriggerLongOnly:
		return kind == WalletKindLong
	case TriggerShortOnly:
		return kind == WalletKindShort
	default:
		return true
	}
}

// CombineMode controls how per-project verdicts combine into one.
type CombineMode string

const (
	// CombineAny admits when any one project fully passes (default).
	CombineAny CombineMode = "ANY"
	// CombineAll requires every project to pass.
	CombineAll CombineMode = "ALL"
)

// GatePolicy controls the pre-entry movement gate when no lookback
// window resolved a price. The upstream behavior was ambiguous, so the
// policy is an explicit configuration option.
type GatePolicy string

const (
	GateAdmitOnMissing  GatePolicy = "ADMIT"
	GateRejectOnMissing GatePolicy = "REJECT"
)

// EntryGate configures the pre-entry movement check. It runs before
// any filter project and short-circuits on failure.
type EntryGate struct {
	MinChangePct float64    // minimum pct_change on the longest window; equal passes
	OnMissing    GatePolicy // policy when the feature set is entirely unresolved
}

// TimingConditions optionally gates entry on price direction within a
// time window. Zero value means no timing gate.
type TimingConditions struct {
	WindowMinutes int   // lookback window for the direction check
	RequireTrend  Trend // required trend over that window
}

// Enabled reports whether the timing gate is configured.
func (t *TimingConditions) Enabled() bool {
	return t.WindowMinutes > 0 && t.RequireTrend != ""
}

// BundleConfig requires co-occurrence of independent candidates before
// any of them is admitted. Zero value means candidates admit singly.
type BundleConfig struct {
	NumTrades     int // required independent candidates
	WindowSeconds int // co-occurrence window
}

// Enabled reports whether bundling is configured.
func (b *BundleConfig) Enabled() bool {
	return b.NumTrades > 1 && b.WindowSeconds > 0
}

// WalletCacheConfig controls reuse of a prior wallet query result.
type WalletCacheConfig struct {
	TTLSeconds int // 0 disables caching
}

// Enabled reports whether wallet query caching is configured.
func (w *WalletCacheConfig) Enabled() bool {
	return w.TTLSeconds > 0
}

// SelectionMode distinguishes manual from AI-managed project selection.
type SelectionMode string

const (
	// SelectionManual uses the play's configured project ids.
	SelectionManual SelectionMode = "MANUAL"
	// SelectionAIManaged delegates project choice to an external
	// optimizer, resolved once per decision.
	SelectionAIManaged SelectionMode = "AI_MANAGED"
)

// Play is one trading strategy configuration.
// Corresponds to the plays table in PostgreSQL; the JSON-typed columns
// (sell_logic, trigger_on_perp, timing_conditions, bundle_trades,
// cache_wallets) decode through playconfig.
type Play struct {
	PlayID      int64
	Name        string
	WalletQuery string // wallet-selection query, opaque to this engine

	SellLogic        SellLogic
	TriggerOnPerp    TriggerMode
	TimingConditions TimingConditions
	BundleTrades     BundleConfig
	CacheWallets     WalletCacheConfig
	EntryGate        EntryGate

	PatternValidatorEnable bool
	SelectionMode          SelectionMode // MANUAL unless pattern_update_by_ai is set
	ProjectIDs             []int64       // manual project selection
	FilterCombine          CombineMode

	MaxBuysPerCycle int
	ShortPlay       bool // inverts profit-sign interpretation everywhere
}
