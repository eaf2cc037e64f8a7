package domain

// Decision is the final admission verdict for a candidate.
type Decision string

const (
	DecisionGO   Decision = "GO"
	DecisionNOGO Decision = "NO_GO"
)

// Rejection reason codes carried on the audit record.
const (
	ReasonWalletType     = "WALLET_TYPE"
	ReasonInvalidWallet  = "INVALID_WALLET"
	ReasonFallingPrice   = "FALLING_PRICE"
	ReasonNoPriceData    = "NO_PRICE_DATA"
	ReasonTimingWindow   = "TIMING_WINDOW"
	ReasonFilterRejected = "FILTER_REJECTED"
	ReasonBundleUnmet    = "BUNDLE_UNMET"
	ReasonCycleLimit     = "CYCLE_LIMIT"
	ReasonConfigMissing  = "CONFIG_UNAVAILABLE"
)

// FilterResult records one rule evaluation for the audit trail.
// Serialized into pattern_validator_log.
type FilterResult struct {
	FilterName  string   `json:"filter_name"`
	Field       string   `json:"field"`
	Minute      int      `json:"minute"`
	FromValue   *float64 `json:"from_value"`
	ToValue     *float64 `json:"to_value"`
	ActualValue *float64 `json:"actual_value"`
	Passed      bool     `json:"passed"`
	Error       string   `json:"error,omitempty"`
}

// ProjectResult records one filter project's verdict.
type ProjectResult struct {
	ProjectID     int64           `json:"project_id"`
	ProjectName   string          `json:"project_name"`
	Decision      Decision        `json:"decision"`
	FilterResults []*FilterResult `json:"filter_results"`
}

// PreEntryMetrics records the feature values the movement gate saw.
type PreEntryMetrics struct {
	Windows []*FeatureWindow `json:"windows"`
	Trend   Trend            `json:"trend"`

	GateWindowMinutes int      `json:"gate_window_minutes"`
	GatePctChange     *float64 `json:"gate_pct_change"` // nil when unresolved
	GateThresholdPct  float64  `json:"gate_threshold_pct"`
	GatePassed        bool     `json:"gate_passed"`
}

// AuditRecord is the full evidence for one admission outcome.
// Written exactly once per candidate, GO or NO_GO, and immutable after
// that; identical candidate + identical price snapshot must produce an
// identical record.
type AuditRecord struct {
	AuditID        string           `json:"audit_id"` // deterministic hash
	PositionID     string           `json:"position_id"`
	PlayID         int64            `json:"play_id"`
	WalletAddress  string           `json:"wallet_address"`
	AssetID        string           `json:"asset_id"`
	ObservedTimeMs int64            `json:"observed_time_ms"`
	PreEntry       *PreEntryMetrics `json:"pre_entry_metrics"`
	ProjectResults []*ProjectResult `json:"project_results"`
	FinalDecision  Decision         `json:"final_decision"`
	Reason         string           `json:"reason,omitempty"`
}
