package domain

// PositionStatus is the lifecycle state of a position.
// pending → sold | cancelled are live transitions; no_go is terminal
// from the start and exists only to carry the audit record.
type PositionStatus string

const (
	StatusPending   PositionStatus = "pending"
	StatusSold      PositionStatus = "sold"
	StatusCancelled PositionStatus = "cancelled"
	StatusNoGo      PositionStatus = "no_go"
)

// Terminal reports whether the status is a terminal state.
func (s PositionStatus) Terminal() bool {
	return s != StatusPending
}

// Position represents one followed trade.
// Corresponds to the positions table in PostgreSQL (our_entry_price,
// our_exit_price, followed_at, our_exit_timestamp, our_profit_loss,
// our_status columns).
type Position struct {
	PositionID    string // deterministic hash, see idhash
	PlayID        int64
	WalletAddress string
	AssetID       string
	ShortPlay     bool

	EntryPrice  float64
	EntryTimeMs int64

	ExitPrice  *float64 // nil while open
	ExitTimeMs *int64   // nil while open

	Status     PositionStatus
	ExitReason string // reason code, empty while open

	ProfitLossPct  *float64 // set at close
	PotentialGains *float64 // best attainable gain at peak, set at archive
}

// Exit reason codes.
const (
	ExitReasonDecrease = "DECREASE_TOLERANCE"
	ExitReasonRetrace  = "INCREASE_RETRACE"
	ExitReasonForced   = "FORCE_CLOSED"
)

// ProfitLossPct computes signed profit percent between entry and exit.
// For short plays the sign is inverted: a price decrease from entry is
// a gain.
func ComputeProfitLossPct(entryPrice, exitPrice float64, shortPlay bool) float64 {
	if entryPrice == 0 {
		return 0
	}
	pl := (exitPrice - entryPrice) / entryPrice * 100
	if shortPlay {
		pl = -pl
	}
	return pl
}
