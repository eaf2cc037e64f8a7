package domain

// WalletKind classifies the wallet action that produced a candidate.
type WalletKind string

const (
	WalletKindLong  WalletKind = "LONG"
	WalletKindShort WalletKind = "SHORT"
)

// Candidate represents a detected wallet buy/sell signal proposed as a
// potential trade entry. Ephemeral input to the admission decision.
type Candidate struct {
	WalletAddress  string     // base58 wallet address of the followed wallet
	WalletKind     WalletKind // LONG | SHORT
	AssetID        string     // asset the wallet traded
	ObservedPrice  float64    // price at signal detection
	ObservedTimeMs int64      // Unix timestamp in milliseconds
	PlayID         int64      // play this candidate was detected for
}
