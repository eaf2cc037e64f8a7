package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position_id using SHA256.
// Formula: SHA256(play_id|wallet_address|asset_id|observed_time_ms)
// Returns hex-encoded hash (64 characters).
//
// Determinism makes admission retries idempotent: re-evaluating the
// same candidate yields the same position id, so a duplicate-key error
// from the store means the outcome was already recorded.
func ComputePositionID(playID int64, walletAddress, assetID string, observedTimeMs int64) string {
	data := fmt.Sprintf("%d|%s|%s|%d",
		playID,
		walletAddress,
		assetID,
		observedTimeMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeAuditID computes a deterministic audit_id using SHA256.
// Formula: SHA256(position_id|final_decision)
// Returns hex-encoded hash (64 characters).
func ComputeAuditID(positionID, finalDecision string) string {
	data := fmt.Sprintf("%s|%s", positionID, finalDecision)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
