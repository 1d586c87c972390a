package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(strategy_key|side|entry_time|exit_time)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	strategyKey string,
	side string,
	entryTime int64,
	exitTime int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		strategyKey,
		side,
		entryTime,
		exitTime,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
