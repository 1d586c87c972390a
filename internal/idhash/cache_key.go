package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ComputeCacheKey builds the key of a cached higher-timeframe computation.
// Format: SYMBOL_TIMEFRAME|SHA256(params|first_ts|last_ts|count)[:16]
// The readable prefix lets callers drop every entry of one series;
// the data range makes keys of extended or truncated series distinct.
func ComputeCacheKey(
	symbol string,
	timeframe string,
	params string,
	firstTs int64,
	lastTs int64,
	count int,
) string {
	data := fmt.Sprintf("%s|%d|%d|%d", params, firstTs, lastTs, count)
	hash := sha256.Sum256([]byte(data))
	return CacheKeyPrefix(symbol, timeframe) + hex.EncodeToString(hash[:8])
}

// CacheKeyPrefix returns the prefix shared by every key of one series.
func CacheKeyPrefix(symbol, timeframe string) string {
	return strings.ToUpper(symbol) + "_" + timeframe + "|"
}

// NewRunID returns a random identifier for one optimizer or portfolio run.
func NewRunID() string {
	return uuid.NewString()
}
