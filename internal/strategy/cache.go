package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"smc-lab/internal/domain"
	"smc-lab/internal/idhash"
)

// BiasCache holds higher-timeframe bias series shared by the runs of one
// caller (typically an optimizer invocation). It is owned and passed
// explicitly by that caller and is safe for concurrent use.
//
// Invalidation rule: entries are keyed by symbol, timeframe, structure
// params and the data range (first timestamp, last timestamp, bar count).
// New or trimmed data therefore never hits a stale entry. Invalidate drops
// every entry of one series; entries also expire after the TTL.
type BiasCache struct {
	c *cache.Cache
}

// NewBiasCache creates a cache with the given TTL and cleanup interval.
func NewBiasCache(ttl, cleanup time.Duration) *BiasCache {
	return &BiasCache{c: cache.New(ttl, cleanup)}
}

func paramsKey(p domain.StructureParams) string {
	return fmt.Sprintf("swing%d_internal%d_%s", p.SwingLength, p.InternalLength, p.Mitigation)
}

// Key returns the cache key of a series.
func (bc *BiasCache) Key(symbol, timeframe string, params domain.StructureParams, candles []domain.Candle) string {
	var first, last int64
	if n := len(candles); n > 0 {
		first, last = candles[0].Timestamp, candles[n-1].Timestamp
	}
	return idhash.ComputeCacheKey(symbol, timeframe, paramsKey(params), first, last, len(candles))
}

// GetOrBuild returns the cached bias series or builds and stores it.
func (bc *BiasCache) GetOrBuild(symbol, timeframe string, params domain.StructureParams, candles []domain.Candle) (*BiasSeries, error) {
	key := bc.Key(symbol, timeframe, params, candles)
	if v, ok := bc.c.Get(key); ok {
		if bs, ok := v.(*BiasSeries); ok {
			return bs, nil
		}
	}

	bs, err := BuildBiasSeries(candles, timeframe, params)
	if err != nil {
		return nil, err
	}
	bc.c.Set(key, bs, cache.DefaultExpiration)
	return bs, nil
}

// Invalidate removes every entry of a symbol/timeframe. Returns the count removed.
func (bc *BiasCache) Invalidate(symbol, timeframe string) int {
	prefix := idhash.CacheKeyPrefix(symbol, timeframe)
	removed := 0
	for key := range bc.c.Items() {
		if strings.HasPrefix(key, prefix) {
			bc.c.Delete(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries, including expired ones not yet cleaned up.
func (bc *BiasCache) Len() int {
	return bc.c.ItemCount()
}
