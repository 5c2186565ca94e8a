package market

import (
	"sync"
	"time"

	"kucoin-signal-bot/internal/kucoin"
)

// Timeframe names the analysis timeframes and their exchange interval strings.
type Timeframe string

const (
	TimeframeH1  Timeframe = "1hour"
	TimeframeM15 Timeframe = "15min"
	TimeframeM5  Timeframe = "5min"
)

// Validity returns how long a cached series of this timeframe stays fresh.
func (t Timeframe) Validity() time.Duration {
	switch t {
	case TimeframeH1:
		return 30 * time.Minute
	case TimeframeM15:
		return 8 * time.Minute
	case TimeframeM5:
		return 3 * time.Minute
	default:
		return 3 * time.Minute
	}
}

// FetchLimit returns how many candles to request per timeframe.
func (t Timeframe) FetchLimit() int {
	switch t {
	case TimeframeH1:
		return 100
	case TimeframeM15:
		return 200
	case TimeframeM5:
		return 100
	default:
		return 100
	}
}

type cacheKey struct {
	symbol    string
	timeframe Timeframe
}

type cacheEntry struct {
	candles   []kucoin.Kline
	fetchedAt time.Time
}

// IsValid reports whether the entry is still fresh at the given instant.
func (e cacheEntry) IsValid(now time.Time, tf Timeframe) bool {
	return now.Sub(e.fetchedAt) < tf.Validity()
}

// CandleCache is an explicit per-symbol per-timeframe candle cache. It is
// passed to the pipeline rather than held as a process-wide singleton, and
// is safe for concurrent use.
type CandleCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

func NewCandleCache() *CandleCache {
	return &CandleCache{entries: make(map[cacheKey]cacheEntry)}
}

// Get returns the cached series when present and still valid.
func (c *CandleCache) Get(symbol string, tf Timeframe, now time.Time) ([]kucoin.Kline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey{symbol, tf}]
	if !ok || !entry.IsValid(now, tf) {
		return nil, false
	}
	return entry.candles, true
}

// Put stores a freshly fetched series.
func (c *CandleCache) Put(symbol string, tf Timeframe, candles []kucoin.Kline, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{symbol, tf}] = cacheEntry{candles: candles, fetchedAt: now}
}

// Invalidate drops the cached series for one symbol and timeframe.
func (c *CandleCache) Invalidate(symbol string, tf Timeframe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{symbol, tf})
}
