package market

import (
	"fmt"
	"math"
	"time"

	"kucoin-signal-bot/internal/kucoin"
	"kucoin-signal-bot/internal/logging"
)

// Analyzer fetches candle series through the cache and derives the
// cross-timeframe context (liquidity levels) the risk engine consumes.
type Analyzer struct {
	client kucoin.MarketDataClient
	cache  *CandleCache
	logger *logging.Logger
}

func NewAnalyzer(client kucoin.MarketDataClient, cache *CandleCache) *Analyzer {
	if cache == nil {
		cache = NewCandleCache()
	}
	return &Analyzer{
		client: client,
		cache:  cache,
		logger: logging.WithComponent("market"),
	}
}

// GetCandles returns the series for symbol at tf, reusing the cache while
// it is valid. A fetch failure with no cached fallback returns the error
// so the caller can skip this cycle.
func (a *Analyzer) GetCandles(symbol string, tf Timeframe) ([]kucoin.Kline, error) {
	now := time.Now()
	if candles, ok := a.cache.Get(symbol, tf, now); ok {
		return candles, nil
	}

	candles, err := a.client.GetKlines(symbol, string(tf), tf.FetchLimit())
	if err != nil {
		// A stale entry is still better than nothing for this cycle.
		if stale, ok := a.staleEntry(symbol, tf); ok {
			a.logger.WithError(err).
				WithField("symbol", symbol).
				WithField("timeframe", string(tf)).
				Warn("candle fetch failed, serving stale cache")
			return stale, nil
		}
		return nil, fmt.Errorf("fetch %s %s candles: %w", symbol, tf, err)
	}

	a.cache.Put(symbol, tf, candles, now)
	return candles, nil
}

func (a *Analyzer) staleEntry(symbol string, tf Timeframe) ([]kucoin.Kline, bool) {
	a.cache.mu.RLock()
	defer a.cache.mu.RUnlock()
	entry, ok := a.cache.entries[cacheKey{symbol, tf}]
	if !ok {
		return nil, false
	}
	return entry.candles, true
}

// LevelKind names the liquidity level variants.
type LevelKind string

const (
	EqualHighs LevelKind = "equal_highs"
	EqualLows  LevelKind = "equal_lows"
	PivotHigh  LevelKind = "pivot_high"
	PivotLow   LevelKind = "pivot_low"
)

// Level is a liquidity price level derived from a candle series.
type Level struct {
	Price float64
	Kind  LevelKind
}

// IsHigh reports whether the level sits on the high side.
func (l Level) IsHigh() bool {
	return l.Kind == EqualHighs || l.Kind == PivotHigh
}

const equalLevelTolerance = 0.001 // 0.1%

// LiquidityLevels extracts equal highs/lows clusters and pivot extremes
// from a candle series. These are the magnets take-profit targets get
// pulled toward.
func LiquidityLevels(candles []kucoin.Kline) []Level {
	if len(candles) < 11 {
		return nil
	}

	var levels []Level

	// Equal highs / equal lows: two candles whose extremes sit within
	// tolerance of each other.
	for i := 0; i < len(candles); i++ {
		for j := i + 1; j < len(candles); j++ {
			if withinTolerance(candles[i].High, candles[j].High) {
				levels = appendLevel(levels, Level{
					Price: (candles[i].High + candles[j].High) / 2,
					Kind:  EqualHighs,
				})
			}
			if withinTolerance(candles[i].Low, candles[j].Low) {
				levels = appendLevel(levels, Level{
					Price: (candles[i].Low + candles[j].Low) / 2,
					Kind:  EqualLows,
				})
			}
		}
	}

	// Pivot extremes over a symmetric 5-bar window.
	const window = 5
	for i := window; i < len(candles)-window; i++ {
		isPivotHigh, isPivotLow := true, true
		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isPivotHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isPivotLow = false
			}
		}
		if isPivotHigh {
			levels = appendLevel(levels, Level{Price: candles[i].High, Kind: PivotHigh})
		}
		if isPivotLow {
			levels = appendLevel(levels, Level{Price: candles[i].Low, Kind: PivotLow})
		}
	}

	return levels
}

func withinTolerance(a, b float64) bool {
	if a <= 0 {
		return false
	}
	return math.Abs(a-b)/a < equalLevelTolerance
}

// appendLevel merges levels that sit within tolerance of an existing one.
func appendLevel(levels []Level, level Level) []Level {
	for i, existing := range levels {
		if existing.Kind == level.Kind && withinTolerance(existing.Price, level.Price) {
			levels[i].Price = (existing.Price + level.Price) / 2
			return levels
		}
	}
	return append(levels, level)
}
