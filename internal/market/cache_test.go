package market

import (
	"testing"
	"time"

	"kucoin-signal-bot/internal/kucoin"
)

// TestTimeframeValidity verifies the per-timeframe freshness windows.
func TestTimeframeValidity(t *testing.T) {
	cases := []struct {
		tf   Timeframe
		want time.Duration
	}{
		{TimeframeH1, 30 * time.Minute},
		{TimeframeM15, 8 * time.Minute},
		{TimeframeM5, 3 * time.Minute},
	}
	for _, c := range cases {
		if got := c.tf.Validity(); got != c.want {
			t.Errorf("Expected %s validity %v, got %v", c.tf, c.want, got)
		}
	}
}

// TestCacheHitAndExpiry verifies a fresh entry is served and a stale one
// is not.
func TestCacheHitAndExpiry(t *testing.T) {
	cache := NewCandleCache()
	now := time.Now().UTC()
	candles := []kucoin.Kline{{Time: 1, Open: 100, High: 101, Low: 99, Close: 100.5}}

	cache.Put("BTC-USDT", TimeframeM15, candles, now)

	got, ok := cache.Get("BTC-USDT", TimeframeM15, now.Add(5*time.Minute))
	if !ok {
		t.Fatal("Expected a cache hit inside the validity window")
	}
	if len(got) != 1 || got[0].Close != 100.5 {
		t.Errorf("Expected the stored series back, got %v", got)
	}

	if _, ok := cache.Get("BTC-USDT", TimeframeM15, now.Add(9*time.Minute)); ok {
		t.Error("Expected a miss once the entry aged past 8 minutes")
	}
}

// TestCacheKeyedBySymbolAndTimeframe verifies entries do not bleed across
// keys.
func TestCacheKeyedBySymbolAndTimeframe(t *testing.T) {
	cache := NewCandleCache()
	now := time.Now().UTC()

	cache.Put("BTC-USDT", TimeframeH1, []kucoin.Kline{{Time: 1}}, now)

	if _, ok := cache.Get("ETH-USDT", TimeframeH1, now); ok {
		t.Error("Expected a miss for a different symbol")
	}
	if _, ok := cache.Get("BTC-USDT", TimeframeM5, now); ok {
		t.Error("Expected a miss for a different timeframe")
	}
}

// TestCacheInvalidate verifies explicit invalidation drops the entry.
func TestCacheInvalidate(t *testing.T) {
	cache := NewCandleCache()
	now := time.Now().UTC()

	cache.Put("BTC-USDT", TimeframeH1, []kucoin.Kline{{Time: 1}}, now)
	cache.Invalidate("BTC-USDT", TimeframeH1)

	if _, ok := cache.Get("BTC-USDT", TimeframeH1, now); ok {
		t.Error("Expected a miss after invalidation")
	}
}
