package momentum

import (
	"testing"

	"kucoin-signal-bot/internal/kucoin"
)

// reversalSeries builds five quiet bullish candles, a three-candle bearish
// run, a small pause and one strong bullish reversal.
func reversalSeries() []kucoin.Kline {
	return []kucoin.Kline{
		{Time: 1, Open: 110, High: 111.5, Low: 109.5, Close: 111, Volume: 100},
		{Time: 2, Open: 110, High: 111.5, Low: 109.5, Close: 111, Volume: 100},
		{Time: 3, Open: 110, High: 111.5, Low: 109.5, Close: 111, Volume: 100},
		{Time: 4, Open: 110, High: 111.5, Low: 109.5, Close: 111, Volume: 100},
		{Time: 5, Open: 110, High: 111.5, Low: 109.5, Close: 111, Volume: 100},
		// Bearish run
		{Time: 6, Open: 110, High: 110.5, Low: 107.5, Close: 108, Volume: 150},
		{Time: 7, Open: 108, High: 108.5, Low: 105.5, Close: 106, Volume: 150},
		{Time: 8, Open: 106, High: 106.5, Low: 103.5, Close: 104, Volume: 150},
		// Transition pause
		{Time: 9, Open: 104, High: 104.3, Low: 103.2, Close: 103.7, Volume: 80},
		// Reversal
		{Time: 10, Open: 103.7, High: 108, Low: 103.5, Close: 107.7, Volume: 500},
	}
}

// TestDetectReversalPattern verifies run length, direction and the momentum
// extreme of a textbook bullish reversal.
func TestDetectReversalPattern(t *testing.T) {
	d := NewDetector(60)

	patterns := d.Detect(reversalSeries())
	if len(patterns) != 1 {
		t.Fatalf("Expected 1 pattern, got %d", len(patterns))
	}

	p := patterns[0]
	if !p.Bullish {
		t.Error("Expected a bullish reversal after a bearish run")
	}
	if p.ConsecutiveCount != 3 {
		t.Errorf("Expected a 3-candle run, got %d", p.ConsecutiveCount)
	}
	if p.Extreme != 103.2 {
		t.Errorf("Expected momentum extreme 103.2, got %f", p.Extreme)
	}
	if p.EntryPrice != 107.7 {
		t.Errorf("Expected entry at the reversal close 107.7, got %f", p.EntryPrice)
	}
	if p.Strength < 60 {
		t.Errorf("Expected a strong pattern, got strength %f", p.Strength)
	}
}

// TestLatestRequiresRecentReversal verifies the recency window.
func TestLatestRequiresRecentReversal(t *testing.T) {
	d := NewDetector(60)

	candles := reversalSeries()
	if p := d.Latest(candles); p == nil {
		t.Fatal("Expected the fresh reversal to be returned as latest")
	}

	// Push the reversal out of the recency window with quiet candles.
	for i := 0; i < 6; i++ {
		candles = append(candles, kucoin.Kline{
			Time: int64(11 + i), Open: 107, High: 108, Low: 106.5, Close: 107.5, Volume: 100,
		})
	}
	if p := d.Latest(candles); p != nil {
		t.Errorf("Expected no latest pattern once the reversal aged out, got one at index %d", p.ReversalIndex)
	}
}

// TestDetectTooFewCandles verifies the insufficient-data contract.
func TestDetectTooFewCandles(t *testing.T) {
	d := NewDetector(60)

	candles := reversalSeries()[:4]
	if patterns := d.Detect(candles); patterns != nil {
		t.Errorf("Expected nil patterns on a short series, got %d", len(patterns))
	}
}

// TestDetectNoPatternWithoutPause verifies that a run straight into a
// reversal candle does not qualify.
func TestDetectNoPatternWithoutPause(t *testing.T) {
	d := NewDetector(60)

	candles := []kucoin.Kline{
		{Time: 1, Open: 110, High: 111.5, Low: 109.5, Close: 111, Volume: 100},
		{Time: 2, Open: 110, High: 111.5, Low: 109.5, Close: 111, Volume: 100},
		{Time: 3, Open: 110, High: 111.5, Low: 109.5, Close: 111, Volume: 100},
		{Time: 4, Open: 110, High: 111.5, Low: 109.5, Close: 111, Volume: 100},
		{Time: 5, Open: 110, High: 111.5, Low: 109.5, Close: 111, Volume: 100},
		{Time: 6, Open: 110, High: 110.5, Low: 107.5, Close: 108, Volume: 150},
		{Time: 7, Open: 108, High: 108.5, Low: 105.5, Close: 106, Volume: 150},
		{Time: 8, Open: 106, High: 106.5, Low: 103.5, Close: 104, Volume: 150},
		// Reversal with no transition candle before it.
		{Time: 9, Open: 104, High: 108.5, Low: 103.8, Close: 108, Volume: 500},
	}

	if patterns := d.Detect(candles); len(patterns) != 0 {
		t.Errorf("Expected no pattern without a transition pause, got %d", len(patterns))
	}
}
