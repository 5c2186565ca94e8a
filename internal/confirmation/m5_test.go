package confirmation

import (
	"testing"

	"kucoin-signal-bot/internal/kucoin"
	"kucoin-signal-bot/internal/signal"
	"kucoin-signal-bot/internal/zones"
)

func longCandidate() *signal.Candidate {
	return &signal.Candidate{
		Symbol:     "BTC-USDT",
		Direction:  signal.Long,
		EntryPrice: 100,
		Confidence: 80,
		Context: signal.Context{
			PriceZones: zones.PriceZones{
				InBullishOB: true,
				ActiveZones: []zones.Zone{
					{ID: "ob_bull_1", Bullish: true, Top: 101, Bottom: 99, Strength: 70},
				},
			},
		},
	}
}

// TestConfirmPass verifies a clean rejection-and-reclaim pair of candles
// passes and moves the entry to the confirming close.
func TestConfirmPass(t *testing.T) {
	g := NewGate(60, 5)
	cand := longCandidate()

	m5 := []kucoin.Kline{
		// Wick into the zone bottom with a long rejection tail.
		{Time: 1, Open: 99.5, High: 100.3, Low: 98.5, Close: 100.1, Volume: 500},
		// Close above the zone top.
		{Time: 2, Open: 100, High: 101.8, Low: 98.9, Close: 101.5, Volume: 600},
	}

	result := g.Confirm(cand, m5)
	if !result.Passed {
		t.Fatalf("Expected confirmation to pass, score %f reason %q", result.Score, result.Reason)
	}
	if result.FinalEntry != 101.5 {
		t.Errorf("Expected entry at the confirming close 101.5, got %f", result.FinalEntry)
	}
	if cand.EntryPrice != 101.5 {
		t.Errorf("Expected the candidate entry to move to 101.5, got %f", cand.EntryPrice)
	}
	if cand.Confidence != 85 {
		t.Errorf("Expected the confidence bonus to apply (80+5), got %f", cand.Confidence)
	}
	if len(result.Breakdown) != 2 {
		t.Errorf("Expected a per-candle breakdown for both candles, got %d", len(result.Breakdown))
	}
}

// TestConfirmFailAwayFromZone verifies candles that never touch the zone
// score too low.
func TestConfirmFailAwayFromZone(t *testing.T) {
	g := NewGate(60, 5)
	cand := longCandidate()

	m5 := []kucoin.Kline{
		// Bearish candles far above the zone.
		{Time: 1, Open: 105, High: 105.5, Low: 104, Close: 104.2, Volume: 100},
		{Time: 2, Open: 104.2, High: 104.5, Low: 103, Close: 103.2, Volume: 100},
	}

	result := g.Confirm(cand, m5)
	if result.Passed {
		t.Fatalf("Expected confirmation to fail, score %f", result.Score)
	}
	if cand.EntryPrice != 100 {
		t.Errorf("Failed confirmation must not move the entry, got %f", cand.EntryPrice)
	}
	if cand.Confidence != 80 {
		t.Errorf("Failed confirmation must not change confidence, got %f", cand.Confidence)
	}
}

// TestConfirmTooFewCandles verifies the insufficient-data rejection.
func TestConfirmTooFewCandles(t *testing.T) {
	g := NewGate(60, 5)
	cand := longCandidate()

	result := g.Confirm(cand, []kucoin.Kline{{Time: 1, Open: 100, High: 101, Low: 99, Close: 100.5}})
	if result.Passed {
		t.Fatal("Expected failure with a single candle")
	}
	if result.Reason == "" {
		t.Error("Expected a reason for the rejection")
	}
}

// TestConfirmNoZone verifies candidates without a same-direction zone are
// rejected outright.
func TestConfirmNoZone(t *testing.T) {
	g := NewGate(60, 5)
	cand := longCandidate()
	cand.Context.PriceZones = zones.PriceZones{}

	m5 := []kucoin.Kline{
		{Time: 1, Open: 99.5, High: 100.3, Low: 98.5, Close: 100.1, Volume: 500},
		{Time: 2, Open: 100, High: 101.8, Low: 98.9, Close: 101.5, Volume: 600},
	}

	result := g.Confirm(cand, m5)
	if result.Passed {
		t.Fatal("Expected failure without an originating zone")
	}
}
