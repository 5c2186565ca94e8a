package structure

import (
	"testing"

	"kucoin-signal-bot/internal/kucoin"
)

// flat builds a neutral candle around the given midpoint.
func flat(ts int64, mid float64) kucoin.Kline {
	return kucoin.Kline{Time: ts, Open: mid, High: mid + 1, Low: mid - 1, Close: mid + 0.2, Volume: 100}
}

// TestFindSwingHighsStrictExtremum verifies that only a strict maximum over
// the symmetric window qualifies.
func TestFindSwingHighsStrictExtremum(t *testing.T) {
	a := NewAnalyzer(2, 20, 10)

	candles := []kucoin.Kline{
		{Time: 1, Open: 99, High: 100, Low: 98, Close: 99.5},
		{Time: 2, Open: 100, High: 101, Low: 99, Close: 100.5},
		{Time: 3, Open: 101, High: 105, Low: 100, Close: 104}, // strict peak
		{Time: 4, Open: 104, High: 104.5, Low: 102, Close: 103},
		{Time: 5, Open: 103, High: 103.5, Low: 101, Close: 102},
	}

	swings := a.FindSwingHighs(candles)
	if len(swings) != 1 {
		t.Fatalf("Expected 1 swing high, got %d", len(swings))
	}
	if swings[0].Price != 105 {
		t.Errorf("Expected swing high at 105, got %f", swings[0].Price)
	}
	if swings[0].Index != 2 {
		t.Errorf("Expected swing index 2, got %d", swings[0].Index)
	}
}

// TestLatestSweepPrefersStrongest verifies that sweep selection is by
// strength, with recency breaking ties.
func TestLatestSweepPrefersStrongest(t *testing.T) {
	snap := &Snapshot{
		Sweeps: []LiquiditySweep{
			{Kind: LowSweep, Time: 1, SweepPrice: 95, Strength: 85},
			{Kind: HighSweep, Time: 2, SweepPrice: 110, Strength: 60},
		},
	}

	sweep := snap.LatestSweep()
	if sweep == nil {
		t.Fatal("Expected a sweep")
	}
	if sweep.Strength != 85 || sweep.Kind != LowSweep {
		t.Errorf("Expected the strength-85 low sweep to win, got %v strength %f", sweep.Kind, sweep.Strength)
	}

	// Equal strength: the later sweep wins.
	snap.Sweeps[1].Strength = 85
	sweep = snap.LatestSweep()
	if sweep.Time != 2 {
		t.Errorf("Expected the more recent sweep on a strength tie, got time %d", sweep.Time)
	}

	empty := &Snapshot{}
	if empty.LatestSweep() != nil {
		t.Error("Empty snapshot should yield no sweep")
	}
}

// TestFindSwingHighsEqualHighDisqualifies verifies that an equal high inside
// the window prevents the swing.
func TestFindSwingHighsEqualHighDisqualifies(t *testing.T) {
	a := NewAnalyzer(2, 20, 10)

	candles := []kucoin.Kline{
		{Time: 1, Open: 99, High: 100, Low: 98, Close: 99.5},
		{Time: 2, Open: 100, High: 105, Low: 99, Close: 100.5}, // equal high
		{Time: 3, Open: 101, High: 105, Low: 100, Close: 104},
		{Time: 4, Open: 104, High: 104.5, Low: 102, Close: 103},
		{Time: 5, Open: 103, High: 103.5, Low: 101, Close: 102},
	}

	if swings := a.FindSwingHighs(candles); len(swings) != 0 {
		t.Errorf("Expected no swing highs with an equal high in the window, got %d", len(swings))
	}
}

// TestDetectSweepsLowSweep verifies the close-back invariant and the
// swept-once rule.
func TestDetectSweepsLowSweep(t *testing.T) {
	a := NewAnalyzer(2, 20, 10)

	candles := []kucoin.Kline{
		flat(1, 100),
		flat(2, 98),
		{Time: 3, Open: 97, High: 98, Low: 95, Close: 97.5}, // swing low at 95
		flat(4, 98),
		flat(5, 100),
		flat(6, 99),
		// Sweep candle: wick below 95, close back above it.
		{Time: 7, Open: 97, High: 97.5, Low: 94, Close: 96, Volume: 100},
	}

	consumed := NewConsumedSet()
	lows := a.FindSwingLows(candles)
	if len(lows) != 1 {
		t.Fatalf("Expected 1 swing low, got %d", len(lows))
	}

	sweeps := a.DetectSweeps(candles, nil, lows, consumed)
	if len(sweeps) != 1 {
		t.Fatalf("Expected 1 sweep, got %d", len(sweeps))
	}

	sweep := sweeps[0]
	if sweep.Kind != LowSweep {
		t.Errorf("Expected low_sweep, got %s", sweep.Kind)
	}
	if sweep.Level != 95 {
		t.Errorf("Expected swept level 95, got %f", sweep.Level)
	}
	if sweep.ClosePrice <= sweep.Level {
		t.Errorf("Low sweep close %f must finish back above the level %f", sweep.ClosePrice, sweep.Level)
	}
	if !consumed.Has(sweep.SwingID) {
		t.Error("Detection should mark the swept swing in the consumed set")
	}

	// The same level must never be swept twice.
	if again := a.DetectSweeps(candles, nil, lows, consumed); len(again) != 0 {
		t.Errorf("Expected no sweeps on re-scan with the same consumed set, got %d", len(again))
	}
}

// TestAnalyzeIdempotence verifies that identical inputs with fresh consumed
// sets produce identical snapshots.
func TestAnalyzeIdempotence(t *testing.T) {
	a := NewAnalyzer(2, 20, 10)

	candles := []kucoin.Kline{
		flat(1, 100), flat(2, 98),
		{Time: 3, Open: 97, High: 98, Low: 95, Close: 97.5},
		flat(4, 98), flat(5, 100), flat(6, 99),
		{Time: 7, Open: 97, High: 97.5, Low: 94, Close: 96, Volume: 100},
		flat(8, 97), flat(9, 98),
	}

	first := a.Analyze(candles, NewConsumedSet())
	second := a.Analyze(candles, NewConsumedSet())

	if len(first.Sweeps) != len(second.Sweeps) {
		t.Fatalf("Expected identical sweep counts, got %d and %d", len(first.Sweeps), len(second.Sweeps))
	}
	for i := range first.Sweeps {
		if first.Sweeps[i].SwingID != second.Sweeps[i].SwingID {
			t.Errorf("Sweep %d swing IDs differ: %s vs %s", i, first.Sweeps[i].SwingID, second.Sweeps[i].SwingID)
		}
	}
	if len(first.SwingLows) != len(second.SwingLows) {
		t.Fatalf("Expected identical swing low counts, got %d and %d", len(first.SwingLows), len(second.SwingLows))
	}
	for i := range first.SwingLows {
		if first.SwingLows[i].ID != second.SwingLows[i].ID {
			t.Errorf("Swing %d IDs differ: %s vs %s", i, first.SwingLows[i].ID, second.SwingLows[i].ID)
		}
	}
}

// TestDetermineBias verifies bias from the last two swings per side.
func TestDetermineBias(t *testing.T) {
	a := NewAnalyzer(2, 20, 10)

	rising := []SwingPoint{{Price: 100, Index: 1}, {Price: 105, Index: 5}}
	risingLows := []SwingPoint{{Price: 95, Index: 3}, {Price: 99, Index: 7}}
	if bias := a.DetermineBias(rising, risingLows); bias != BiasBullish {
		t.Errorf("Expected bullish bias for higher highs and higher lows, got %s", bias)
	}

	falling := []SwingPoint{{Price: 105, Index: 1}, {Price: 100, Index: 5}}
	fallingLows := []SwingPoint{{Price: 99, Index: 3}, {Price: 95, Index: 7}}
	if bias := a.DetermineBias(falling, fallingLows); bias != BiasBearish {
		t.Errorf("Expected bearish bias for lower highs and lower lows, got %s", bias)
	}

	mixed := []SwingPoint{{Price: 100, Index: 1}, {Price: 105, Index: 5}}
	mixedLows := []SwingPoint{{Price: 99, Index: 3}, {Price: 95, Index: 7}}
	if bias := a.DetermineBias(mixed, mixedLows); bias != BiasRanging {
		t.Errorf("Expected ranging bias for conflicting swings, got %s", bias)
	}
}
