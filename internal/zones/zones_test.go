package zones

import (
	"testing"

	"kucoin-signal-bot/internal/kucoin"
	"kucoin-signal-bot/internal/structure"
)

// TestDetectBullishFVG verifies the gap boundaries when the first candle's
// high sits below the third candle's low.
func TestDetectBullishFVG(t *testing.T) {
	d := NewDetector(50)

	candles := []kucoin.Kline{
		// First candle: high at 100
		{Time: 1, Open: 97, High: 100, Low: 96, Close: 99, Volume: 100},
		// Middle candle: the displacement
		{Time: 2, Open: 99, High: 107, Low: 98, Close: 106, Volume: 300},
		// Third candle: low at 105, leaving a 100-105 gap
		{Time: 3, Open: 106, High: 110, Low: 105, Close: 109, Volume: 150},
	}

	bullish, bearish := d.DetectFVGs(candles, structure.NewConsumedSet())
	if len(bullish) != 1 {
		t.Fatalf("Expected 1 bullish FVG, got %d", len(bullish))
	}
	if len(bearish) != 0 {
		t.Errorf("Expected no bearish FVGs, got %d", len(bearish))
	}

	gap := bullish[0]
	if gap.Bottom != 100 {
		t.Errorf("Expected gap bottom 100, got %f", gap.Bottom)
	}
	if gap.Top != 105 {
		t.Errorf("Expected gap top 105, got %f", gap.Top)
	}
	if gap.Top < gap.Bottom {
		t.Error("Gap top must never sit below its bottom")
	}
	if gap.Filled() {
		t.Error("Gap with no subsequent candles should not be filled")
	}
}

// TestFVGFillConsumesGap verifies that a later candle trading through the
// entire gap removes it and records the ID in the consumed set.
func TestFVGFillConsumesGap(t *testing.T) {
	d := NewDetector(50)

	candles := []kucoin.Kline{
		{Time: 1, Open: 97, High: 100, Low: 96, Close: 99, Volume: 100},
		{Time: 2, Open: 99, High: 107, Low: 98, Close: 106, Volume: 300},
		{Time: 3, Open: 106, High: 110, Low: 105, Close: 109, Volume: 150},
		// Retrace through the full gap.
		{Time: 4, Open: 108, High: 108, Low: 99, Close: 101, Volume: 200},
	}

	consumed := structure.NewConsumedSet()
	bullish, _ := d.DetectFVGs(candles, consumed)
	if len(bullish) != 0 {
		t.Fatalf("Expected the filled gap to be excluded, got %d bullish FVGs", len(bullish))
	}
	if !consumed.Has("fvg_bull_2") {
		t.Error("Filled gap should be recorded in the consumed set")
	}
}

// TestDetectBullishOrderBlock verifies the counter-candle plus follow-through
// rule.
func TestDetectBullishOrderBlock(t *testing.T) {
	d := NewDetector(50)

	candles := []kucoin.Kline{
		// Counter candle: bearish, high 101 low 99
		{Time: 1, Open: 101, High: 101, Low: 99, Close: 99.5, Volume: 100},
		// Two of the next three close above its high.
		{Time: 2, Open: 99.5, High: 103, Low: 99, Close: 102, Volume: 200},
		{Time: 3, Open: 102, High: 105, Low: 101.5, Close: 104, Volume: 200},
		{Time: 4, Open: 104, High: 106, Low: 103, Close: 105, Volume: 150},
	}

	bullish, bearish := d.DetectOrderBlocks(candles, structure.NewConsumedSet())
	if len(bullish) != 1 {
		t.Fatalf("Expected 1 bullish order block, got %d", len(bullish))
	}
	if len(bearish) != 0 {
		t.Errorf("Expected no bearish order blocks, got %d", len(bearish))
	}

	ob := bullish[0]
	if ob.Top != 101 || ob.Bottom != 99 {
		t.Errorf("Expected zone 99-101, got %f-%f", ob.Bottom, ob.Top)
	}
	if ob.Top < ob.Bottom {
		t.Error("Order block top must never sit below its bottom")
	}
	if ob.TestedCount != 0 {
		t.Errorf("Expected an untested block, got %d tests", ob.TestedCount)
	}
}

// TestDetectOrderBlockWickBreak verifies that the follow-through only
// needs to trade above the counter candle's high; closes may stay below
// the level.
func TestDetectOrderBlockWickBreak(t *testing.T) {
	d := NewDetector(50)

	candles := []kucoin.Kline{
		// Counter candle: bearish, high 105.5 low 103.
		{Time: 1, Open: 105.5, High: 105.5, Low: 103, Close: 103.5, Volume: 100},
		// Two bullish candles wick above 105.5 but close under it.
		{Time: 2, Open: 103.5, High: 106.5, Low: 103.2, Close: 105, Volume: 200},
		{Time: 3, Open: 105, High: 107, Low: 104.5, Close: 105.3, Volume: 200},
		{Time: 4, Open: 105.3, High: 105.4, Low: 104.8, Close: 105, Volume: 150},
	}

	bullish, _ := d.DetectOrderBlocks(candles, structure.NewConsumedSet())
	if len(bullish) != 1 {
		t.Fatalf("Expected 1 bullish order block from a wick break, got %d", len(bullish))
	}
	if bullish[0].Top != 105.5 || bullish[0].Bottom != 103 {
		t.Errorf("Expected zone 103-105.5, got %f-%f", bullish[0].Bottom, bullish[0].Top)
	}
}

// TestDetectOrderBlockNeedsTwoDirectional verifies that a wick through the
// level without two same-direction candles does not qualify.
func TestDetectOrderBlockNeedsTwoDirectional(t *testing.T) {
	d := NewDetector(50)

	candles := []kucoin.Kline{
		{Time: 1, Open: 105.5, High: 105.5, Low: 103, Close: 103.5, Volume: 100},
		// One bullish wick through, then two bearish candles.
		{Time: 2, Open: 103.5, High: 106.5, Low: 103.2, Close: 105, Volume: 200},
		{Time: 3, Open: 105, High: 105.2, Low: 103.8, Close: 104, Volume: 200},
		{Time: 4, Open: 104, High: 104.2, Low: 103.2, Close: 103.4, Volume: 150},
	}

	bullish, _ := d.DetectOrderBlocks(candles, structure.NewConsumedSet())
	if len(bullish) != 0 {
		t.Errorf("Expected no bullish order block with a single bullish candle, got %d", len(bullish))
	}
}

// TestCheckPriceExcludesConsumed verifies that containment queries skip
// zones marked in the consumed set.
func TestCheckPriceExcludesConsumed(t *testing.T) {
	d := NewDetector(50)

	snapshot := &Snapshot{
		BullishOBs: []OrderBlock{
			{ID: "ob_bull_1", Bullish: true, Top: 101, Bottom: 99, Strength: 70},
		},
		BullishFVGs: []FairValueGap{
			{ID: "fvg_bull_2", Bullish: true, Top: 100.5, Bottom: 99.5, Strength: 55},
		},
	}

	consumed := structure.NewConsumedSet()
	result := d.CheckPrice(100, snapshot, consumed)
	if !result.InBullishOB || !result.InBullishFVG {
		t.Fatal("Price 100 should sit inside both bullish zones")
	}
	if len(result.ActiveZones) != 2 {
		t.Fatalf("Expected 2 active zones, got %d", len(result.ActiveZones))
	}
	if result.ActiveZones[0].Strength < result.ActiveZones[1].Strength {
		t.Error("Active zones must be ordered strongest first")
	}

	consumed.Consume("ob_bull_1")
	result = d.CheckPrice(100, snapshot, consumed)
	if result.InBullishOB {
		t.Error("Consumed order block should not register containment")
	}
	if len(result.ActiveZones) != 1 {
		t.Errorf("Expected 1 active zone after consumption, got %d", len(result.ActiveZones))
	}
}

// TestZoneBoundsInvariant runs the detector over a varied series and checks
// that every returned zone keeps top at or above bottom.
func TestZoneBoundsInvariant(t *testing.T) {
	d := NewDetector(50)

	var candles []kucoin.Kline
	prices := []float64{100, 102, 99, 104, 103, 108, 105, 101, 106, 110, 107, 103, 109, 112, 108}
	for i, p := range prices {
		candles = append(candles, kucoin.Kline{
			Time:   int64(i) * 60,
			Open:   p,
			High:   p + 2,
			Low:    p - 2,
			Close:  p + 1,
			Volume: 100 + float64(i)*10,
		})
	}

	snapshot := d.Detect(candles, structure.NewConsumedSet())
	for _, ob := range append(snapshot.BullishOBs, snapshot.BearishOBs...) {
		if ob.Top < ob.Bottom {
			t.Errorf("Order block %s has top %f below bottom %f", ob.ID, ob.Top, ob.Bottom)
		}
	}
	for _, gap := range append(snapshot.BullishFVGs, snapshot.BearishFVGs...) {
		if gap.Top < gap.Bottom {
			t.Errorf("FVG %s has top %f below bottom %f", gap.ID, gap.Top, gap.Bottom)
		}
	}
}
