package signal

import (
	"strings"
	"testing"

	"kucoin-signal-bot/internal/momentum"
	"kucoin-signal-bot/internal/structure"
	"kucoin-signal-bot/internal/trend"
	"kucoin-signal-bot/internal/zones"
)

func structureContext() Context {
	return Context{
		Trend: trend.State{LongAllowed: true},
		Sweep: &structure.LiquiditySweep{Kind: structure.LowSweep, SweepPrice: 98.5},
		Event: &structure.StructureEvent{Kind: structure.CHoCH, Bullish: true, Strength: 65},
		PriceZones: zones.PriceZones{
			InBullishOB: true,
			ActiveZones: []zones.Zone{{ID: "ob_bull_1", Bullish: true, Top: 101, Bottom: 99, Strength: 70}},
		},
	}
}

// TestComposeStructureCandidate verifies the sweep-plus-break path and its
// fixed confidence.
func TestComposeStructureCandidate(t *testing.T) {
	c := NewComposer(70, 50, 60)

	cand, reason := c.Compose("BTC-USDT", 100, structureContext())
	if cand == nil {
		t.Fatalf("Expected a candidate, got rejection: %s", reason)
	}
	if cand.Direction != Long {
		t.Errorf("Expected LONG after a low sweep with a bullish break, got %s", cand.Direction)
	}
	if cand.Strategy != StrategyStructure {
		t.Errorf("Expected the structure strategy, got %s", cand.Strategy)
	}
	if cand.Confidence != 80 {
		t.Errorf("Expected fixed confidence 80, got %f", cand.Confidence)
	}
	if cand.ID == "" {
		t.Error("Candidate should carry a generated ID")
	}
}

// TestComposeStructureBeatsMomentum verifies candidate priority when both
// setups are present.
func TestComposeStructureBeatsMomentum(t *testing.T) {
	c := NewComposer(70, 50, 60)

	ctx := structureContext()
	ctx.Momentum = &momentum.Pattern{Bullish: true, Strength: 95}

	cand, reason := c.Compose("BTC-USDT", 100, ctx)
	if cand == nil {
		t.Fatalf("Expected a candidate, got rejection: %s", reason)
	}
	if cand.Strategy != StrategyStructure {
		t.Errorf("Structure setup must outrank momentum, got %s", cand.Strategy)
	}
}

// TestComposeMomentumFallback verifies the momentum path when no structure
// setup exists.
func TestComposeMomentumFallback(t *testing.T) {
	c := NewComposer(70, 50, 60)

	ctx := Context{
		Trend:    trend.State{ShortAllowed: true},
		Momentum: &momentum.Pattern{Bullish: false, Strength: 75, ConsecutiveCount: 4},
	}

	cand, reason := c.Compose("ETH-USDT", 2000, ctx)
	if cand == nil {
		t.Fatalf("Expected a momentum candidate, got rejection: %s", reason)
	}
	if cand.Direction != Short {
		t.Errorf("Expected SHORT from a bearish reversal, got %s", cand.Direction)
	}
	if cand.Confidence != 75 {
		t.Errorf("Expected confidence to equal pattern strength 75, got %f", cand.Confidence)
	}
}

// TestComposeBelowConfidenceFloor verifies the no-signal outcome carries a
// reason rather than an error.
func TestComposeBelowConfidenceFloor(t *testing.T) {
	c := NewComposer(70, 50, 60)

	ctx := Context{
		Trend:    trend.State{LongAllowed: true},
		Momentum: &momentum.Pattern{Bullish: true, Strength: 65},
	}

	cand, reason := c.Compose("BTC-USDT", 100, ctx)
	if cand != nil {
		t.Fatalf("Expected rejection below the confidence floor, got confidence %f", cand.Confidence)
	}
	if !strings.Contains(reason, "confidence floor") {
		t.Errorf("Expected a confidence floor reason, got %q", reason)
	}
}

// TestComposeTrendDisallows verifies the trend filter veto on both paths.
func TestComposeTrendDisallows(t *testing.T) {
	c := NewComposer(70, 50, 60)

	ctx := structureContext()
	ctx.Trend = trend.State{}

	if cand, _ := c.Compose("BTC-USDT", 100, ctx); cand != nil {
		t.Error("Structure candidate should be vetoed without the long allowance")
	}

	ctx = Context{Momentum: &momentum.Pattern{Bullish: true, Strength: 90}}
	if cand, _ := c.Compose("BTC-USDT", 100, ctx); cand != nil {
		t.Error("Momentum candidate should be vetoed without the long allowance")
	}
}

// TestComposeNoPrice verifies the missing-price rejection.
func TestComposeNoPrice(t *testing.T) {
	c := NewComposer(70, 50, 60)

	cand, reason := c.Compose("BTC-USDT", 0, structureContext())
	if cand != nil {
		t.Fatal("Expected rejection without a current price")
	}
	if !strings.Contains(reason, "price") {
		t.Errorf("Expected a price-related reason, got %q", reason)
	}
}
