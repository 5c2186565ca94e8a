package risk

import (
	"errors"
	"math"
	"testing"

	"kucoin-signal-bot/internal/market"
	"kucoin-signal-bot/internal/signal"
	"kucoin-signal-bot/internal/structure"
)

func defaultEngine() *Engine {
	return NewEngine(Config{})
}

// TestComputeLongOrdering verifies stop < entry < tp1 < tp2 < tp3 and the
// sweep wick winning stop selection.
func TestComputeLongOrdering(t *testing.T) {
	e := defaultEngine()

	cand := &signal.Candidate{
		Direction:  signal.Long,
		EntryPrice: 100,
		Context: signal.Context{
			Sweep: &structure.LiquiditySweep{Kind: structure.LowSweep, SweepPrice: 98.5, Level: 99},
		},
	}

	levels, err := e.Compute(cand)
	if err != nil {
		t.Fatalf("Expected levels, got error: %v", err)
	}

	if levels.StopSource != "sweep_wick" {
		t.Errorf("Expected the sweep wick stop to win, got %s", levels.StopSource)
	}
	if !(levels.StopLoss < 100 && 100 < levels.TP1 && levels.TP1 < levels.TP2 && levels.TP2 < levels.TP3) {
		t.Errorf("Long ordering violated: stop %f entry 100 tps %f/%f/%f",
			levels.StopLoss, levels.TP1, levels.TP2, levels.TP3)
	}
	if math.Abs(levels.RiskReward-1.5) > 1e-9 {
		t.Errorf("Expected risk/reward 1.5 without liquidity pull, got %f", levels.RiskReward)
	}
}

// TestComputeShortOrdering verifies the mirrored invariant.
func TestComputeShortOrdering(t *testing.T) {
	e := defaultEngine()

	cand := &signal.Candidate{
		Direction:  signal.Short,
		EntryPrice: 100,
		Context: signal.Context{
			Sweep: &structure.LiquiditySweep{Kind: structure.HighSweep, SweepPrice: 101.5, Level: 101},
		},
	}

	levels, err := e.Compute(cand)
	if err != nil {
		t.Fatalf("Expected levels, got error: %v", err)
	}

	if !(levels.StopLoss > 100 && 100 > levels.TP1 && levels.TP1 > levels.TP2 && levels.TP2 > levels.TP3) {
		t.Errorf("Short ordering violated: stop %f entry 100 tps %f/%f/%f",
			levels.StopLoss, levels.TP1, levels.TP2, levels.TP3)
	}
}

// TestComputeFallbackStop verifies the fixed-percent stop when no candidate
// qualifies.
func TestComputeFallbackStop(t *testing.T) {
	e := defaultEngine()

	cand := &signal.Candidate{Direction: signal.Long, EntryPrice: 100}

	levels, err := e.Compute(cand)
	if err != nil {
		t.Fatalf("Expected levels, got error: %v", err)
	}
	if levels.StopSource != "fallback_percent" {
		t.Errorf("Expected the fallback stop, got %s", levels.StopSource)
	}
	if math.Abs(levels.StopLoss-98) > 1e-9 {
		t.Errorf("Expected fallback stop at 98 for a 2%% default, got %f", levels.StopLoss)
	}
}

// TestComputeStopOutsideBandRejected verifies that a sweep wick too close to
// entry loses to the fallback.
func TestComputeStopOutsideBandRejected(t *testing.T) {
	e := defaultEngine()

	cand := &signal.Candidate{
		Direction:  signal.Long,
		EntryPrice: 100,
		Context: signal.Context{
			// 0.2 away plus buffer: 0.3% risk is inside the band, so
			// bring it closer than the 0.5% minimum.
			Sweep: &structure.LiquiditySweep{Kind: structure.LowSweep, SweepPrice: 99.9},
		},
	}

	levels, err := e.Compute(cand)
	if err != nil {
		t.Fatalf("Expected levels, got error: %v", err)
	}
	if levels.StopSource != "fallback_percent" {
		t.Errorf("Expected a too-tight sweep stop to be rejected, got %s", levels.StopSource)
	}
}

// TestComputeCounterTrendReducedTargets verifies that a counter-trend
// candidate survives with default config: targets shrink to half scale and
// the risk/reward floor shrinks with them.
func TestComputeCounterTrendReducedTargets(t *testing.T) {
	e := defaultEngine()

	cand := &signal.Candidate{
		Direction:  signal.Long,
		EntryPrice: 100,
		Context: signal.Context{
			HTFBias: structure.BiasBearish,
			Sweep:   &structure.LiquiditySweep{Kind: structure.LowSweep, SweepPrice: 98.5},
		},
	}

	levels, err := e.Compute(cand)
	if err != nil {
		t.Fatalf("Expected a counter-trend candidate to survive at defaults, got: %v", err)
	}
	if math.Abs(levels.RiskReward-0.75) > 1e-9 {
		t.Errorf("Expected risk/reward 0.75 at half scale, got %f", levels.RiskReward)
	}
	if !(levels.TP1 > 100 && levels.TP1 < levels.TP2 && levels.TP2 < levels.TP3) {
		t.Errorf("Counter-trend ladder still needs strict ordering: %f/%f/%f",
			levels.TP1, levels.TP2, levels.TP3)
	}
}

// TestComputeCounterTrendVariants walks several stop distances to show the
// reduced floor admits all of them at default config.
func TestComputeCounterTrendVariants(t *testing.T) {
	e := defaultEngine()

	for _, sweepPrice := range []float64{98.5, 97.0, 95.5} {
		cand := &signal.Candidate{
			Direction:  signal.Long,
			EntryPrice: 100,
			Context: signal.Context{
				HTFBias: structure.BiasBearish,
				Sweep:   &structure.LiquiditySweep{Kind: structure.LowSweep, SweepPrice: sweepPrice},
			},
		}
		if _, err := e.Compute(cand); err != nil {
			t.Errorf("Counter-trend long with sweep at %.1f should pass, got %v", sweepPrice, err)
		}
	}

	// No stop candidate at all: the fallback stop must also survive.
	cand := &signal.Candidate{
		Direction:  signal.Long,
		EntryPrice: 100,
		Context:    signal.Context{HTFBias: structure.BiasBearish},
	}
	if _, err := e.Compute(cand); err != nil {
		t.Errorf("Counter-trend long on the fallback stop should pass, got %v", err)
	}
}

// TestComputeCounterTrendFloorStillBinds verifies the scaled floor still
// rejects when the configured minimum is raised past the achievable ratio.
func TestComputeCounterTrendFloorStillBinds(t *testing.T) {
	e := NewEngine(Config{MinRiskReward: 2.0})

	cand := &signal.Candidate{
		Direction:  signal.Long,
		EntryPrice: 100,
		Context: signal.Context{
			HTFBias: structure.BiasBearish,
			Sweep:   &structure.LiquiditySweep{Kind: structure.LowSweep, SweepPrice: 98.5},
		},
	}

	// Scaled floor 2.0 * 0.5 = 1.0 against an achieved 0.75.
	if _, err := e.Compute(cand); !errors.Is(err, ErrRiskRewardTooLow) {
		t.Errorf("Expected ErrRiskRewardTooLow under a raised floor, got %v", err)
	}
}

// TestComputeTrendAlignedFloorUnchanged verifies the full floor still
// applies to with-trend candidates.
func TestComputeTrendAlignedFloorUnchanged(t *testing.T) {
	e := NewEngine(Config{MinRiskReward: 2.0})

	cand := &signal.Candidate{
		Direction:  signal.Long,
		EntryPrice: 100,
		Context: signal.Context{
			HTFBias: structure.BiasBullish,
			Sweep:   &structure.LiquiditySweep{Kind: structure.LowSweep, SweepPrice: 98.5},
		},
	}

	// Aligned achieved ratio is 1.5 against a floor of 2.0.
	if _, err := e.Compute(cand); !errors.Is(err, ErrRiskRewardTooLow) {
		t.Errorf("Expected ErrRiskRewardTooLow for an aligned candidate under the full floor, got %v", err)
	}
}

// TestAdjustToLiquidityRestoresLadder verifies that targets pulled to the
// same liquidity level are re-spread into a strictly ordered ladder.
func TestAdjustToLiquidityRestoresLadder(t *testing.T) {
	e := defaultEngine()

	cand := &signal.Candidate{
		Direction:  signal.Long,
		EntryPrice: 100,
		Context: signal.Context{
			Sweep: &structure.LiquiditySweep{Kind: structure.LowSweep, SweepPrice: 98.5},
			Liquidity: []market.Level{
				{Price: 104, Kind: market.EqualHighs},
			},
		},
	}

	levels, err := e.Compute(cand)
	if err != nil {
		t.Fatalf("Expected levels, got error: %v", err)
	}

	pulled := 104 * 0.999
	if math.Abs(levels.TP2-pulled) > 1e-9 {
		t.Errorf("Expected TP2 pulled to just inside the liquidity level (%f), got %f", pulled, levels.TP2)
	}
	if !(levels.TP1 < levels.TP2 && levels.TP2 < levels.TP3) {
		t.Errorf("Ladder ordering not restored: %f/%f/%f", levels.TP1, levels.TP2, levels.TP3)
	}
}

// TestComputeInvalidEntry verifies the sentinel for a nonsensical entry.
func TestComputeInvalidEntry(t *testing.T) {
	e := defaultEngine()

	cand := &signal.Candidate{Direction: signal.Long, EntryPrice: 0}
	if _, err := e.Compute(cand); !errors.Is(err, ErrInvalidLevels) {
		t.Errorf("Expected ErrInvalidLevels for a zero entry, got %v", err)
	}
}
