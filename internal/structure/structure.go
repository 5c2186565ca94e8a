package structure

import (
	"kucoin-signal-bot/internal/kucoin"
)

// Bias is the overall market structure read from recent swings.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasRanging Bias = "ranging"
)

// Snapshot is one immutable detection result. It carries no mutable flags;
// level consumption lives in the ConsumedSet passed to Analyze.
type Snapshot struct {
	SwingHighs []SwingPoint
	SwingLows  []SwingPoint
	Sweeps     []LiquiditySweep
	Events     []StructureEvent
	Bias       Bias
}

// LatestSweep returns the strongest sweep in the window, preferring the
// more recent one on equal strength. Nil when the window holds none.
func (s *Snapshot) LatestSweep() *LiquiditySweep {
	if len(s.Sweeps) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(s.Sweeps); i++ {
		if s.Sweeps[i].Strength >= s.Sweeps[best].Strength {
			best = i
		}
	}
	return &s.Sweeps[best]
}

// LatestEvent returns the most recent structure event, or nil.
func (s *Snapshot) LatestEvent() *StructureEvent {
	if len(s.Events) == 0 {
		return nil
	}
	return &s.Events[len(s.Events)-1]
}

// Analyzer locates swing points, liquidity sweeps and structure breaks.
type Analyzer struct {
	swingLookback     int
	sweepLookback     int
	structureLookback int
}

func NewAnalyzer(swingLookback, sweepLookback, structureLookback int) *Analyzer {
	if swingLookback <= 0 {
		swingLookback = 5
	}
	if sweepLookback <= 0 {
		sweepLookback = 20
	}
	if structureLookback <= 0 {
		structureLookback = 10
	}
	return &Analyzer{
		swingLookback:     swingLookback,
		sweepLookback:     sweepLookback,
		structureLookback: structureLookback,
	}
}

// Analyze runs the full structure pass over candles ordered oldest to
// newest. Too few candles yields an empty snapshot with a ranging bias,
// never an error. The consumed set is mutated: every swing that produced a
// sweep or event in this pass is marked.
func (a *Analyzer) Analyze(candles []kucoin.Kline, consumed *ConsumedSet) *Snapshot {
	snapshot := &Snapshot{Bias: BiasRanging}
	if len(candles) < a.swingLookback*2+1 {
		return snapshot
	}

	snapshot.SwingHighs = a.FindSwingHighs(candles)
	snapshot.SwingLows = a.FindSwingLows(candles)
	snapshot.Sweeps = a.DetectSweeps(candles, snapshot.SwingHighs, snapshot.SwingLows, consumed)
	snapshot.Events = a.DetectEvents(candles, snapshot.SwingHighs, snapshot.SwingLows, consumed)
	snapshot.Bias = a.DetermineBias(snapshot.SwingHighs, snapshot.SwingLows)

	return snapshot
}

// DetermineBias compares the two most recent swings per side: both rising
// means bullish, both falling means bearish, anything mixed is ranging.
func (a *Analyzer) DetermineBias(highs, lows []SwingPoint) Bias {
	if len(highs) < 2 || len(lows) < 2 {
		return BiasRanging
	}

	highsRising := highs[len(highs)-1].Price > highs[len(highs)-2].Price
	lowsRising := lows[len(lows)-1].Price > lows[len(lows)-2].Price

	switch {
	case highsRising && lowsRising:
		return BiasBullish
	case !highsRising && !lowsRising:
		return BiasBearish
	default:
		return BiasRanging
	}
}
