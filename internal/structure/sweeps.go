package structure

import (
	"math"

	"kucoin-signal-bot/internal/kucoin"
)

// SweepKind distinguishes which side's liquidity was taken.
type SweepKind string

const (
	HighSweep SweepKind = "high_sweep" // wick above a swing high, close back below
	LowSweep  SweepKind = "low_sweep"  // wick below a swing low, close back above
)

// LiquiditySweep is a false breakout of a swing level. The close always
// finishes back on the opposite side of the level from the wick extreme.
type LiquiditySweep struct {
	Kind       SweepKind
	Time       int64
	SweepPrice float64 // wick extreme
	Level      float64 // the swept swing's price
	ClosePrice float64
	Strength   float64 // 0-100
	SwingID    string  // the consumed swing level
}

// DetectSweeps scans the most recent window for wicks through unswept swing
// levels. Each swing can be swept at most once; detection marks the swing
// in the consumed set. Results are ordered oldest to newest.
func (a *Analyzer) DetectSweeps(candles []kucoin.Kline, highs, lows []SwingPoint, consumed *ConsumedSet) []LiquiditySweep {
	if len(candles) == 0 {
		return nil
	}

	start := len(candles) - a.sweepLookback
	if start < 0 {
		start = 0
	}

	var sweeps []LiquiditySweep
	for i := start; i < len(candles); i++ {
		candle := candles[i]

		for _, swing := range highs {
			if consumed.Has(swing.ID) || swing.Index >= i {
				continue
			}
			if candle.High > swing.Price && candle.Close < swing.Price {
				consumed.Consume(swing.ID)
				sweeps = append(sweeps, LiquiditySweep{
					Kind:       HighSweep,
					Time:       candle.Time,
					SweepPrice: candle.High,
					Level:      swing.Price,
					ClosePrice: candle.Close,
					Strength:   sweepStrength(candle, swing.Price, true),
					SwingID:    swing.ID,
				})
			}
		}

		for _, swing := range lows {
			if consumed.Has(swing.ID) || swing.Index >= i {
				continue
			}
			if candle.Low < swing.Price && candle.Close > swing.Price {
				consumed.Consume(swing.ID)
				sweeps = append(sweeps, LiquiditySweep{
					Kind:       LowSweep,
					Time:       candle.Time,
					SweepPrice: candle.Low,
					Level:      swing.Price,
					ClosePrice: candle.Close,
					Strength:   sweepStrength(candle, swing.Price, false),
					SwingID:    swing.ID,
				})
			}
		}
	}

	return sweeps
}

// sweepStrength blends penetration depth vs candle body (40%), wick-to-body
// ratio (30%) and same-candle rejection (30%) into a 0-100 score.
func sweepStrength(candle kucoin.Kline, level float64, highSide bool) float64 {
	body := candle.Body()
	if body <= 0 {
		body = candle.Range() * 0.1
	}
	if body <= 0 {
		return 0
	}

	var penetration, wick, rejection float64
	if highSide {
		penetration = candle.High - level
		wick = candle.UpperWick()
		rejection = candle.High - candle.Close
	} else {
		penetration = level - candle.Low
		wick = candle.LowerWick()
		rejection = candle.Close - candle.Low
	}

	score := math.Min(penetration/body, 1) * 40
	score += math.Min(wick/(2*body), 1) * 30
	if candle.Range() > 0 {
		score += math.Min(rejection/candle.Range(), 1) * 30
	}

	return math.Min(score, 100)
}
