package zones

import (
	"fmt"
	"math"
	"sort"

	"kucoin-signal-bot/internal/kucoin"
	"kucoin-signal-bot/internal/structure"
)

// FairValueGap is a 3-candle imbalance. Bullish when the first candle's
// high sits below the third candle's low; bearish mirrored. Top >= Bottom
// always holds. Fill state is computed at detection time from the candles
// that followed the gap; a fully filled gap is marked in the consumed set
// and never surfaces as an active zone again.
type FairValueGap struct {
	ID          string
	Bullish     bool
	Top         float64
	Bottom      float64
	Time        int64 // middle candle open time
	Strength    float64
	FillPercent float64
}

// Filled reports whether the gap has been fully traded through.
func (f *FairValueGap) Filled() bool {
	return f.FillPercent >= 100
}

// DetectFVGs scans the lookback window for 3-candle gaps, computes fill
// state from subsequent candles, and returns the strongest maxFVGsPerSide
// unfilled gaps per direction, ordered strongest first.
func (d *Detector) DetectFVGs(candles []kucoin.Kline, consumed *structure.ConsumedSet) (bullish, bearish []FairValueGap) {
	if len(candles) < 3 {
		return nil, nil
	}

	start := len(candles) - d.zoneLookback
	if start < 0 {
		start = 0
	}

	avgRange := averageTrueRange(candles, 14)

	for i := start; i+2 < len(candles); i++ {
		first, middle, third := candles[i], candles[i+1], candles[i+2]

		if first.High < third.Low {
			gap := FairValueGap{
				ID:      fvgID(true, middle.Time),
				Bullish: true,
				Top:     third.Low,
				Bottom:  first.High,
				Time:    middle.Time,
			}
			gap.Strength = fvgStrength(gap, middle, avgRange, candles)
			gap.FillPercent = fvgFillPercent(gap, candles[i+3:])
			if gap.Filled() {
				consumed.Consume(gap.ID)
				continue
			}
			if consumed.Has(gap.ID) {
				continue
			}
			bullish = append(bullish, gap)
		}

		if first.Low > third.High {
			gap := FairValueGap{
				ID:      fvgID(false, middle.Time),
				Bullish: false,
				Top:     first.Low,
				Bottom:  third.High,
				Time:    middle.Time,
			}
			gap.Strength = fvgStrength(gap, middle, avgRange, candles)
			gap.FillPercent = fvgFillPercent(gap, candles[i+3:])
			if gap.Filled() {
				consumed.Consume(gap.ID)
				continue
			}
			if consumed.Has(gap.ID) {
				continue
			}
			bearish = append(bearish, gap)
		}
	}

	return topByStrengthFVG(bullish, maxFVGsPerSide), topByStrengthFVG(bearish, maxFVGsPerSide)
}

// fvgStrength blends gap size vs rolling true range (40%), the middle
// candle's body vs its range (30%), and volume vs rolling average (30%).
func fvgStrength(gap FairValueGap, middle kucoin.Kline, avgRange float64, candles []kucoin.Kline) float64 {
	score := 0.0

	gapSize := gap.Top - gap.Bottom
	if avgRange > 0 {
		score += math.Min(gapSize/avgRange, 1) * 40
	}

	if middle.Range() > 0 {
		score += middle.Body() / middle.Range() * 30
	}

	avgVolume := averageVolume(candles, 20)
	if avgVolume > 0 {
		score += math.Min(middle.Volume/(2*avgVolume), 1) * 30
	}

	return math.Min(score, 100)
}

// fvgFillPercent measures how deep later candles traded back into the gap.
func fvgFillPercent(gap FairValueGap, after []kucoin.Kline) float64 {
	gapSize := gap.Top - gap.Bottom
	if gapSize <= 0 {
		return 100
	}

	maxFill := 0.0
	for _, c := range after {
		var fill float64
		if gap.Bullish {
			// Price falling back into a bullish gap fills it top-down.
			if c.Low < gap.Top {
				fill = (gap.Top - math.Max(c.Low, gap.Bottom)) / gapSize * 100
				if c.Low <= gap.Bottom {
					fill = 100
				}
			}
		} else {
			if c.High > gap.Bottom {
				fill = (math.Min(c.High, gap.Top) - gap.Bottom) / gapSize * 100
				if c.High >= gap.Top {
					fill = 100
				}
			}
		}
		if fill > maxFill {
			maxFill = fill
		}
	}
	return maxFill
}

func topByStrengthFVG(gaps []FairValueGap, limit int) []FairValueGap {
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Strength > gaps[j].Strength })
	if len(gaps) > limit {
		gaps = gaps[:limit]
	}
	return gaps
}

func fvgID(bullish bool, ts int64) string {
	side := "bear"
	if bullish {
		side = "bull"
	}
	return fmt.Sprintf("fvg_%s_%d", side, ts)
}
