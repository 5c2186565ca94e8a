package zones

import (
	"fmt"
	"math"
	"sort"

	"kucoin-signal-bot/internal/kucoin"
	"kucoin-signal-bot/internal/structure"
)

// OrderBlock is the last counter-trend candle before a strong move. A
// bullish OB is the final bearish candle before a window of three candles
// holding at least two bullish ones and trading above its high; bearish is
// the mirror.
// Top >= Bottom always holds. TestedCount is computed at detection time
// from the candles that revisited the zone; a block mitigated more than
// maxMitigations times is consumed and dropped from active zones.
type OrderBlock struct {
	ID          string
	Bullish     bool
	Top         float64
	Bottom      float64
	Time        int64
	Strength    float64
	TestedCount int
}

const maxMitigations = 2

// DetectOrderBlocks scans the lookback window and returns the strongest
// maxOBsPerSide blocks per direction, strongest first.
func (d *Detector) DetectOrderBlocks(candles []kucoin.Kline, consumed *structure.ConsumedSet) (bullish, bearish []OrderBlock) {
	if len(candles) < 4 {
		return nil, nil
	}

	start := len(candles) - d.zoneLookback
	if start < 0 {
		start = 0
	}

	avgBody := averageBody(candles, 10)
	avgRange := averageTrueRange(candles, 14)
	avgVolume := averageVolume(candles, 20)

	for i := start; i+3 < len(candles); i++ {
		candle := candles[i]

		// Bullish OB: bearish candle whose high is broken by the
		// following bullish run.
		if !candle.IsBullish() {
			if confirmsBreak(candles[i+1:i+4], candle.High, true) {
				ob := OrderBlock{
					ID:      obID(true, candle.Time),
					Bullish: true,
					Top:     candle.High,
					Bottom:  candle.Low,
					Time:    candle.Time,
				}
				ob.TestedCount = countTests(ob, candles[i+4:])
				ob.Strength = obStrength(candle, candles[i+1:i+4], avgBody, avgRange, avgVolume, ob.TestedCount)
				if ob.TestedCount > maxMitigations {
					consumed.Consume(ob.ID)
					continue
				}
				if consumed.Has(ob.ID) {
					continue
				}
				bullish = append(bullish, ob)
			}
		}

		// Bearish OB: bullish candle whose low is broken downward.
		if candle.IsBullish() {
			if confirmsBreak(candles[i+1:i+4], candle.Low, false) {
				ob := OrderBlock{
					ID:      obID(false, candle.Time),
					Bullish: false,
					Top:     candle.High,
					Bottom:  candle.Low,
					Time:    candle.Time,
				}
				ob.TestedCount = countTests(ob, candles[i+4:])
				ob.Strength = obStrength(candle, candles[i+1:i+4], avgBody, avgRange, avgVolume, ob.TestedCount)
				if ob.TestedCount > maxMitigations {
					consumed.Consume(ob.ID)
					continue
				}
				if consumed.Has(ob.ID) {
					continue
				}
				bearish = append(bearish, ob)
			}
		}
	}

	return topByStrengthOB(bullish, maxOBsPerSide), topByStrengthOB(bearish, maxOBsPerSide)
}

// confirmsBreak requires two independent conditions over the window: at
// least two directional candles, and the window extreme trading beyond the
// level. A wick through the level counts even when every close stays
// inside it.
func confirmsBreak(window []kucoin.Kline, level float64, up bool) bool {
	directional := 0
	broke := false
	for _, c := range window {
		if up {
			if c.IsBullish() {
				directional++
			}
			if c.High > level {
				broke = true
			}
		} else {
			if !c.IsBullish() {
				directional++
			}
			if c.Low < level {
				broke = true
			}
		}
	}
	return directional >= 2 && broke
}

// countTests counts later candles that traded back into the zone.
func countTests(ob OrderBlock, after []kucoin.Kline) int {
	count := 0
	for _, c := range after {
		if c.Low <= ob.Top && c.High >= ob.Bottom {
			count++
		}
	}
	return count
}

// obStrength blends the OB candle body vs average (25%), the follow-through
// move vs rolling true range (35%) and volume vs average (20%), with a 20
// point bonus for an untested block.
func obStrength(candle kucoin.Kline, followThrough []kucoin.Kline, avgBody, avgRange, avgVolume float64, testedCount int) float64 {
	score := 0.0

	if avgBody > 0 {
		score += math.Min(candle.Body()/avgBody, 1.5) / 1.5 * 25
	}

	move := 0.0
	for _, c := range followThrough {
		move += c.Body()
	}
	if avgRange > 0 {
		score += math.Min(move/(3*avgRange), 1) * 35
	}

	if avgVolume > 0 {
		score += math.Min(candle.Volume/(2*avgVolume), 1) * 20
	}

	if testedCount == 0 {
		score += 20
	}

	return math.Min(score, 100)
}

func topByStrengthOB(blocks []OrderBlock, limit int) []OrderBlock {
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Strength > blocks[j].Strength })
	if len(blocks) > limit {
		blocks = blocks[:limit]
	}
	return blocks
}

func obID(bullish bool, ts int64) string {
	side := "bear"
	if bullish {
		side = "bull"
	}
	return fmt.Sprintf("ob_%s_%d", side, ts)
}
