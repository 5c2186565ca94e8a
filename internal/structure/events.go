package structure

import (
	"math"

	"kucoin-signal-bot/internal/kucoin"
)

// EventKind distinguishes trend-change breaks from trend-continuation breaks.
type EventKind string

const (
	CHoCH EventKind = "choch" // break of a counter-trend swing
	BOS   EventKind = "bos"   // break of a trend-confirming swing
)

// StructureEvent records a close beyond a swing level. Each swing produces
// at most one event; the swing ID is consumed on first trigger.
type StructureEvent struct {
	Kind       EventKind
	Bullish    bool // true when the break is upward
	Time       int64
	BreakPrice float64
	Broken     SwingPoint
	Strength   float64 // 0-100
}

// DetectEvents scans the most recent window for CHoCH and BOS breaks.
// Bullish CHoCH breaks the latest lower-high; bearish CHoCH the latest
// higher-low. Bullish BOS breaks the latest higher-high; bearish BOS the
// latest lower-low.
func (a *Analyzer) DetectEvents(candles []kucoin.Kline, highs, lows []SwingPoint, consumed *ConsumedSet) []StructureEvent {
	if len(candles) == 0 {
		return nil
	}

	start := len(candles) - a.structureLookback
	if start < 1 {
		start = 1
	}

	avgBody := averageBody(candles, 10)

	var events []StructureEvent
	for i := start; i < len(candles); i++ {
		candle := candles[i]

		if swing, ok := latestRelative(highs, i, false); ok && !consumed.Has(swing.ID) && candle.Close > swing.Price {
			consumed.Consume(swing.ID)
			events = append(events, StructureEvent{
				Kind:       CHoCH,
				Bullish:    true,
				Time:       candle.Time,
				BreakPrice: candle.Close,
				Broken:     swing,
				Strength:   eventStrength(CHoCH, candle, swing.Price, avgBody),
			})
		}
		if swing, ok := latestRelative(lows, i, true); ok && !consumed.Has(swing.ID) && candle.Close < swing.Price {
			consumed.Consume(swing.ID)
			events = append(events, StructureEvent{
				Kind:       CHoCH,
				Bullish:    false,
				Time:       candle.Time,
				BreakPrice: candle.Close,
				Broken:     swing,
				Strength:   eventStrength(CHoCH, candle, swing.Price, avgBody),
			})
		}
		if swing, ok := latestRelative(highs, i, true); ok && !consumed.Has(swing.ID) && candle.Close > swing.Price {
			consumed.Consume(swing.ID)
			events = append(events, StructureEvent{
				Kind:       BOS,
				Bullish:    true,
				Time:       candle.Time,
				BreakPrice: candle.Close,
				Broken:     swing,
				Strength:   eventStrength(BOS, candle, swing.Price, avgBody),
			})
		}
		if swing, ok := latestRelative(lows, i, false); ok && !consumed.Has(swing.ID) && candle.Close < swing.Price {
			consumed.Consume(swing.ID)
			events = append(events, StructureEvent{
				Kind:       BOS,
				Bullish:    false,
				Time:       candle.Time,
				BreakPrice: candle.Close,
				Broken:     swing,
				Strength:   eventStrength(BOS, candle, swing.Price, avgBody),
			})
		}
	}

	return events
}

// latestRelative returns the most recent swing before candle index i whose
// price relation to its predecessor matches `rising` (higher-high /
// higher-low when true, lower-high / lower-low when false).
func latestRelative(swings []SwingPoint, beforeIndex int, rising bool) (SwingPoint, bool) {
	for i := len(swings) - 1; i >= 1; i-- {
		if swings[i].Index >= beforeIndex {
			continue
		}
		if rising && swings[i].Price > swings[i-1].Price {
			return swings[i], true
		}
		if !rising && swings[i].Price < swings[i-1].Price {
			return swings[i], true
		}
	}
	return SwingPoint{}, false
}

// eventStrength starts at 50, adds up to 30 for break-candle body size vs
// the rolling average and 10 for a decisive close beyond the level. BOS
// breaks are scaled 1.2x since they confirm rather than reverse structure.
func eventStrength(kind EventKind, candle kucoin.Kline, level, avgBody float64) float64 {
	score := 50.0

	if avgBody > 0 {
		score += math.Min(candle.Body()/avgBody, 1.5) / 1.5 * 30
	}

	margin := math.Abs(candle.Close-level) / level
	if margin > 0.001 {
		score += 10
	}

	if kind == BOS {
		score *= 1.2
	}
	return math.Min(score, 100)
}

func averageBody(candles []kucoin.Kline, window int) float64 {
	if len(candles) == 0 {
		return 0
	}
	start := len(candles) - window
	if start < 0 {
		start = 0
	}
	total := 0.0
	for _, c := range candles[start:] {
		total += c.Body()
	}
	return total / float64(len(candles)-start)
}
