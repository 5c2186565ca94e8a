package structure

import (
	"fmt"

	"kucoin-signal-bot/internal/kucoin"
)

// SwingKind distinguishes swing highs from swing lows.
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// SwingPoint is a confirmed local extremum. IDs are deterministic so that
// identical candle series always produce identical swing lists, and so a
// ConsumedSet built in one pass stays meaningful in the next.
type SwingPoint struct {
	ID    string
	Price float64
	Index int
	Time  int64
	Kind  SwingKind
}

const maxSwingsPerSide = 10

// FindSwingHighs locates swing highs over a symmetric window. A bar
// qualifies only when no other bar in the window has an equal or greater
// high. The most recent maxSwingsPerSide are kept, oldest first.
func (a *Analyzer) FindSwingHighs(candles []kucoin.Kline) []SwingPoint {
	var swings []SwingPoint

	for i := a.swingLookback; i < len(candles)-a.swingLookback; i++ {
		isSwing := true
		high := candles[i].High
		for j := i - a.swingLookback; j <= i+a.swingLookback; j++ {
			if j != i && candles[j].High >= high {
				isSwing = false
				break
			}
		}
		if isSwing {
			swings = append(swings, SwingPoint{
				ID:    swingID(SwingHigh, candles[i].Time, high),
				Price: high,
				Index: i,
				Time:  candles[i].Time,
				Kind:  SwingHigh,
			})
		}
	}

	if len(swings) > maxSwingsPerSide {
		swings = swings[len(swings)-maxSwingsPerSide:]
	}
	return swings
}

// FindSwingLows locates swing lows, mirroring FindSwingHighs.
func (a *Analyzer) FindSwingLows(candles []kucoin.Kline) []SwingPoint {
	var swings []SwingPoint

	for i := a.swingLookback; i < len(candles)-a.swingLookback; i++ {
		isSwing := true
		low := candles[i].Low
		for j := i - a.swingLookback; j <= i+a.swingLookback; j++ {
			if j != i && candles[j].Low <= low {
				isSwing = false
				break
			}
		}
		if isSwing {
			swings = append(swings, SwingPoint{
				ID:    swingID(SwingLow, candles[i].Time, low),
				Price: low,
				Index: i,
				Time:  candles[i].Time,
				Kind:  SwingLow,
			})
		}
	}

	if len(swings) > maxSwingsPerSide {
		swings = swings[len(swings)-maxSwingsPerSide:]
	}
	return swings
}

func swingID(kind SwingKind, ts int64, price float64) string {
	return fmt.Sprintf("swing_%s_%d_%.8f", kind, ts, price)
}
