package confirmation

import (
	"math"

	"kucoin-signal-bot/internal/kucoin"
	"kucoin-signal-bot/internal/signal"
	"kucoin-signal-bot/internal/zones"
)

// CandleScore is the per-candle rubric breakdown, retained for audit
// logging when a candidate is rejected.
type CandleScore struct {
	Time          int64
	ZoneTouch     float64 // 0 or 3
	Rejection     float64 // 0-2
	Direction     float64 // 0-2
	Volume        float64 // 0 or 1
	ClosePosition float64 // 0-2
}

// Total sums the rubric components (max 10).
func (s CandleScore) Total() float64 {
	return s.ZoneTouch + s.Rejection + s.Direction + s.Volume + s.ClosePosition
}

// Result is one confirmation evaluation.
type Result struct {
	Passed     bool
	Score      float64 // percentage of the 20-point ceiling
	FinalEntry float64 // confirming close when passed
	Breakdown  []CandleScore
	Reason     string
}

// Gate re-examines the two most recent short-timeframe candles against the
// candidate's originating zone before acceptance.
type Gate struct {
	passThreshold   float64 // percentage
	confidenceBonus float64
}

func NewGate(passThreshold, confidenceBonus float64) *Gate {
	if passThreshold <= 0 {
		passThreshold = 60
	}
	if confidenceBonus < 0 {
		confidenceBonus = 0
	}
	return &Gate{passThreshold: passThreshold, confidenceBonus: confidenceBonus}
}

// Confirm scores the last two candles with a 10-point rubric each: zone
// touch (3), wick rejection (2), directional strength (2), volume
// presence (1) and close position (2). Passing requires the combined
// score to clear the threshold percentage of the 20-point ceiling. On a
// pass the candidate's entry price moves to the confirming close and the
// confidence bonus is applied.
func (g *Gate) Confirm(cand *signal.Candidate, m5 []kucoin.Kline) Result {
	if len(m5) < 2 {
		return Result{Reason: "fewer than two confirmation candles"}
	}

	zone, ok := confirmationZone(cand)
	if !ok {
		return Result{Reason: "no originating zone to confirm against"}
	}

	long := cand.Direction == signal.Long
	window := m5[len(m5)-2:]

	result := Result{Breakdown: make([]CandleScore, 0, 2)}
	total := 0.0
	for _, candle := range window {
		score := scoreCandle(candle, zone, long)
		result.Breakdown = append(result.Breakdown, score)
		total += score.Total()
	}

	result.Score = total / 20 * 100
	if result.Score < g.passThreshold {
		result.Reason = "confirmation score below threshold"
		return result
	}

	result.Passed = true
	result.FinalEntry = window[1].Close
	cand.EntryPrice = result.FinalEntry
	cand.Confidence = math.Min(cand.Confidence+g.confidenceBonus, 100)
	return result
}

// confirmationZone picks the strongest same-direction active zone from the
// candidate's context.
func confirmationZone(cand *signal.Candidate) (zones.Zone, bool) {
	long := cand.Direction == signal.Long
	for _, z := range cand.Context.PriceZones.ActiveZones {
		if z.Bullish == long {
			return z, true
		}
	}
	return zones.Zone{}, false
}

func scoreCandle(candle kucoin.Kline, zone zones.Zone, long bool) CandleScore {
	score := CandleScore{Time: candle.Time}

	// Zone touch: the candle range must reach the defended edge.
	if long {
		if candle.Low <= zone.Bottom && candle.High >= zone.Bottom {
			score.ZoneTouch = 3
		}
	} else {
		if candle.Low <= zone.Top && candle.High >= zone.Top {
			score.ZoneTouch = 3
		}
	}

	// Wick rejection away from the zone.
	body := candle.Body()
	wick := candle.LowerWick()
	if !long {
		wick = candle.UpperWick()
	}
	if body > 0 {
		if wick > 1.5*body {
			score.Rejection = 2
		} else if wick > body {
			score.Rejection = 1
		}
	}

	// Directional strength.
	if candle.IsBullish() == long {
		score.Direction = 1
		if candle.Range() > 0 && body/candle.Range() > 0.6 {
			score.Direction = 2
		}
	}

	if candle.Volume > 0 {
		score.Volume = 1
	}

	// Close position relative to the zone: beyond it in the trade
	// direction scores full, inside scores half.
	switch {
	case long && candle.Close > zone.Top,
		!long && candle.Close < zone.Bottom:
		score.ClosePosition = 2
	case candle.Close >= zone.Bottom && candle.Close <= zone.Top:
		score.ClosePosition = 1
	}

	return score
}
