package trend

import (
	"math"

	"kucoin-signal-bot/internal/kucoin"
)

// Direction categorizes the DI relationship.
type Direction string

const (
	DirectionStrongBullish Direction = "strong_bullish"
	DirectionBullish       Direction = "bullish"
	DirectionBearish       Direction = "bearish"
	DirectionStrongBearish Direction = "strong_bearish"
	DirectionNeutral       Direction = "neutral"
)

// StrengthCategory buckets the ADX magnitude.
type StrengthCategory string

const (
	StrengthVeryStrong StrengthCategory = "very_strong"
	StrengthStrong     StrengthCategory = "strong"
	StrengthModerate   StrengthCategory = "moderate"
	StrengthWeak       StrengthCategory = "weak"
	StrengthNone       StrengthCategory = "none"
)

// DICrossover marks a +DI/-DI cross on the most recent bar.
type DICrossover struct {
	Bullish bool    // +DI crossed above -DI
	ADX     float64 // ADX at the crossover bar
}

// State is the trend filter output for one candle series. A zero State with
// Direction neutral is returned when the series is too short; detectors
// downstream treat that as "no directional allowance".
type State struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64

	Strong    bool // ADX at or above the configured minimum
	Rising    bool // ADX above its previous bar
	Direction Direction
	Strength  StrengthCategory
	Quality   float64 // 0-100 weighted signal quality

	LongAllowed  bool
	ShortAllowed bool
	Crossover    *DICrossover
}

// Filter computes ADX and directional indicators with Wilder smoothing.
type Filter struct {
	period float64
	minADX float64
}

func NewFilter(period int, minADX float64) *Filter {
	if period <= 0 {
		period = 14
	}
	if minADX <= 0 {
		minADX = 25
	}
	return &Filter{period: float64(period), minADX: minADX}
}

// Evaluate computes the trend state from candles ordered oldest to newest.
func (f *Filter) Evaluate(candles []kucoin.Kline) State {
	period := int(f.period)
	if len(candles) < period+1 {
		return State{Direction: DirectionNeutral, Strength: StrengthNone}
	}

	plusDI, minusDI, adxSeries := f.computeSeries(candles)

	state := State{
		ADX:     last(adxSeries),
		PlusDI:  last(plusDI),
		MinusDI: last(minusDI),
	}
	state.Strong = state.ADX >= f.minADX
	if len(adxSeries) >= 2 {
		state.Rising = state.ADX > adxSeries[len(adxSeries)-2]
	}

	state.Direction = f.classifyDirection(state)
	state.Strength = classifyStrength(state.ADX)
	state.Quality = f.qualityScore(state, plusDI, minusDI, adxSeries)

	state.LongAllowed = state.Strong && state.PlusDI > state.MinusDI
	state.ShortAllowed = state.Strong && state.MinusDI > state.PlusDI
	state.Crossover = f.detectCrossover(plusDI, minusDI, state.ADX)

	return state
}

// ValidateEntry reports whether the filter allows an entry in the given
// direction. Requires the directional allowance plus quality at or above 50.
func (f *Filter) ValidateEntry(state State, long bool) bool {
	if state.Quality < 50 {
		return false
	}
	if long {
		return state.LongAllowed
	}
	return state.ShortAllowed
}

// Score is a coarse 0-100 rating of how supportive the trend state is,
// used by the composer when weighing candidates.
func (f *Filter) Score(state State) float64 {
	score := 0.0
	if state.Strong {
		score += 40
	}
	if state.Quality >= 50 {
		score += 35
	}
	if state.Rising {
		score += 15
	}
	if state.Crossover != nil {
		score += 10
	}
	return score
}

// computeSeries produces the smoothed +DI/-DI series and the ADX series.
// All series are aligned to the last candle; ADX may be shorter (warmup).
func (f *Filter) computeSeries(candles []kucoin.Kline) (plusDI, minusDI, adxSeries []float64) {
	period := int(f.period)
	n := len(candles)

	tr := make([]float64, 0, n-1)
	plusDM := make([]float64, 0, n-1)
	minusDM := make([]float64, 0, n-1)

	for i := 1; i < n; i++ {
		cur, prev := candles[i], candles[i-1]

		highLow := cur.High - cur.Low
		highClose := math.Abs(cur.High - prev.Close)
		lowClose := math.Abs(cur.Low - prev.Close)
		tr = append(tr, math.Max(highLow, math.Max(highClose, lowClose)))

		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low
		if upMove > downMove && upMove > 0 {
			plusDM = append(plusDM, upMove)
		} else {
			plusDM = append(plusDM, 0)
		}
		if downMove > upMove && downMove > 0 {
			minusDM = append(minusDM, downMove)
		} else {
			minusDM = append(minusDM, 0)
		}
	}

	// Wilder smoothing: seed with the first `period` sum, then
	// smoothed = prev - prev/period + current.
	smTR := sum(tr[:period])
	smPlus := sum(plusDM[:period])
	smMinus := sum(minusDM[:period])

	var dx []float64
	appendDI := func() {
		var p, m float64
		if smTR > 0 {
			p = 100 * smPlus / smTR
			m = 100 * smMinus / smTR
		}
		plusDI = append(plusDI, p)
		minusDI = append(minusDI, m)
		if p+m > 0 {
			dx = append(dx, 100*math.Abs(p-m)/(p+m))
		} else {
			dx = append(dx, 0)
		}
	}
	appendDI()

	for i := period; i < len(tr); i++ {
		smTR = smTR - smTR/f.period + tr[i]
		smPlus = smPlus - smPlus/f.period + plusDM[i]
		smMinus = smMinus - smMinus/f.period + minusDM[i]
		appendDI()
	}

	if len(dx) >= period {
		adx := sum(dx[:period]) / f.period
		adxSeries = append(adxSeries, adx)
		for i := period; i < len(dx); i++ {
			adx = (adx*(f.period-1) + dx[i]) / f.period
			adxSeries = append(adxSeries, adx)
		}
	} else if len(dx) > 0 {
		adxSeries = append(adxSeries, sum(dx)/float64(len(dx)))
	}

	return plusDI, minusDI, adxSeries
}

func (f *Filter) classifyDirection(state State) Direction {
	gap := state.PlusDI - state.MinusDI
	switch {
	case gap > 0:
		if state.Strong && gap > 5 {
			return DirectionStrongBullish
		}
		return DirectionBullish
	case gap < 0:
		if state.Strong && -gap > 5 {
			return DirectionStrongBearish
		}
		return DirectionBearish
	default:
		return DirectionNeutral
	}
}

func classifyStrength(adx float64) StrengthCategory {
	switch {
	case adx >= 50:
		return StrengthVeryStrong
	case adx >= 35:
		return StrengthStrong
	case adx >= 25:
		return StrengthModerate
	case adx >= 20:
		return StrengthWeak
	default:
		return StrengthNone
	}
}

// qualityScore blends ADX magnitude (40%), DI separation (30%), ADX
// momentum (20%) and DI momentum (10%), capped at 100.
func (f *Filter) qualityScore(state State, plusDI, minusDI, adxSeries []float64) float64 {
	score := math.Min(state.ADX/50, 1) * 40

	gap := math.Abs(state.PlusDI - state.MinusDI)
	score += math.Min(gap/30, 1) * 30

	if state.Rising {
		score += 20
	}

	if len(plusDI) >= 2 && len(minusDI) >= 2 {
		prevGap := math.Abs(plusDI[len(plusDI)-2] - minusDI[len(minusDI)-2])
		if gap > prevGap {
			score += 10
		}
	}

	return math.Min(score, 100)
}

// detectCrossover reports a DI cross on the most recent bar, only when the
// trend has at least minimal strength (ADX >= 20).
func (f *Filter) detectCrossover(plusDI, minusDI []float64, adx float64) *DICrossover {
	if len(plusDI) < 2 || len(minusDI) < 2 || adx < 20 {
		return nil
	}

	curGap := plusDI[len(plusDI)-1] - minusDI[len(minusDI)-1]
	prevGap := plusDI[len(plusDI)-2] - minusDI[len(minusDI)-2]

	if prevGap <= 0 && curGap > 0 {
		return &DICrossover{Bullish: true, ADX: adx}
	}
	if prevGap >= 0 && curGap < 0 {
		return &DICrossover{Bullish: false, ADX: adx}
	}
	return nil
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
