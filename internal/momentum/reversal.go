package momentum

import (
	"math"

	"kucoin-signal-bot/internal/kucoin"
)

const (
	strongBodyRatio     = 0.7 // strong run candle: body vs rolling average
	transitionBodyRatio = 0.5 // transition candle: body below this ratio
	reversalBodyRatio   = 1.2 // reversal candle: body above this ratio
	minConsecutive      = 3
	maxTransition       = 2
	latestWindow        = 5 // reversal must land in the last N bars to be "latest"
)

// Pattern is one momentum reversal: a run of strong directional candles, a
// short pause, then one strong candle the other way. Bullish means the
// reversal candle points up (the prior run was down). Extreme records the
// momentum low (bullish) or high (bearish), used later as a stop candidate.
type Pattern struct {
	Bullish          bool
	Time             int64 // reversal candle open time
	EntryPrice       float64
	ConsecutiveCount int
	Strength         float64
	Extreme          float64
	ReversalIndex    int
}

// Detector scans candle series for momentum reversal patterns.
type Detector struct {
	minStrength float64
}

func NewDetector(minStrength float64) *Detector {
	if minStrength <= 0 {
		minStrength = 60
	}
	return &Detector{minStrength: minStrength}
}

// Detect returns every pattern in the series, oldest first. Fewer than the
// minimum candles yields nil, never an error.
func (d *Detector) Detect(candles []kucoin.Kline) []Pattern {
	if len(candles) < minConsecutive+2 {
		return nil
	}

	var patterns []Pattern
	for i := minConsecutive + 1; i < len(candles); i++ {
		if p, ok := d.patternEndingAt(candles, i); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// Latest returns the most recent pattern whose reversal candle lies within
// the last few bars and whose strength clears the detector minimum.
func (d *Detector) Latest(candles []kucoin.Kline) *Pattern {
	patterns := d.Detect(candles)
	for i := len(patterns) - 1; i >= 0; i-- {
		p := patterns[i]
		if p.ReversalIndex >= len(candles)-latestWindow && p.Strength >= d.minStrength {
			return &p
		}
	}
	return nil
}

// patternEndingAt tests whether index i is the reversal candle of a valid
// pattern: reversal body >= 1.2x average, preceded by up to two
// small-bodied transition candles, preceded by >= 3 strong candles in the
// opposite direction.
func (d *Detector) patternEndingAt(candles []kucoin.Kline, i int) (Pattern, bool) {
	reversal := candles[i]
	avg := trailingAverageBody(candles, i, 10)
	if avg <= 0 || reversal.Body() < reversalBodyRatio*avg {
		return Pattern{}, false
	}

	bullish := reversal.IsBullish()

	// Walk back over the transition pause.
	j := i - 1
	transitions := 0
	for j >= 0 && transitions < maxTransition && candles[j].Body() < transitionBodyRatio*avg {
		transitions++
		j--
	}
	if transitions == 0 {
		return Pattern{}, false
	}

	// The run before the pause must be strong and opposite the reversal.
	count := 0
	runEnd := j
	for j >= 0 && candles[j].IsBullish() != bullish && candles[j].Body() >= strongBodyRatio*avg {
		count++
		j--
	}
	if count < minConsecutive {
		return Pattern{}, false
	}

	runStart := j + 1
	extreme := runExtreme(candles[runStart:i], bullish)

	p := Pattern{
		Bullish:          bullish,
		Time:             reversal.Time,
		EntryPrice:       reversal.Close,
		ConsecutiveCount: count,
		Extreme:          extreme,
		ReversalIndex:    i,
	}
	p.Strength = patternStrength(candles, runStart, runEnd, i, count, avg)
	return p, true
}

// patternStrength blends consecutive count (25%), momentum range vs true
// range normalized by count (30%), reversal body ratio (25%) and volume vs
// average (20%).
func patternStrength(candles []kucoin.Kline, runStart, runEnd, reversalIdx, count int, avgBody float64) float64 {
	score := math.Min(float64(count)/6, 1) * 25

	momentumRange := 0.0
	for k := runStart; k <= runEnd; k++ {
		momentumRange += candles[k].Range()
	}
	atr := trailingAverageRange(candles, reversalIdx, 14)
	if atr > 0 && count > 0 {
		perCandle := momentumRange / float64(count)
		score += math.Min(perCandle/(2*atr), 1) * 30
	}

	if avgBody > 0 {
		ratio := candles[reversalIdx].Body() / avgBody
		score += math.Min(ratio/2.4, 1) * 25
	}

	avgVolume := trailingAverageVolume(candles, reversalIdx, 20)
	if avgVolume > 0 {
		score += math.Min(candles[reversalIdx].Volume/(2*avgVolume), 1) * 20
	}

	return math.Min(score, 100)
}

// runExtreme finds the momentum low (bullish reversal) or high (bearish)
// across the run and pause candles.
func runExtreme(window []kucoin.Kline, bullish bool) float64 {
	if len(window) == 0 {
		return 0
	}
	extreme := window[0].Low
	if !bullish {
		extreme = window[0].High
	}
	for _, c := range window[1:] {
		if bullish && c.Low < extreme {
			extreme = c.Low
		}
		if !bullish && c.High > extreme {
			extreme = c.High
		}
	}
	return extreme
}

func trailingAverageBody(candles []kucoin.Kline, before, window int) float64 {
	start := before - window
	if start < 0 {
		start = 0
	}
	if before <= start {
		return 0
	}
	total := 0.0
	for _, c := range candles[start:before] {
		total += c.Body()
	}
	return total / float64(before-start)
}

func trailingAverageRange(candles []kucoin.Kline, before, window int) float64 {
	start := before - window
	if start < 1 {
		start = 1
	}
	if before <= start {
		return 0
	}
	total := 0.0
	for i := start; i < before; i++ {
		highLow := candles[i].High - candles[i].Low
		highClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowClose := math.Abs(candles[i].Low - candles[i-1].Close)
		total += math.Max(highLow, math.Max(highClose, lowClose))
	}
	return total / float64(before-start)
}

func trailingAverageVolume(candles []kucoin.Kline, before, window int) float64 {
	start := before - window
	if start < 0 {
		start = 0
	}
	if before <= start {
		return 0
	}
	total := 0.0
	for _, c := range candles[start:before] {
		total += c.Volume
	}
	return total / float64(before-start)
}
