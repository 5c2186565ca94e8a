package risk

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"kucoin-signal-bot/internal/signal"
	"kucoin-signal-bot/internal/structure"
)

var (
	// ErrRiskRewardTooLow means the achieved TP1 ratio fell under the floor.
	ErrRiskRewardTooLow = errors.New("risk/reward below minimum")
	// ErrInvalidLevels means the computed levels violate the ordering
	// invariant (stop < entry < tp1 < tp2 < tp3 for longs, mirrored for
	// shorts).
	ErrInvalidLevels = errors.New("invalid level ordering")
)

// Levels holds the computed risk levels for one candidate. For LONG:
// StopLoss < entry < TP1 < TP2 < TP3; SHORT is the mirror.
type Levels struct {
	StopLoss     float64
	TP1          float64
	TP2          float64
	TP3          float64
	RiskDistance float64
	RiskReward   float64 // reward to TP1 over risk to stop
	StopSource   string  // which candidate produced the stop
}

// Config holds the risk engine thresholds.
type Config struct {
	MinRiskPercent      float64 // reject stops closer than this
	MaxRiskPercent      float64 // reject stops farther than this
	FallbackRiskPercent float64 // used when no candidate qualifies
	MinRiskReward       float64
	TrendRiskReward     float64 // target scale when aligned with HTF bias
	CounterRiskReward   float64 // target scale against HTF bias
}

// Engine converts a candidate plus its structural context into entry,
// stop and take-profit levels.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.MinRiskPercent <= 0 {
		cfg.MinRiskPercent = 0.5
	}
	if cfg.MaxRiskPercent <= 0 {
		cfg.MaxRiskPercent = 5.0
	}
	if cfg.FallbackRiskPercent <= 0 {
		cfg.FallbackRiskPercent = 2.0
	}
	if cfg.MinRiskReward <= 0 {
		cfg.MinRiskReward = 0.8
	}
	if cfg.TrendRiskReward <= 0 {
		cfg.TrendRiskReward = 1.0
	}
	if cfg.CounterRiskReward <= 0 {
		cfg.CounterRiskReward = 0.5
	}
	return &Engine{cfg: cfg}
}

// TP distance multiples before liquidity adjustment.
const (
	tp1Multiple = 1.5
	tp2Multiple = 2.5
	tp3Multiple = 4.0
)

const (
	stopBufferPercent = 0.001 // 0.1% past the reference level
	liquidityInset    = 0.001 // targets stop 0.1% short of the level
)

// stopCandidate is one ranked stop-loss option.
type stopCandidate struct {
	price    float64
	priority int
	source   string
}

// Compute derives levels for the candidate. The stop is the
// highest-priority candidate whose distance falls inside the valid risk
// band, with a fixed-percent fallback. Take-profit targets start as risk
// multiples and are pulled in toward opposing liquidity levels.
func (e *Engine) Compute(cand *signal.Candidate) (*Levels, error) {
	entry := cand.EntryPrice
	if entry <= 0 {
		return nil, fmt.Errorf("entry price %.8f: %w", entry, ErrInvalidLevels)
	}

	long := cand.Direction == signal.Long
	stop, source := e.selectStop(entry, long, cand.Context)
	riskDistance := math.Abs(entry - stop)

	scale := e.cfg.TrendRiskReward
	minRR := e.cfg.MinRiskReward
	if e.counterTrend(cand) {
		scale = e.cfg.CounterRiskReward
		// The floor scales with the reduced target ratio, otherwise
		// every counter-trend candidate would fail its own shrunk TP1.
		minRR *= e.cfg.CounterRiskReward / e.cfg.TrendRiskReward
	}

	levels := &Levels{
		StopLoss:     stop,
		RiskDistance: riskDistance,
		StopSource:   source,
	}

	if long {
		levels.TP1 = entry + riskDistance*tp1Multiple*scale
		levels.TP2 = entry + riskDistance*tp2Multiple*scale
		levels.TP3 = entry + riskDistance*tp3Multiple*scale
	} else {
		levels.TP1 = entry - riskDistance*tp1Multiple*scale
		levels.TP2 = entry - riskDistance*tp2Multiple*scale
		levels.TP3 = entry - riskDistance*tp3Multiple*scale
	}

	e.adjustToLiquidity(levels, entry, long, cand.Context)

	if riskDistance > 0 {
		levels.RiskReward = math.Abs(levels.TP1-entry) / riskDistance
	}

	if err := e.validate(levels, entry, long, minRR); err != nil {
		return nil, err
	}
	return levels, nil
}

// selectStop ranks stop candidates: sweep wick (100), most recent swing
// extreme (80), momentum pattern extreme (70), active zone edge (60). The
// highest-priority candidate inside the valid risk band wins; otherwise
// the fallback percent offset applies.
func (e *Engine) selectStop(entry float64, long bool, ctx signal.Context) (float64, string) {
	buffer := entry * stopBufferPercent
	var candidates []stopCandidate

	if ctx.Sweep != nil {
		if long && ctx.Sweep.Kind == structure.LowSweep {
			candidates = append(candidates, stopCandidate{ctx.Sweep.SweepPrice - buffer, 100, "sweep_wick"})
		}
		if !long && ctx.Sweep.Kind == structure.HighSweep {
			candidates = append(candidates, stopCandidate{ctx.Sweep.SweepPrice + buffer, 100, "sweep_wick"})
		}
	}

	if long {
		if swing, ok := latestBelow(ctx.SwingLows, entry); ok {
			candidates = append(candidates, stopCandidate{swing - buffer, 80, "swing_low"})
		}
	} else {
		if swing, ok := latestAbove(ctx.SwingHighs, entry); ok {
			candidates = append(candidates, stopCandidate{swing + buffer, 80, "swing_high"})
		}
	}

	if ctx.Momentum != nil && ctx.Momentum.Extreme > 0 {
		if long && ctx.Momentum.Bullish {
			candidates = append(candidates, stopCandidate{ctx.Momentum.Extreme - buffer, 70, "momentum_extreme"})
		}
		if !long && !ctx.Momentum.Bullish {
			candidates = append(candidates, stopCandidate{ctx.Momentum.Extreme + buffer, 70, "momentum_extreme"})
		}
	}

	for _, zone := range ctx.PriceZones.ActiveZones {
		if long && zone.Bullish {
			candidates = append(candidates, stopCandidate{zone.Bottom - buffer, 60, "zone_edge"})
			break
		}
		if !long && !zone.Bullish {
			candidates = append(candidates, stopCandidate{zone.Top + buffer, 60, "zone_edge"})
			break
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority > candidates[j].priority
	})

	for _, c := range candidates {
		riskPct := math.Abs(entry-c.price) / entry * 100
		if riskPct < e.cfg.MinRiskPercent || riskPct > e.cfg.MaxRiskPercent {
			continue
		}
		if long && c.price >= entry {
			continue
		}
		if !long && c.price <= entry {
			continue
		}
		return c.price, c.source
	}

	fallback := entry * e.cfg.FallbackRiskPercent / 100
	if long {
		return entry - fallback, "fallback_percent"
	}
	return entry + fallback, "fallback_percent"
}

// adjustToLiquidity pulls each target in toward the nearest opposing
// liquidity level when that level is closer than the raw multiple target.
// Targets land just inside the level so resting orders there are not
// required to fill.
func (e *Engine) adjustToLiquidity(levels *Levels, entry float64, long bool, ctx signal.Context) {
	adjust := func(target float64) float64 {
		best := target
		for _, level := range ctx.Liquidity {
			if long {
				if !level.IsHigh() || level.Price <= entry {
					continue
				}
				pulled := level.Price * (1 - liquidityInset)
				if pulled < best && pulled > entry {
					best = pulled
				}
			} else {
				if level.IsHigh() || level.Price >= entry {
					continue
				}
				pulled := level.Price * (1 + liquidityInset)
				if pulled > best && pulled < entry {
					best = pulled
				}
			}
		}
		return best
	}

	levels.TP1 = adjust(levels.TP1)
	levels.TP2 = adjust(levels.TP2)
	levels.TP3 = adjust(levels.TP3)

	// Pulling every target toward the same level can collapse the
	// ladder; restore strict ordering when that happens.
	if long {
		if levels.TP2 <= levels.TP1 {
			levels.TP2 = levels.TP1 + (levels.TP1-entry)*0.5
		}
		if levels.TP3 <= levels.TP2 {
			levels.TP3 = levels.TP2 + (levels.TP1-entry)*0.5
		}
	} else {
		if levels.TP2 >= levels.TP1 {
			levels.TP2 = levels.TP1 - (entry-levels.TP1)*0.5
		}
		if levels.TP3 >= levels.TP2 {
			levels.TP3 = levels.TP2 - (entry-levels.TP1)*0.5
		}
	}
}

// counterTrend reports whether the candidate trades against the
// higher-timeframe bias.
func (e *Engine) counterTrend(cand *signal.Candidate) bool {
	switch cand.Context.HTFBias {
	case structure.BiasBullish:
		return cand.Direction == signal.Short
	case structure.BiasBearish:
		return cand.Direction == signal.Long
	default:
		return false
	}
}

func (e *Engine) validate(levels *Levels, entry float64, long bool, minRR float64) error {
	ordered := levels.StopLoss < entry && entry < levels.TP1 && levels.TP1 < levels.TP2 && levels.TP2 < levels.TP3
	if !long {
		ordered = levels.StopLoss > entry && entry > levels.TP1 && levels.TP1 > levels.TP2 && levels.TP2 > levels.TP3
	}
	if !ordered {
		return fmt.Errorf("stop %.8f entry %.8f tps %.8f/%.8f/%.8f: %w",
			levels.StopLoss, entry, levels.TP1, levels.TP2, levels.TP3, ErrInvalidLevels)
	}
	if levels.RiskReward < minRR {
		return fmt.Errorf("achieved %.2f, minimum %.2f: %w",
			levels.RiskReward, minRR, ErrRiskRewardTooLow)
	}
	return nil
}

func latestBelow(swings []structure.SwingPoint, entry float64) (float64, bool) {
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].Price < entry {
			return swings[i].Price, true
		}
	}
	return 0, false
}

func latestAbove(swings []structure.SwingPoint, entry float64) (float64, bool) {
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].Price > entry {
			return swings[i].Price, true
		}
	}
	return 0, false
}
