package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"kucoin-signal-bot/internal/structure"
)

const structureStrength = 80 // fixed confidence for structure-based candidates

// Composer combines detector outputs into at most one candidate per
// evaluation. Structure-based candidates outrank momentum-based ones.
type Composer struct {
	minConfidence        float64
	minStructureStrength float64
	minMomentumStrength  float64
}

func NewComposer(minConfidence, minStructureStrength, minMomentumStrength float64) *Composer {
	if minConfidence <= 0 {
		minConfidence = 70
	}
	if minStructureStrength <= 0 {
		minStructureStrength = 50
	}
	if minMomentumStrength <= 0 {
		minMomentumStrength = 60
	}
	return &Composer{
		minConfidence:        minConfidence,
		minStructureStrength: minStructureStrength,
		minMomentumStrength:  minMomentumStrength,
	}
}

// Compose evaluates the detection context and returns one candidate, or
// nil with a reason string. "No signal" is the normal outcome, never an
// error.
func (c *Composer) Compose(symbol string, entryPrice float64, ctx Context) (*Candidate, string) {
	if entryPrice <= 0 {
		return nil, "no current price available"
	}

	if cand, ok := c.composeStructure(symbol, entryPrice, ctx); ok {
		return c.gate(cand)
	}
	if cand, ok := c.composeMomentum(symbol, entryPrice, ctx); ok {
		return c.gate(cand)
	}
	return nil, "no qualifying setup: structure and momentum conditions unmet"
}

// composeStructure requires a liquidity sweep, an agreeing structure
// event, the trend filter's directional allowance, and the price sitting
// inside a same-direction zone.
func (c *Composer) composeStructure(symbol string, entryPrice float64, ctx Context) (*Candidate, bool) {
	if ctx.Sweep == nil || ctx.Event == nil {
		return nil, false
	}
	if ctx.Event.Strength < c.minStructureStrength {
		return nil, false
	}

	var direction Direction
	switch {
	case ctx.Sweep.Kind == structure.LowSweep && ctx.Event.Bullish:
		direction = Long
	case ctx.Sweep.Kind == structure.HighSweep && !ctx.Event.Bullish:
		direction = Short
	default:
		return nil, false
	}

	if direction == Long && (!ctx.Trend.LongAllowed || !ctx.PriceZones.InBullishZone()) {
		return nil, false
	}
	if direction == Short && (!ctx.Trend.ShortAllowed || !ctx.PriceZones.InBearishZone()) {
		return nil, false
	}

	return &Candidate{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Direction:  direction,
		Strategy:   StrategyStructure,
		EntryPrice: entryPrice,
		Confidence: structureStrength,
		Reason: fmt.Sprintf("%s after %s sweep with %s break",
			direction, ctx.Sweep.Kind, ctx.Event.Kind),
		CreatedAt: time.Now().UTC(),
		Context:   ctx,
	}, true
}

// composeMomentum requires a recent momentum reversal pattern and the
// trend filter's directional allowance; confidence is the pattern strength.
func (c *Composer) composeMomentum(symbol string, entryPrice float64, ctx Context) (*Candidate, bool) {
	pattern := ctx.Momentum
	if pattern == nil || pattern.Strength < c.minMomentumStrength {
		return nil, false
	}

	direction := Short
	if pattern.Bullish {
		direction = Long
	}
	if direction == Long && !ctx.Trend.LongAllowed {
		return nil, false
	}
	if direction == Short && !ctx.Trend.ShortAllowed {
		return nil, false
	}

	return &Candidate{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Direction:  direction,
		Strategy:   StrategyMomentum,
		EntryPrice: entryPrice,
		Confidence: pattern.Strength,
		Reason: fmt.Sprintf("%s momentum reversal after %d-candle run",
			direction, pattern.ConsecutiveCount),
		CreatedAt: time.Now().UTC(),
		Context:   ctx,
	}, true
}

func (c *Composer) gate(cand *Candidate) (*Candidate, string) {
	if cand.Confidence < c.minConfidence {
		return nil, fmt.Sprintf("%s candidate below confidence floor: %.0f < %.0f",
			cand.Strategy, cand.Confidence, c.minConfidence)
	}
	return cand, ""
}
