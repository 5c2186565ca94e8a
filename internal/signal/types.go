package signal

import (
	"time"

	"kucoin-signal-bot/internal/market"
	"kucoin-signal-bot/internal/momentum"
	"kucoin-signal-bot/internal/structure"
	"kucoin-signal-bot/internal/trend"
	"kucoin-signal-bot/internal/zones"
)

// Direction is the trade side of a candidate.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// Strategy names which detector family produced the candidate.
type Strategy string

const (
	StrategyStructure Strategy = "structure"
	StrategyMomentum  Strategy = "momentum"
)

// Context carries the detection state a candidate was composed from. The
// risk engine reads stop candidates and liquidity targets out of it; the
// confirmation gate reads the originating zone.
type Context struct {
	Trend      trend.State
	Sweep      *structure.LiquiditySweep
	Event      *structure.StructureEvent
	Momentum   *momentum.Pattern
	PriceZones zones.PriceZones
	SwingHighs []structure.SwingPoint
	SwingLows  []structure.SwingPoint
	HTFBias    structure.Bias
	Liquidity  []market.Level
}

// Candidate is a scored directional trade candidate. Immutable after
// composition except for entry price and confidence adjustments applied by
// the confirmation gate.
type Candidate struct {
	ID         string
	Symbol     string
	Direction  Direction
	Strategy   Strategy
	EntryPrice float64
	Confidence float64 // 0-100
	Reason     string
	CreatedAt  time.Time
	Context    Context
}
