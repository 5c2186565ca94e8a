package zones

import (
	"math"
	"sort"

	"kucoin-signal-bot/internal/kucoin"
	"kucoin-signal-bot/internal/structure"
)

const (
	maxOBsPerSide  = 5
	maxFVGsPerSide = 3
)

// ZoneKind names the zone variants in containment query results.
type ZoneKind string

const (
	KindOrderBlock   ZoneKind = "order_block"
	KindFairValueGap ZoneKind = "fair_value_gap"
)

// Zone is the generic view of an OB or FVG used in containment queries.
type Zone struct {
	ID       string
	Kind     ZoneKind
	Bullish  bool
	Top      float64
	Bottom   float64
	Strength float64
}

// Contains reports whether price lies inside the zone.
func (z Zone) Contains(price float64) bool {
	return price >= z.Bottom && price <= z.Top
}

// Snapshot is one immutable zone detection result.
type Snapshot struct {
	BullishOBs  []OrderBlock
	BearishOBs  []OrderBlock
	BullishFVGs []FairValueGap
	BearishFVGs []FairValueGap
}

// PriceZones is the result of a containment query.
type PriceZones struct {
	InBullishOB  bool
	InBearishOB  bool
	InBullishFVG bool
	InBearishFVG bool
	// ActiveZones lists every zone containing the price, strongest first.
	ActiveZones []Zone
}

// InBullishZone reports containment in any bullish zone.
func (p PriceZones) InBullishZone() bool {
	return p.InBullishOB || p.InBullishFVG
}

// InBearishZone reports containment in any bearish zone.
func (p PriceZones) InBearishZone() bool {
	return p.InBearishOB || p.InBearishFVG
}

// Detector locates order blocks and fair value gaps.
type Detector struct {
	zoneLookback int
}

func NewDetector(zoneLookback int) *Detector {
	if zoneLookback <= 0 {
		zoneLookback = 50
	}
	return &Detector{zoneLookback: zoneLookback}
}

// Detect runs both zone detectors over candles ordered oldest to newest.
// Too few candles yields an empty snapshot, never an error.
func (d *Detector) Detect(candles []kucoin.Kline, consumed *structure.ConsumedSet) *Snapshot {
	snapshot := &Snapshot{}
	if len(candles) < 4 {
		return snapshot
	}

	snapshot.BullishOBs, snapshot.BearishOBs = d.DetectOrderBlocks(candles, consumed)
	snapshot.BullishFVGs, snapshot.BearishFVGs = d.DetectFVGs(candles, consumed)
	return snapshot
}

// CheckPrice returns which zone kinds contain the price. Zones whose IDs
// appear in the consumed set (filled gaps, mitigated blocks) are excluded.
func (d *Detector) CheckPrice(price float64, snapshot *Snapshot, consumed *structure.ConsumedSet) PriceZones {
	result := PriceZones{}

	addOB := func(ob OrderBlock) {
		if consumed.Has(ob.ID) {
			return
		}
		zone := Zone{ID: ob.ID, Kind: KindOrderBlock, Bullish: ob.Bullish, Top: ob.Top, Bottom: ob.Bottom, Strength: ob.Strength}
		if !zone.Contains(price) {
			return
		}
		if ob.Bullish {
			result.InBullishOB = true
		} else {
			result.InBearishOB = true
		}
		result.ActiveZones = append(result.ActiveZones, zone)
	}
	addFVG := func(gap FairValueGap) {
		if consumed.Has(gap.ID) || gap.Filled() {
			return
		}
		zone := Zone{ID: gap.ID, Kind: KindFairValueGap, Bullish: gap.Bullish, Top: gap.Top, Bottom: gap.Bottom, Strength: gap.Strength}
		if !zone.Contains(price) {
			return
		}
		if gap.Bullish {
			result.InBullishFVG = true
		} else {
			result.InBearishFVG = true
		}
		result.ActiveZones = append(result.ActiveZones, zone)
	}

	for _, ob := range snapshot.BullishOBs {
		addOB(ob)
	}
	for _, ob := range snapshot.BearishOBs {
		addOB(ob)
	}
	for _, gap := range snapshot.BullishFVGs {
		addFVG(gap)
	}
	for _, gap := range snapshot.BearishFVGs {
		addFVG(gap)
	}

	sort.Slice(result.ActiveZones, func(i, j int) bool {
		return result.ActiveZones[i].Strength > result.ActiveZones[j].Strength
	})
	return result
}

// Shared rolling averages used by both zone strength rubrics.

func averageBody(candles []kucoin.Kline, window int) float64 {
	start := len(candles) - window
	if start < 0 {
		start = 0
	}
	if len(candles) == start {
		return 0
	}
	total := 0.0
	for _, c := range candles[start:] {
		total += c.Body()
	}
	return total / float64(len(candles)-start)
}

func averageTrueRange(candles []kucoin.Kline, window int) float64 {
	if len(candles) < 2 {
		return 0
	}
	start := len(candles) - window
	if start < 1 {
		start = 1
	}
	total := 0.0
	count := 0
	for i := start; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowClose := math.Abs(candles[i].Low - candles[i-1].Close)
		total += math.Max(highLow, math.Max(highClose, lowClose))
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func averageVolume(candles []kucoin.Kline, window int) float64 {
	start := len(candles) - window
	if start < 0 {
		start = 0
	}
	if len(candles) == start {
		return 0
	}
	total := 0.0
	for _, c := range candles[start:] {
		total += c.Volume
	}
	return total / float64(len(candles)-start)
}
