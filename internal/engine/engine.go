package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kucoin-signal-bot/config"
	"kucoin-signal-bot/internal/confirmation"
	"kucoin-signal-bot/internal/market"
	"kucoin-signal-bot/internal/momentum"
	"kucoin-signal-bot/internal/notification"
	"kucoin-signal-bot/internal/risk"
	"kucoin-signal-bot/internal/signal"
	"kucoin-signal-bot/internal/structure"
	"kucoin-signal-bot/internal/tracker"
	"kucoin-signal-bot/internal/trend"
	"kucoin-signal-bot/internal/zones"
)

// Stats is a point-in-time view of the engine for the status API.
type Stats struct {
	CyclesRun       int64     `json:"cycles_run"`
	SignalsIssued   int64     `json:"signals_issued"`
	SignalsLastHour int       `json:"signals_last_hour"`
	SymbolCount     int       `json:"symbol_count"`
	LastCycleAt     time.Time `json:"last_cycle_at"`
	LastCycleTook   string    `json:"last_cycle_took"`
}

// SymbolSource supplies the watchlist for each analysis pass.
type SymbolSource interface {
	TopSymbols() ([]string, error)
}

// Engine runs the periodic detection pass over the watchlist and hands
// accepted candidates to the tracker.
type Engine struct {
	cfg       config.EngineConfig
	analyzer  *market.Analyzer
	prices    tracker.PriceSource
	symbols   SymbolSource // optional; cfg.Symbols wins when set
	trendF    *trend.Filter
	structA   *structure.Analyzer
	zonesD    *zones.Detector
	momentumD *momentum.Detector
	composer  *signal.Composer
	riskE     *risk.Engine
	gate      *confirmation.Gate
	track     *tracker.Tracker
	notify    *notification.Manager
	logger    zerolog.Logger

	mu          sync.Mutex
	issuedTimes []time.Time
	stats       Stats

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Deps collects the engine's collaborators.
type Deps struct {
	Analyzer  *market.Analyzer
	Prices    tracker.PriceSource
	Symbols   SymbolSource
	Trend     *trend.Filter
	Structure *structure.Analyzer
	Zones     *zones.Detector
	Momentum  *momentum.Detector
	Composer  *signal.Composer
	Risk      *risk.Engine
	Gate      *confirmation.Gate
	Tracker   *tracker.Tracker
	Notify    *notification.Manager
}

func New(cfg config.EngineConfig, deps Deps, logger zerolog.Logger) *Engine {
	if cfg.AnalysisInterval <= 0 {
		cfg.AnalysisInterval = 300
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxSignalsPerHour <= 0 {
		cfg.MaxSignalsPerHour = 5
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 70
	}
	return &Engine{
		cfg:       cfg,
		analyzer:  deps.Analyzer,
		prices:    deps.Prices,
		symbols:   deps.Symbols,
		trendF:    deps.Trend,
		structA:   deps.Structure,
		zonesD:    deps.Zones,
		momentumD: deps.Momentum,
		composer:  deps.Composer,
		riskE:     deps.Risk,
		gate:      deps.Gate,
		track:     deps.Tracker,
		notify:    deps.Notify,
		logger:    logger.With().Str("component", "engine").Logger(),
		stopChan:  make(chan struct{}),
	}
}

// Start begins the analysis loop, running one pass immediately.
func (e *Engine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		interval := time.Duration(e.cfg.AnalysisInterval) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		e.runCycle()
		for {
			select {
			case <-e.stopChan:
				return
			case <-ticker.C:
				e.runCycle()
			}
		}
	}()
	e.logger.Info().
		Int("interval_sec", e.cfg.AnalysisInterval).
		Int("workers", e.cfg.WorkerCount).
		Msg("engine started")
}

// Stop halts the analysis loop and waits for the current pass.
func (e *Engine) Stop() {
	close(e.stopChan)
	e.wg.Wait()
	e.logger.Info().Msg("engine stopped")
}

// Stats returns a copy of the current counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.SignalsLastHour = e.issuedInLastHourLocked(time.Now())
	return s
}

// runCycle analyzes every watchlist symbol with a bounded worker pool,
// then accepts the best candidates by confidence up to the hourly cap.
func (e *Engine) runCycle() {
	start := time.Now()
	symbols := e.watchlist()
	if len(symbols) == 0 {
		e.logger.Warn().Msg("empty watchlist, skipping cycle")
		return
	}

	type outcome struct {
		cand   *signal.Candidate
		levels *risk.Levels
	}

	jobs := make(chan string)
	results := make(chan outcome, len(symbols))

	var workers sync.WaitGroup
	for i := 0; i < e.cfg.WorkerCount; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for symbol := range jobs {
				cand, levels := e.analyzeSymbol(symbol)
				if cand != nil {
					results <- outcome{cand, levels}
				}
			}
		}()
	}

	for _, symbol := range symbols {
		jobs <- symbol
	}
	close(jobs)
	workers.Wait()
	close(results)

	var candidates []outcome
	for r := range results {
		candidates = append(candidates, r)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].cand.Confidence > candidates[j].cand.Confidence
	})

	issued := 0
	for _, r := range candidates {
		if !e.underHourlyCap() {
			e.logger.Info().Msg("hourly signal cap reached, deferring remaining candidates")
			break
		}
		if e.issue(r.cand, r.levels) {
			issued++
		}
	}

	took := time.Since(start)
	e.mu.Lock()
	e.stats.CyclesRun++
	e.stats.SignalsIssued += int64(issued)
	e.stats.SymbolCount = len(symbols)
	e.stats.LastCycleAt = start.UTC()
	e.stats.LastCycleTook = took.Round(time.Millisecond).String()
	e.mu.Unlock()

	e.logger.Info().
		Int("symbols", len(symbols)).
		Int("candidates", len(candidates)).
		Int("issued", issued).
		Dur("took", took).
		Msg("analysis cycle complete")
}

// watchlist prefers the fixed symbol list, falling back to the screener.
func (e *Engine) watchlist() []string {
	if len(e.cfg.Symbols) > 0 {
		return e.cfg.Symbols
	}
	if e.symbols == nil {
		return nil
	}
	symbols, err := e.symbols.TopSymbols()
	if err != nil {
		e.logger.Warn().Err(err).Msg("screener failed, skipping cycle")
		return nil
	}
	return symbols
}

// analyzeSymbol runs the full detection pipeline for one symbol. Fetch
// failures skip the symbol for this cycle; "no signal" returns nil
// without logging noise.
func (e *Engine) analyzeSymbol(symbol string) (*signal.Candidate, *risk.Levels) {
	h1, err := e.analyzer.GetCandles(symbol, market.TimeframeH1)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("hourly candles unavailable, skipping symbol")
		return nil, nil
	}
	m15, err := e.analyzer.GetCandles(symbol, market.TimeframeM15)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("m15 candles unavailable, skipping symbol")
		return nil, nil
	}
	price, err := e.prices.Price(symbol)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("price unavailable, skipping symbol")
		return nil, nil
	}

	consumed := structure.NewConsumedSet()
	htf := e.structA.Analyze(h1, structure.NewConsumedSet())

	snap := e.structA.Analyze(m15, consumed)
	zoneSnap := e.zonesD.Detect(m15, consumed)

	ctx := signal.Context{
		Trend:      e.trendF.Evaluate(m15),
		Sweep:      snap.LatestSweep(),
		Event:      snap.LatestEvent(),
		Momentum:   e.momentumD.Latest(m15),
		PriceZones: e.zonesD.CheckPrice(price, zoneSnap, consumed),
		SwingHighs: snap.SwingHighs,
		SwingLows:  snap.SwingLows,
		HTFBias:    htf.Bias,
		Liquidity:  market.LiquidityLevels(h1),
	}

	cand, reason := e.composer.Compose(symbol, price, ctx)
	if cand == nil {
		e.logger.Debug().Str("symbol", symbol).Str("reason", reason).Msg("no signal")
		return nil, nil
	}
	if cand.Confidence < e.cfg.MinConfidence {
		return nil, nil
	}
	if e.track.IsSymbolActive(symbol, cand.Direction) {
		e.logger.Debug().Str("symbol", symbol).Str("direction", string(cand.Direction)).
			Msg("signal already active, skipping")
		return nil, nil
	}

	levels, err := e.riskE.Compute(cand)
	if err != nil {
		e.logger.Debug().Err(err).Str("symbol", symbol).Msg("risk computation rejected candidate")
		return nil, nil
	}

	if e.gate != nil {
		m5, err := e.analyzer.GetCandles(symbol, market.TimeframeM5)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("m5 candles unavailable, skipping symbol")
			return nil, nil
		}
		result := e.gate.Confirm(cand, m5)
		if !result.Passed {
			e.logger.Debug().Str("symbol", symbol).Str("reason", result.Reason).
				Float64("score", result.Score).Msg("confirmation rejected candidate")
			return nil, nil
		}
		// Entry moved to the confirming close; recompute levels around it.
		levels, err = e.riskE.Compute(cand)
		if err != nil {
			e.logger.Debug().Err(err).Str("symbol", symbol).Msg("risk rejected confirmed entry")
			return nil, nil
		}
	}

	return cand, levels
}

// issue registers the candidate with the tracker and announces it.
func (e *Engine) issue(cand *signal.Candidate, levels *risk.Levels) bool {
	sig, err := e.track.Track(cand, levels)
	if err != nil {
		e.logger.Debug().Err(err).Str("symbol", cand.Symbol).Msg("tracking rejected candidate")
		return false
	}

	e.mu.Lock()
	e.issuedTimes = append(e.issuedTimes, time.Now())
	e.mu.Unlock()

	e.logger.Info().
		Str("signal_id", sig.SignalID).
		Str("symbol", sig.Symbol).
		Str("direction", sig.SignalType).
		Float64("confidence", cand.Confidence).
		Float64("entry", sig.EntryPrice).
		Float64("rr", levels.RiskReward).
		Msg("signal issued")

	if e.notify != nil && !e.notify.SendNewSignal(sig) {
		e.logger.Warn().Str("signal_id", sig.SignalID).Msg("signal notification not delivered")
	}
	return true
}

func (e *Engine) underHourlyCap() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.issuedInLastHourLocked(time.Now()) < e.cfg.MaxSignalsPerHour
}

// issuedInLastHourLocked prunes stale timestamps as a side effect.
func (e *Engine) issuedInLastHourLocked(now time.Time) int {
	cutoff := now.Add(-time.Hour)
	kept := e.issuedTimes[:0]
	for _, t := range e.issuedTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.issuedTimes = kept
	return len(kept)
}
