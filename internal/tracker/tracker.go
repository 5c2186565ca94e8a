package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kucoin-signal-bot/internal/risk"
	"kucoin-signal-bot/internal/signal"
)

// PriceSource supplies the latest traded price for a symbol.
type PriceSource interface {
	Price(symbol string) (float64, error)
}

// Notifier delivers lifecycle events. Implementations report success with
// a bool; delivery failures never affect lifecycle decisions.
type Notifier interface {
	NotifyTPHit(sig *TrackedSignal, level int) bool
	NotifyStopLoss(sig *TrackedSignal) bool
	NotifyExpiry(sig *TrackedSignal) bool
}

// Config holds the tracker settings.
type Config struct {
	PollInterval      time.Duration
	MaxSignalAge      time.Duration
	BreakevenAfterTP1 bool
}

const errorBackoff = 60 * time.Second

// Tracker polls active signals against live prices and walks them through
// their lifecycle. In-memory state is authoritative; the store is a
// recovery mechanism.
type Tracker struct {
	cfg      Config
	prices   PriceSource
	store    Store
	archive  *PostgresArchive
	notifier Notifier
	logger   zerolog.Logger

	mu     sync.Mutex
	active map[string]*TrackedSignal

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewTracker(cfg Config, prices PriceSource, store Store, notifier Notifier, logger zerolog.Logger) *Tracker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.MaxSignalAge <= 0 {
		cfg.MaxSignalAge = 24 * time.Hour
	}
	return &Tracker{
		cfg:      cfg,
		prices:   prices,
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "tracker").Logger(),
		active:   make(map[string]*TrackedSignal),
		stopChan: make(chan struct{}),
	}
}

// SetArchive attaches an optional long-term archive for completed signals.
func (t *Tracker) SetArchive(archive *PostgresArchive) {
	t.archive = archive
}

// Start restores persisted active signals and begins the poll loop.
func (t *Tracker) Start() error {
	signals, err := t.store.LoadActive()
	if err != nil {
		return fmt.Errorf("restoring active signals: %w", err)
	}
	t.mu.Lock()
	for _, sig := range signals {
		if sig.Status.Terminal() {
			continue
		}
		t.active[sig.SignalID] = sig
	}
	restored := len(t.active)
	t.mu.Unlock()

	t.logger.Info().Int("restored", restored).Msg("tracker started")

	t.wg.Add(1)
	go t.run()
	return nil
}

// Stop halts the poll loop and persists the current active set.
func (t *Tracker) Stop() {
	close(t.stopChan)
	t.wg.Wait()
	t.persistActive()
	t.logger.Info().Msg("tracker stopped")
}

func (t *Tracker) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			if err := t.pollOnce(time.Now().UTC()); err != nil {
				t.logger.Error().Err(err).Msg("poll batch failed, backing off")
				select {
				case <-t.stopChan:
					return
				case <-time.After(errorBackoff):
				}
			}
		}
	}
}

// pollOnce checks every active signal. A per-signal failure skips only
// that signal; a panic is converted into a batch error so the loop
// survives.
func (t *Tracker) pollOnce(now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in poll batch: %v", r)
		}
	}()

	for _, sig := range t.snapshot() {
		price, perr := t.prices.Price(sig.Symbol)
		if perr != nil {
			t.logger.Warn().Err(perr).
				Str("signal_id", sig.SignalID).
				Str("symbol", sig.Symbol).
				Msg("price unavailable, skipping signal this poll")
			continue
		}
		t.evaluate(sig, price, now)
	}

	t.persistActive()
	return nil
}

// snapshot copies the active set so evaluation does not hold the lock
// across network calls.
func (t *Tracker) snapshot() []*TrackedSignal {
	t.mu.Lock()
	defer t.mu.Unlock()

	signals := make([]*TrackedSignal, 0, len(t.active))
	for _, sig := range t.active {
		signals = append(signals, sig)
	}
	sort.Slice(signals, func(i, j int) bool {
		return signals[i].CreatedAt.Before(signals[j].CreatedAt)
	})
	return signals
}

// evaluate applies one observed price to one signal. Expiry is checked
// first and wins regardless of price. The stop is live only while the
// signal is fully ACTIVE unless breakeven mode moves it to entry after
// TP1. Take-profits are checked highest first so one poll advances at
// most one level.
func (t *Tracker) evaluate(sig *TrackedSignal, price float64, now time.Time) {
	sig.CurrentPrice = price
	sig.UpdatedAt = now

	profit := sig.ProfitPercent(price)
	if profit > sig.MaxProfitPercentage {
		sig.MaxProfitPercentage = profit
	}
	if -profit > sig.MaxLossPercentage {
		sig.MaxLossPercentage = -profit
	}

	if sig.Age(now) > t.cfg.MaxSignalAge {
		t.complete(sig, StatusExpired, now)
		return
	}

	if stop, live := t.liveStop(sig); live && t.crossedDown(sig, price, stop) {
		t.complete(sig, StatusStopLoss, now)
		return
	}

	switch {
	case !sig.HasTP(3) && t.crossedUp(sig, price, sig.TP3):
		sig.AddTP(3)
		sig.Status = StatusTP3Hit
		t.notifyTP(sig, 3)
		t.complete(sig, StatusTP3Hit, now)
	case !sig.HasTP(2) && t.crossedUp(sig, price, sig.TP2):
		sig.AddTP(2)
		upgradeStatus(sig, StatusTP2Hit)
		t.notifyTP(sig, 2)
	case !sig.HasTP(1) && t.crossedUp(sig, price, sig.TP1):
		sig.AddTP(1)
		upgradeStatus(sig, StatusTP1Hit)
		t.notifyTP(sig, 1)
	}
}

// upgradeStatus moves the status forward only. A lower level backfilled
// after a gap never downgrades a higher recorded status.
func upgradeStatus(sig *TrackedSignal, status Status) {
	if statusRank(status) > statusRank(sig.Status) {
		sig.Status = status
	}
}

func statusRank(s Status) int {
	switch s {
	case StatusActive:
		return 0
	case StatusTP1Hit:
		return 1
	case StatusTP2Hit:
		return 2
	case StatusTP3Hit:
		return 3
	default:
		return 4
	}
}

// liveStop returns the effective stop level and whether it is armed.
func (t *Tracker) liveStop(sig *TrackedSignal) (float64, bool) {
	if sig.Status == StatusActive {
		return sig.StopLoss, true
	}
	if t.cfg.BreakevenAfterTP1 {
		return sig.EntryPrice, true
	}
	return 0, false
}

// crossedUp reports whether price reached a profit level for the trade side.
func (t *Tracker) crossedUp(sig *TrackedSignal, price, level float64) bool {
	if level <= 0 {
		return false
	}
	if sig.IsLong() {
		return price >= level
	}
	return price <= level
}

// crossedDown reports whether price reached a loss level for the trade side.
func (t *Tracker) crossedDown(sig *TrackedSignal, price, level float64) bool {
	if level <= 0 {
		return false
	}
	if sig.IsLong() {
		return price <= level
	}
	return price >= level
}

// notifyTP sends at most one notification per level per signal.
func (t *Tracker) notifyTP(sig *TrackedSignal, level int) {
	key := fmt.Sprintf("tp%d_%s", level, sig.SignalID)
	if sig.HasNotification(key) {
		return
	}
	sig.AddNotification(key)

	t.logger.Info().
		Str("signal_id", sig.SignalID).
		Str("symbol", sig.Symbol).
		Int("level", level).
		Float64("price", sig.CurrentPrice).
		Msg("take profit hit")

	if t.notifier != nil && !t.notifier.NotifyTPHit(sig, level) {
		t.logger.Warn().Str("signal_id", sig.SignalID).Int("level", level).
			Msg("take profit notification not delivered")
	}
}

// complete moves a signal to a terminal status, archives it and removes
// it from the active set.
func (t *Tracker) complete(sig *TrackedSignal, status Status, now time.Time) {
	sig.Status = status
	sig.UpdatedAt = now

	switch status {
	case StatusStopLoss:
		key := "sl_" + sig.SignalID
		if !sig.HasNotification(key) {
			sig.AddNotification(key)
			if t.notifier != nil && !t.notifier.NotifyStopLoss(sig) {
				t.logger.Warn().Str("signal_id", sig.SignalID).
					Msg("stop loss notification not delivered")
			}
		}
	case StatusExpired:
		key := "expired_" + sig.SignalID
		if !sig.HasNotification(key) {
			sig.AddNotification(key)
			if t.notifier != nil && !t.notifier.NotifyExpiry(sig) {
				t.logger.Warn().Str("signal_id", sig.SignalID).
					Msg("expiry notification not delivered")
			}
		}
	}

	t.logger.Info().
		Str("signal_id", sig.SignalID).
		Str("symbol", sig.Symbol).
		Str("status", string(status)).
		Float64("max_profit_pct", sig.MaxProfitPercentage).
		Float64("max_loss_pct", sig.MaxLossPercentage).
		Msg("signal completed")

	if err := t.store.Archive(sig); err != nil {
		t.logger.Error().Err(err).Str("signal_id", sig.SignalID).
			Msg("archiving signal failed, continuing with in-memory state")
	}
	if t.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := t.archive.Insert(ctx, sig); err != nil {
			t.logger.Error().Err(err).Str("signal_id", sig.SignalID).
				Msg("long-term archive insert failed")
		}
		cancel()
	}

	t.mu.Lock()
	delete(t.active, sig.SignalID)
	t.mu.Unlock()
}

// persistActive rewrites the active set wholesale. Failures are logged;
// the in-memory set remains authoritative.
func (t *Tracker) persistActive() {
	signals := t.snapshot()
	if err := t.store.SaveActive(signals); err != nil {
		t.logger.Error().Err(err).
			Msg("persisting active signals failed, will retry next poll")
	}
}

// Track registers a confirmed candidate with its risk levels. At most one
// ACTIVE signal per symbol and direction is allowed.
func (t *Tracker) Track(cand *signal.Candidate, levels *risk.Levels) (*TrackedSignal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, existing := range t.active {
		if existing.Symbol == cand.Symbol && existing.SignalType == string(cand.Direction) {
			return nil, fmt.Errorf("%s %s: %w", cand.Symbol, cand.Direction, ErrDuplicateSignal)
		}
	}

	now := time.Now().UTC()
	sig := &TrackedSignal{
		SignalID:          cand.ID,
		Symbol:            cand.Symbol,
		SignalType:        string(cand.Direction),
		EntryPrice:        cand.EntryPrice,
		CurrentPrice:      cand.EntryPrice,
		StopLoss:          levels.StopLoss,
		TP1:               levels.TP1,
		TP2:               levels.TP2,
		TP3:               levels.TP3,
		Status:            StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
		HitTPLevels:       []int{},
		NotificationsSent: []string{},
		AnalysisData: map[string]interface{}{
			"strategy":    string(cand.Strategy),
			"confidence":  cand.Confidence,
			"reason":      cand.Reason,
			"stop_source": levels.StopSource,
			"risk_reward": levels.RiskReward,
		},
	}
	t.active[sig.SignalID] = sig

	t.logger.Info().
		Str("signal_id", sig.SignalID).
		Str("symbol", sig.Symbol).
		Str("direction", sig.SignalType).
		Float64("entry", sig.EntryPrice).
		Float64("stop", sig.StopLoss).
		Msg("signal tracked")

	go t.persistActive()
	return sig, nil
}

// IsSymbolActive reports whether an ACTIVE signal exists for the symbol
// and direction.
func (t *Tracker) IsSymbolActive(symbol string, direction signal.Direction) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, sig := range t.active {
		if sig.Symbol == symbol && sig.SignalType == string(direction) {
			return true
		}
	}
	return false
}

// Cancel marks a signal CANCELLED and archives it.
func (t *Tracker) Cancel(signalID string) error {
	t.mu.Lock()
	sig, ok := t.active[signalID]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", signalID, ErrSignalNotFound)
	}
	t.complete(sig, StatusCancelled, time.Now().UTC())
	t.persistActive()
	return nil
}

// ActiveSignals returns a copy of the active set, oldest first.
func (t *Tracker) ActiveSignals() []*TrackedSignal {
	snapshot := t.snapshot()
	out := make([]*TrackedSignal, len(snapshot))
	for i, sig := range snapshot {
		clone := *sig
		out[i] = &clone
	}
	return out
}

// History returns archived signals from the store.
func (t *Tracker) History() ([]*TrackedSignal, error) {
	return t.store.LoadHistory()
}
