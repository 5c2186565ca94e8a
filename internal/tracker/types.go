package tracker

import (
	"errors"
	"time"
)

var (
	// ErrSignalNotFound means no tracked signal exists with the given ID.
	ErrSignalNotFound = errors.New("signal not found")
	// ErrDuplicateSignal means an ACTIVE signal already exists for the
	// same symbol and direction.
	ErrDuplicateSignal = errors.New("signal already active for symbol and direction")
)

// Status is the lifecycle state of a tracked signal.
type Status string

const (
	StatusActive    Status = "active"
	StatusTP1Hit    Status = "tp1_hit"
	StatusTP2Hit    Status = "tp2_hit"
	StatusTP3Hit    Status = "tp3_hit"
	StatusStopLoss  Status = "stop_loss"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status ends the signal's lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusTP3Hit, StatusStopLoss, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// TrackedSignal is the persisted record the tracker mutates on every poll.
// Once archived with a terminal status it is never mutated again.
type TrackedSignal struct {
	SignalID     string  `json:"signal_id"`
	Symbol       string  `json:"symbol"`
	SignalType   string  `json:"signal_type"` // "LONG" or "SHORT"
	EntryPrice   float64 `json:"entry_price"`
	CurrentPrice float64 `json:"current_price"`
	StopLoss     float64 `json:"stop_loss"`
	TP1          float64 `json:"tp1"`
	TP2          float64 `json:"tp2"`
	TP3          float64 `json:"tp3"`
	Status       Status  `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// HitTPLevels grows monotonically and never holds duplicates.
	HitTPLevels []int `json:"hit_tp_levels"`

	// High-water marks; they only ever increase.
	MaxProfitPercentage float64 `json:"max_profit_percentage"`
	MaxLossPercentage   float64 `json:"max_loss_percentage"`

	// NotificationsSent holds idempotence keys, one per event.
	NotificationsSent []string `json:"notifications_sent"`

	AnalysisData map[string]interface{} `json:"analysis_data"`
}

// IsLong reports the trade side.
func (s *TrackedSignal) IsLong() bool {
	return s.SignalType == "LONG"
}

// ProfitPercent computes the signed excursion at the given price.
func (s *TrackedSignal) ProfitPercent(price float64) float64 {
	if s.EntryPrice <= 0 {
		return 0
	}
	if s.IsLong() {
		return (price - s.EntryPrice) / s.EntryPrice * 100
	}
	return (s.EntryPrice - price) / s.EntryPrice * 100
}

// HasTP reports whether the level is already in HitTPLevels.
func (s *TrackedSignal) HasTP(level int) bool {
	for _, l := range s.HitTPLevels {
		if l == level {
			return true
		}
	}
	return false
}

// AddTP inserts the level in ascending position, keeping the list sorted
// and duplicate-free even when a price gap records a higher level first.
func (s *TrackedSignal) AddTP(level int) {
	if s.HasTP(level) {
		return
	}
	at := len(s.HitTPLevels)
	for i, l := range s.HitTPLevels {
		if l > level {
			at = i
			break
		}
	}
	s.HitTPLevels = append(s.HitTPLevels, 0)
	copy(s.HitTPLevels[at+1:], s.HitTPLevels[at:])
	s.HitTPLevels[at] = level
}

// HasNotification reports whether the idempotence key was already used.
func (s *TrackedSignal) HasNotification(key string) bool {
	for _, k := range s.NotificationsSent {
		if k == key {
			return true
		}
	}
	return false
}

// AddNotification records the idempotence key.
func (s *TrackedSignal) AddNotification(key string) {
	if !s.HasNotification(key) {
		s.NotificationsSent = append(s.NotificationsSent, key)
	}
}

// Age returns time since creation.
func (s *TrackedSignal) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
