package notification

import (
	"fmt"
	"time"

	"kucoin-signal-bot/internal/logging"
	"kucoin-signal-bot/internal/tracker"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyNewSignal NotificationType = "signal"
	NotifyTPHit     NotificationType = "tp_hit"
	NotifyStopLoss  NotificationType = "stop_loss"
	NotifyExpired   NotificationType = "expired"
	NotifyError     NotificationType = "error"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Symbol    string
	Price     float64
	Profit    float64
	Timestamp time.Time
	Extra     map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans notifications out to every enabled provider. Delivery
// failures are logged per provider and reported as a bool so lifecycle
// handling never depends on a provider being reachable.
type Manager struct {
	notifiers []Notifier
	enabled   bool
	logger    *logging.Logger
}

var _ tracker.Notifier = (*Manager)(nil)

// NewManager creates a new notification manager
func NewManager() *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   true,
		logger:    logging.WithComponent("notification"),
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send delivers to all enabled providers and reports whether at least one
// delivery succeeded.
func (m *Manager) Send(notification *Notification) bool {
	if !m.enabled {
		return false
	}

	delivered := false
	attempted := false
	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}
		attempted = true
		if err := n.Send(notification); err != nil {
			m.logger.WithField("provider", n.Name()).WithError(err).
				Warn("notification delivery failed")
			continue
		}
		delivered = true
	}
	// With no providers configured there is nothing to deliver; treat
	// that as success so idempotence keys are still recorded once.
	return delivered || !attempted
}

// SendNewSignal announces a freshly tracked signal.
func (m *Manager) SendNewSignal(sig *tracker.TrackedSignal) bool {
	emoji := "🟢"
	if !sig.IsLong() {
		emoji = "🔴"
	}

	return m.Send(&Notification{
		Type:  NotifyNewSignal,
		Title: fmt.Sprintf("%s %s Signal: %s", emoji, sig.SignalType, sig.Symbol),
		Message: fmt.Sprintf("Entry: %.6f\nSL: %.6f\nTP1: %.6f | TP2: %.6f | TP3: %.6f",
			sig.EntryPrice, sig.StopLoss, sig.TP1, sig.TP2, sig.TP3),
		Symbol:    sig.Symbol,
		Price:     sig.EntryPrice,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"signal_id": sig.SignalID,
			"direction": sig.SignalType,
		},
	})
}

// NotifyTPHit announces a take-profit level being reached.
func (m *Manager) NotifyTPHit(sig *tracker.TrackedSignal, level int) bool {
	return m.Send(&Notification{
		Type:  NotifyTPHit,
		Title: fmt.Sprintf("🎯 TP%d Hit: %s", level, sig.Symbol),
		Message: fmt.Sprintf("%s %s\nPrice: %.6f (entry %.6f)\nProfit: %.2f%%",
			sig.SignalType, sig.Symbol, sig.CurrentPrice, sig.EntryPrice,
			sig.ProfitPercent(sig.CurrentPrice)),
		Symbol:    sig.Symbol,
		Price:     sig.CurrentPrice,
		Profit:    sig.ProfitPercent(sig.CurrentPrice),
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"signal_id": sig.SignalID,
			"level":     level,
		},
	})
}

// NotifyStopLoss announces a stop-loss exit.
func (m *Manager) NotifyStopLoss(sig *tracker.TrackedSignal) bool {
	return m.Send(&Notification{
		Type:  NotifyStopLoss,
		Title: fmt.Sprintf("❌ Stop Loss: %s", sig.Symbol),
		Message: fmt.Sprintf("%s %s\nPrice: %.6f (entry %.6f)\nLoss: %.2f%%",
			sig.SignalType, sig.Symbol, sig.CurrentPrice, sig.EntryPrice,
			sig.ProfitPercent(sig.CurrentPrice)),
		Symbol:    sig.Symbol,
		Price:     sig.CurrentPrice,
		Profit:    sig.ProfitPercent(sig.CurrentPrice),
		Timestamp: time.Now(),
		Extra:     map[string]interface{}{"signal_id": sig.SignalID},
	})
}

// NotifyExpiry announces a signal aged out without resolution.
func (m *Manager) NotifyExpiry(sig *tracker.TrackedSignal) bool {
	return m.Send(&Notification{
		Type:  NotifyExpired,
		Title: fmt.Sprintf("⏳ Expired: %s", sig.Symbol),
		Message: fmt.Sprintf("%s %s expired without resolution\nMax profit: %.2f%% | Max loss: %.2f%%",
			sig.SignalType, sig.Symbol, sig.MaxProfitPercentage, sig.MaxLossPercentage),
		Symbol:    sig.Symbol,
		Price:     sig.CurrentPrice,
		Timestamp: time.Now(),
		Extra:     map[string]interface{}{"signal_id": sig.SignalID},
	})
}

// SendError sends an operational error notification.
func (m *Manager) SendError(title, message string) bool {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("⚠️ %s", title),
		Message:   message,
		Timestamp: time.Now(),
	})
}
