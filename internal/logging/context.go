package logging

import "context"

type contextKey string

const loggerKey contextKey = "logger"

// FromContext retrieves the logger from context
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context carrying the logger
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// DetectionContext creates a logger scoped to one detection pass
func DetectionContext(symbol, timeframe string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe,
	}).WithComponent("detection")
}

// SignalContext creates a logger scoped to a trading signal
func SignalContext(signalID, symbol, direction string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"signal_id": signalID,
		"symbol":    symbol,
		"direction": direction,
	}).WithComponent("signal")
}

// ExchangeContext creates a logger scoped to exchange API calls
func ExchangeContext(endpoint, symbol string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"symbol":   symbol,
	}).WithComponent("kucoin")
}

// NotificationContext creates a logger scoped to a notification provider
func NotificationContext(provider string) *Logger {
	return Default().WithField("provider", provider).WithComponent("notification")
}
