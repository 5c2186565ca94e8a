package kucoin

import "errors"

var (
	// ErrRateLimited indicates the local limiter or the exchange refused the call.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoPrice indicates the exchange returned no usable price for a symbol.
	ErrNoPrice = errors.New("price unavailable")
)

// MarketDataClient is the surface the detection pipeline and the tracker
// consume. Implemented by Client; tests substitute fakes.
type MarketDataClient interface {
	// GetKlines returns candles oldest to newest, de-duplicated.
	GetKlines(symbol, interval string, limit int) ([]Kline, error)
	// GetCurrentPrice returns the last traded price.
	GetCurrentPrice(symbol string) (float64, error)
	// GetAllTickers returns 24h stats for all symbols.
	GetAllTickers() ([]Ticker, error)
}

var _ MarketDataClient = (*Client)(nil)
