package kucoin

import "time"

// maxStreamAge bounds how stale a websocket price may be before the REST
// endpoint is consulted instead.
const maxStreamAge = 15 * time.Second

// LivePriceSource serves the freshest available price: the websocket
// ticker cache when recent, otherwise a REST lookup.
type LivePriceSource struct {
	Stream *TickerStream // optional
	Client MarketDataClient
}

func (s *LivePriceSource) Price(symbol string) (float64, error) {
	if s.Stream != nil {
		if price, ok := s.Stream.ReadPrice(symbol, maxStreamAge); ok {
			return price, nil
		}
	}
	return s.Client.GetCurrentPrice(symbol)
}
