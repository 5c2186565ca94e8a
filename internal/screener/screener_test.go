package screener

import (
	"errors"
	"testing"

	"kucoin-signal-bot/config"
	"kucoin-signal-bot/internal/kucoin"
)

// fakeTickers is a canned MarketDataClient for screener tests.
type fakeTickers struct {
	tickers []kucoin.Ticker
	err     error
}

func (f *fakeTickers) GetKlines(symbol, interval string, limit int) ([]kucoin.Kline, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTickers) GetCurrentPrice(symbol string) (float64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeTickers) GetAllTickers() ([]kucoin.Ticker, error) {
	return f.tickers, f.err
}

func marketTickers() []kucoin.Ticker {
	return []kucoin.Ticker{
		{Symbol: "BTC-USDT", Last: 65000, QuoteVolume: 900_000_000},
		{Symbol: "ETH-USDT", Last: 3200, QuoteVolume: 400_000_000},
		{Symbol: "DOGE-USDT", Last: 0.2, QuoteVolume: 50_000_000},
		{Symbol: "PEPE-USDT", Last: 0.00001, QuoteVolume: 900_000},
		{Symbol: "ETH-BTC", Last: 0.05, QuoteVolume: 100_000_000},
		{Symbol: "USDC-USDT", Last: 1, QuoteVolume: 600_000_000},
	}
}

// TestScanFiltersAndRanks verifies the quote suffix, exclusion and volume
// filters plus the volume-descending order.
func TestScanFiltersAndRanks(t *testing.T) {
	s := NewScreener(&fakeTickers{tickers: marketTickers()}, config.ScreenerConfig{
		QuoteCurrency:  "USDT",
		MinQuoteVolume: 1_000_000,
		ExcludeSymbols: []string{"usdc-usdt"},
	})

	results, err := s.Scan()
	if err != nil {
		t.Fatalf("Expected a scan result, got %v", err)
	}

	want := []string{"BTC-USDT", "ETH-USDT", "DOGE-USDT"}
	if len(results) != len(want) {
		t.Fatalf("Expected %d survivors, got %d", len(want), len(results))
	}
	for i, symbol := range want {
		if results[i].Symbol != symbol {
			t.Errorf("Expected %s at rank %d, got %s", symbol, i, results[i].Symbol)
		}
	}
}

// TestScanCapsAtMaxSymbols verifies the ranked list is cut to the cap.
func TestScanCapsAtMaxSymbols(t *testing.T) {
	s := NewScreener(&fakeTickers{tickers: marketTickers()}, config.ScreenerConfig{
		MaxSymbols: 2,
	})

	symbols, err := s.TopSymbols()
	if err != nil {
		t.Fatalf("Expected symbols, got %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("Expected the cap of 2 symbols, got %d", len(symbols))
	}
	if symbols[0] != "BTC-USDT" || symbols[1] != "USDC-USDT" {
		t.Errorf("Expected the two highest volume pairs, got %v", symbols)
	}
}

// TestScanPropagatesFetchError verifies a ticker fetch failure surfaces.
func TestScanPropagatesFetchError(t *testing.T) {
	s := NewScreener(&fakeTickers{err: errors.New("exchange unreachable")}, config.ScreenerConfig{})

	if _, err := s.Scan(); err == nil {
		t.Error("Expected the fetch error to propagate")
	}
}
