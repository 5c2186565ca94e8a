package screener

import (
	"fmt"
	"sort"
	"strings"

	"kucoin-signal-bot/config"
	"kucoin-signal-bot/internal/kucoin"
	"kucoin-signal-bot/internal/logging"
)

// Screener builds the symbol universe the engine analyzes: the top quote
// currency pairs by 24h quote volume, minus an exclusion list.
type Screener struct {
	client kucoin.MarketDataClient
	config config.ScreenerConfig
	logger *logging.Logger
}

// Result is one screened symbol with the stats it was ranked on.
type Result struct {
	Symbol      string
	LastPrice   float64
	ChangeRate  float64
	QuoteVolume float64
}

func NewScreener(client kucoin.MarketDataClient, cfg config.ScreenerConfig) *Screener {
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = "USDT"
	}
	if cfg.MaxSymbols <= 0 {
		cfg.MaxSymbols = 30
	}
	return &Screener{
		client: client,
		config: cfg,
		logger: logging.WithComponent("screener"),
	}
}

// TopSymbols ranks the exchange's quote-currency pairs by 24h quote
// volume and returns up to MaxSymbols of them.
func (s *Screener) TopSymbols() ([]string, error) {
	results, err := s.Scan()
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(results))
	for _, r := range results {
		symbols = append(symbols, r.Symbol)
	}
	return symbols, nil
}

// Scan fetches all tickers and applies the quote currency, exclusion and
// volume filters, returning the survivors ranked by quote volume.
func (s *Screener) Scan() ([]Result, error) {
	tickers, err := s.client.GetAllTickers()
	if err != nil {
		return nil, fmt.Errorf("fetching tickers: %w", err)
	}

	suffix := "-" + s.config.QuoteCurrency
	results := make([]Result, 0, s.config.MaxSymbols)
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, suffix) {
			continue
		}
		if s.isExcluded(t.Symbol) {
			continue
		}
		if t.QuoteVolume < s.config.MinQuoteVolume {
			continue
		}
		results = append(results, Result{
			Symbol:      t.Symbol,
			LastPrice:   t.Last,
			ChangeRate:  t.ChangeRate,
			QuoteVolume: t.QuoteVolume,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].QuoteVolume > results[j].QuoteVolume
	})
	if len(results) > s.config.MaxSymbols {
		results = results[:s.config.MaxSymbols]
	}

	s.logger.WithField("selected", len(results)).
		WithField("total", len(tickers)).
		Info("market scan complete")
	return results, nil
}

func (s *Screener) isExcluded(symbol string) bool {
	for _, excluded := range s.config.ExcludeSymbols {
		if strings.EqualFold(symbol, excluded) {
			return true
		}
	}
	return false
}
