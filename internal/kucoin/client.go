package kucoin

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://api.kucoin.com"

// Client is a REST client for KuCoin public market data.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		rateLimiter: NewRateLimiter(),
	}
}

// Kline represents a single OHLCV candle. Series are always ordered
// oldest to newest with no duplicate timestamps.
type Kline struct {
	Time     int64   `json:"time"` // Unix seconds, candle open
	Open     float64 `json:"open,string"`
	Close    float64 `json:"close,string"`
	High     float64 `json:"high,string"`
	Low      float64 `json:"low,string"`
	Volume   float64 `json:"volume,string"`
	Turnover float64 `json:"turnover,string"`
}

// Body returns the absolute size of the candle body.
func (k Kline) Body() float64 {
	if k.Close >= k.Open {
		return k.Close - k.Open
	}
	return k.Open - k.Close
}

// Range returns the full high-low range of the candle.
func (k Kline) Range() float64 {
	return k.High - k.Low
}

// IsBullish reports whether the candle closed above its open.
func (k Kline) IsBullish() bool {
	return k.Close > k.Open
}

// UpperWick returns the distance from the body top to the high.
func (k Kline) UpperWick() float64 {
	if k.Close >= k.Open {
		return k.High - k.Close
	}
	return k.High - k.Open
}

// LowerWick returns the distance from the body bottom to the low.
func (k Kline) LowerWick() float64 {
	if k.Close >= k.Open {
		return k.Open - k.Low
	}
	return k.Close - k.Low
}

// Ticker represents 24h stats for one symbol from the all-tickers endpoint.
type Ticker struct {
	Symbol      string  `json:"symbol"`
	Last        float64 `json:"last,string"`
	ChangeRate  float64 `json:"changeRate,string"`
	Volume      float64 `json:"vol,string"`
	QuoteVolume float64 `json:"volValue,string"`
}

// envelope is the common KuCoin response wrapper.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) get(path string, params url.Values, out interface{}) error {
	if !c.rateLimiter.Allow(path) {
		return fmt.Errorf("rate limit reached for %s: %w", path, ErrRateLimited)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.rateLimiter.RecordThrottle()
		return fmt.Errorf("throttled on %s: %w", path, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error on %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("parse response %s: %w", path, err)
	}
	if env.Code != "200000" {
		return fmt.Errorf("API error on %s: code %s: %s", path, env.Code, env.Msg)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("parse data %s: %w", path, err)
	}
	return nil
}

// GetKlines fetches up to limit candles for symbol at the given interval
// (KuCoin type strings: "5min", "15min", "1hour"...). The exchange returns
// candles newest first; the result is reversed and de-duplicated so callers
// always see oldest to newest.
func (c *Client) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	if limit <= 0 {
		limit = 100
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("type", interval)

	var raw [][]string
	if err := c.get("/api/v1/market/candles", params, &raw); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(raw))
	for _, row := range raw {
		// [time, open, close, high, low, volume, turnover]
		if len(row) < 7 {
			continue
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		klines = append(klines, Kline{
			Time:     ts,
			Open:     parseFloat(row[1]),
			Close:    parseFloat(row[2]),
			High:     parseFloat(row[3]),
			Low:      parseFloat(row[4]),
			Volume:   parseFloat(row[5]),
			Turnover: parseFloat(row[6]),
		})
	}

	sort.Slice(klines, func(i, j int) bool { return klines[i].Time < klines[j].Time })
	klines = dedupeByTime(klines)

	if len(klines) > limit {
		klines = klines[len(klines)-limit:]
	}
	return klines, nil
}

// GetCurrentPrice returns the best-known last traded price for symbol.
func (c *Client) GetCurrentPrice(symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var data struct {
		Price float64 `json:"price,string"`
	}
	if err := c.get("/api/v1/market/orderbook/level1", params, &data); err != nil {
		return 0, err
	}
	if data.Price <= 0 {
		return 0, fmt.Errorf("no price for %s: %w", symbol, ErrNoPrice)
	}
	return data.Price, nil
}

// GetAllTickers returns 24h stats for every traded symbol.
func (c *Client) GetAllTickers() ([]Ticker, error) {
	var data struct {
		Ticker []Ticker `json:"ticker"`
	}
	if err := c.get("/api/v1/market/allTickers", nil, &data); err != nil {
		return nil, err
	}
	return data.Ticker, nil
}

func dedupeByTime(klines []Kline) []Kline {
	if len(klines) < 2 {
		return klines
	}
	out := klines[:1]
	for _, k := range klines[1:] {
		if k.Time != out[len(out)-1].Time {
			out = append(out, k)
		}
	}
	return out
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
