package kucoin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kucoin-signal-bot/internal/logging"
)

// TickerStream maintains a public websocket subscription to live ticker
// prices so the tracker can read fresh prices between REST polls. Prices
// are cached per symbol; ReadPrice falls back to zero when the stream has
// not seen the symbol yet.
type TickerStream struct {
	mu sync.RWMutex

	baseURL    string
	symbols    []string
	conn       *websocket.Conn
	prices     map[string]streamPrice
	stopChan   chan struct{}
	running    bool
	reconnects int

	logger *logging.Logger
}

type streamPrice struct {
	price     float64
	updatedAt time.Time
}

type bulletResponse struct {
	Code string `json:"code"`
	Data struct {
		Token           string `json:"token"`
		InstanceServers []struct {
			Endpoint     string `json:"endpoint"`
			PingInterval int64  `json:"pingInterval"` // milliseconds
		} `json:"instanceServers"`
	} `json:"data"`
}

type streamMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  struct {
		Price float64 `json:"price,string"`
	} `json:"data"`
}

func NewTickerStream(baseURL string, symbols []string) *TickerStream {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &TickerStream{
		baseURL:  baseURL,
		symbols:  symbols,
		prices:   make(map[string]streamPrice),
		stopChan: make(chan struct{}),
		logger:   logging.WithComponent("ticker_stream"),
	}
}

// Start connects and begins consuming ticker updates. Reconnects with
// backoff on read failures until Stop is called.
func (s *TickerStream) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if err := s.connect(); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}

	go s.readLoop()
	return nil
}

// Stop closes the connection and halts the read loop.
func (s *TickerStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
	if s.conn != nil {
		s.conn.Close()
	}
}

// ReadPrice returns the cached live price for symbol and whether the cache
// entry is younger than maxAge.
func (s *TickerStream) ReadPrice(symbol string, maxAge time.Duration) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.prices[symbol]
	if !ok || time.Since(entry.updatedAt) > maxAge {
		return 0, false
	}
	return entry.price, true
}

func (s *TickerStream) connect() error {
	token, endpoint, pingInterval, err := s.requestBulletToken()
	if err != nil {
		return fmt.Errorf("bullet token: %w", err)
	}

	wsURL := fmt.Sprintf("%s?token=%s", endpoint, token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}

	subscribe := map[string]interface{}{
		"id":       time.Now().UnixNano(),
		"type":     "subscribe",
		"topic":    "/market/ticker:" + strings.Join(s.symbols, ","),
		"response": true,
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.pingLoop(conn, pingInterval)

	s.logger.WithField("symbols", len(s.symbols)).Info("ticker stream connected")
	return nil
}

func (s *TickerStream) requestBulletToken() (token, endpoint string, pingInterval time.Duration, err error) {
	resp, err := http.Post(s.baseURL+"/api/v1/bullet-public", "application/json", nil)
	if err != nil {
		return "", "", 0, err
	}
	defer resp.Body.Close()

	var bullet bulletResponse
	if err := json.NewDecoder(resp.Body).Decode(&bullet); err != nil {
		return "", "", 0, err
	}
	if bullet.Code != "200000" || len(bullet.Data.InstanceServers) == 0 {
		return "", "", 0, fmt.Errorf("bullet handshake rejected: code %s", bullet.Code)
	}

	server := bullet.Data.InstanceServers[0]
	interval := time.Duration(server.PingInterval) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return bullet.Data.Token, server.Endpoint, interval, nil
}

func (s *TickerStream) pingLoop(conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ping := map[string]interface{}{"id": time.Now().UnixNano(), "type": "ping"}
			if err := conn.WriteJSON(ping); err != nil {
				return
			}
		}
	}
}

func (s *TickerStream) readLoop() {
	for {
		s.mu.RLock()
		conn := s.conn
		running := s.running
		s.mu.RUnlock()

		if !running {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopChan:
				return
			default:
			}
			s.reconnects++
			backoff := time.Duration(s.reconnects) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			s.logger.WithError(err).WithField("attempt", s.reconnects).
				Warn("ticker stream read failed, reconnecting")
			time.Sleep(backoff)
			if err := s.connect(); err != nil {
				s.logger.WithError(err).Error("ticker stream reconnect failed")
				continue
			}
			s.reconnects = 0
			continue
		}

		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "message" {
			continue
		}

		symbol := strings.TrimPrefix(msg.Topic, "/market/ticker:")
		if symbol == "" || msg.Data.Price <= 0 {
			continue
		}

		s.mu.Lock()
		s.prices[symbol] = streamPrice{price: msg.Data.Price, updatedAt: time.Now()}
		s.mu.Unlock()
	}
}
