package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisActiveKey  = "signals:active"
	redisHistoryKey = "signals:history"
	redisOpTimeout  = 5 * time.Second
)

// RedisStore keeps the active set in a hash keyed by signal ID and the
// history in a list, so several bot instances can share one tracker state.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) LoadActive() ([]*TrackedSignal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	entries, err := s.client.HGetAll(ctx, redisActiveKey).Result()
	if err != nil {
		return nil, fmt.Errorf("loading active signals: %w", err)
	}

	signals := make([]*TrackedSignal, 0, len(entries))
	for id, raw := range entries {
		var sig TrackedSignal
		if err := json.Unmarshal([]byte(raw), &sig); err != nil {
			return nil, fmt.Errorf("parsing signal %s: %w", id, err)
		}
		signals = append(signals, &sig)
	}
	return signals, nil
}

func (s *RedisStore) SaveActive(signals []*TrackedSignal) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisActiveKey)
	for _, sig := range signals {
		raw, err := json.Marshal(sig)
		if err != nil {
			return fmt.Errorf("encoding signal %s: %w", sig.SignalID, err)
		}
		pipe.HSet(ctx, redisActiveKey, sig.SignalID, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving active signals: %w", err)
	}
	return nil
}

func (s *RedisStore) Archive(sig *TrackedSignal) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("encoding signal %s: %w", sig.SignalID, err)
	}
	if err := s.client.RPush(ctx, redisHistoryKey, raw).Err(); err != nil {
		return fmt.Errorf("archiving signal %s: %w", sig.SignalID, err)
	}
	return nil
}

func (s *RedisStore) LoadHistory() ([]*TrackedSignal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	entries, err := s.client.LRange(ctx, redisHistoryKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	signals := make([]*TrackedSignal, 0, len(entries))
	for _, raw := range entries {
		var sig TrackedSignal
		if err := json.Unmarshal([]byte(raw), &sig); err != nil {
			return nil, fmt.Errorf("parsing history entry: %w", err)
		}
		signals = append(signals, &sig)
	}
	return signals, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
