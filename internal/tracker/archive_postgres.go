package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const completedSignalsSchema = `
CREATE TABLE IF NOT EXISTS completed_signals (
	signal_id             TEXT PRIMARY KEY,
	symbol                TEXT NOT NULL,
	signal_type           TEXT NOT NULL,
	status                TEXT NOT NULL,
	entry_price           DOUBLE PRECISION NOT NULL,
	stop_loss             DOUBLE PRECISION NOT NULL,
	tp1                   DOUBLE PRECISION NOT NULL,
	tp2                   DOUBLE PRECISION NOT NULL,
	tp3                   DOUBLE PRECISION NOT NULL,
	max_profit_percentage DOUBLE PRECISION NOT NULL,
	max_loss_percentage   DOUBLE PRECISION NOT NULL,
	hit_tp_levels         INTEGER[] NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL,
	closed_at             TIMESTAMPTZ NOT NULL,
	analysis_data         JSONB
);
CREATE INDEX IF NOT EXISTS completed_signals_symbol_idx ON completed_signals (symbol);
CREATE INDEX IF NOT EXISTS completed_signals_closed_at_idx ON completed_signals (closed_at);
`

// PostgresArchive is an optional long-term store for completed signals,
// used for performance queries. Lifecycle decisions never depend on it.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(ctx context.Context, dsn string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, completedSignalsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &PostgresArchive{pool: pool}, nil
}

// Insert records a terminal signal. Re-inserting the same signal ID is a
// no-op so a retried archive cannot duplicate rows.
func (a *PostgresArchive) Insert(ctx context.Context, sig *TrackedSignal) error {
	analysis, err := json.Marshal(sig.AnalysisData)
	if err != nil {
		return fmt.Errorf("encoding analysis data: %w", err)
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO completed_signals (
			signal_id, symbol, signal_type, status,
			entry_price, stop_loss, tp1, tp2, tp3,
			max_profit_percentage, max_loss_percentage,
			hit_tp_levels, created_at, closed_at, analysis_data
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (signal_id) DO NOTHING`,
		sig.SignalID, sig.Symbol, sig.SignalType, string(sig.Status),
		sig.EntryPrice, sig.StopLoss, sig.TP1, sig.TP2, sig.TP3,
		sig.MaxProfitPercentage, sig.MaxLossPercentage,
		sig.HitTPLevels, sig.CreatedAt, sig.UpdatedAt, analysis)
	if err != nil {
		return fmt.Errorf("inserting signal %s: %w", sig.SignalID, err)
	}
	return nil
}

// PerformanceSummary aggregates completed signals over a window.
type PerformanceSummary struct {
	Total         int     `json:"total"`
	TP1Hits       int     `json:"tp1_hits"`
	TP2Hits       int     `json:"tp2_hits"`
	TP3Hits       int     `json:"tp3_hits"`
	StopLosses    int     `json:"stop_losses"`
	Expired       int     `json:"expired"`
	WinRate       float64 `json:"win_rate"`
	AvgMaxProfit  float64 `json:"avg_max_profit"`
	AvgMaxLoss    float64 `json:"avg_max_loss"`
}

// Summary computes outcome counts and averages for signals closed since
// the cutoff.
func (a *PostgresArchive) Summary(ctx context.Context, since time.Time) (*PerformanceSummary, error) {
	row := a.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE 1 = ANY(hit_tp_levels)),
			COUNT(*) FILTER (WHERE 2 = ANY(hit_tp_levels)),
			COUNT(*) FILTER (WHERE 3 = ANY(hit_tp_levels)),
			COUNT(*) FILTER (WHERE status = 'stop_loss'),
			COUNT(*) FILTER (WHERE status = 'expired'),
			COALESCE(AVG(max_profit_percentage), 0),
			COALESCE(AVG(max_loss_percentage), 0)
		FROM completed_signals
		WHERE closed_at >= $1`, since)

	var s PerformanceSummary
	if err := row.Scan(&s.Total, &s.TP1Hits, &s.TP2Hits, &s.TP3Hits,
		&s.StopLosses, &s.Expired, &s.AvgMaxProfit, &s.AvgMaxLoss); err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}
	if s.Total > 0 {
		s.WinRate = float64(s.TP1Hits) / float64(s.Total) * 100
	}
	return &s, nil
}

// Close releases the connection pool.
func (a *PostgresArchive) Close() {
	a.pool.Close()
}
