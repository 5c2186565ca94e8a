package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"kucoin-signal-bot/config"
	"kucoin-signal-bot/internal/api"
	"kucoin-signal-bot/internal/confirmation"
	"kucoin-signal-bot/internal/engine"
	"kucoin-signal-bot/internal/kucoin"
	"kucoin-signal-bot/internal/logging"
	"kucoin-signal-bot/internal/market"
	"kucoin-signal-bot/internal/momentum"
	"kucoin-signal-bot/internal/notification"
	"kucoin-signal-bot/internal/risk"
	"kucoin-signal-bot/internal/screener"
	sig "kucoin-signal-bot/internal/signal"
	"kucoin-signal-bot/internal/structure"
	"kucoin-signal-bot/internal/tracker"
	"kucoin-signal-bot/internal/trend"
	"kucoin-signal-bot/internal/vault"
	"kucoin-signal-bot/internal/zones"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Pull credentials from Vault before validation so secrets never
	// need to live in config.json.
	if cfg.VaultConfig.Enabled {
		vaultClient, err := vault.NewClient(cfg.VaultConfig)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create vault client")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := vaultClient.ApplyToConfig(ctx, cfg); err != nil {
			cancel()
			logger.WithError(err).Fatal("Failed to read secrets from vault")
		}
		cancel()
		logger.Info("Credentials loaded from vault")
	}

	// Configuration errors are fatal at startup
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	// Exchange client
	client := kucoin.NewClient(cfg.KucoinConfig.BaseURL)
	logger.Info("Exchange client initialized")

	// Optional websocket ticker stream for fresher tracker prices
	var stream *kucoin.TickerStream
	if cfg.KucoinConfig.StreamPrices && len(cfg.EngineConfig.Symbols) > 0 {
		stream = kucoin.NewTickerStream(cfg.KucoinConfig.BaseURL, cfg.EngineConfig.Symbols)
		if err := stream.Start(); err != nil {
			logger.WithError(err).Warn("Ticker stream unavailable, falling back to REST prices")
			stream = nil
		}
	}
	prices := &kucoin.LivePriceSource{Stream: stream, Client: client}

	// Notification manager
	notifyManager := notification.NewManager()
	if cfg.NotificationConfig.Enabled {
		if cfg.NotificationConfig.Telegram.Enabled {
			notifyManager.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
				BotToken: cfg.NotificationConfig.Telegram.BotToken,
				ChatID:   cfg.NotificationConfig.Telegram.ChatID,
				Enabled:  cfg.NotificationConfig.Telegram.Enabled,
			}))
		}
		if cfg.NotificationConfig.Discord.Enabled {
			notifyManager.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
				WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
				Enabled:    cfg.NotificationConfig.Discord.Enabled,
			}))
		}
		logger.Info("Notification manager initialized")
	}

	// Signal store
	var store tracker.Store
	if cfg.TrackerConfig.Store == "redis" {
		redisStore, err := tracker.NewRedisStore(cfg.RedisConfig.Address, cfg.RedisConfig.Password, cfg.RedisConfig.DB)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to redis store")
		}
		defer redisStore.Close()
		store = redisStore
		logger.Info("Redis signal store initialized")
	} else {
		store = tracker.NewFileStore(cfg.TrackerConfig.ActiveFile, cfg.TrackerConfig.HistoryFile)
		logger.Info("File signal store initialized")
	}

	// Lifecycle tracker
	trk := tracker.NewTracker(tracker.Config{
		PollInterval:      time.Duration(cfg.TrackerConfig.PollInterval) * time.Second,
		MaxSignalAge:      time.Duration(cfg.TrackerConfig.MaxSignalAgeHours) * time.Hour,
		BreakevenAfterTP1: cfg.TrackerConfig.BreakevenAfterTP1,
	}, prices, store, notifyManager, zlog)

	// Optional long-term archive
	var archive *tracker.PostgresArchive
	if cfg.PostgresConfig.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		archive, err = tracker.NewPostgresArchive(ctx, cfg.PostgresConfig.DSN)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to postgres archive")
		}
		defer archive.Close()
		trk.SetArchive(archive)
		logger.Info("Postgres archive initialized")
	}

	if err := trk.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start signal tracker")
	}

	// Detection pipeline
	analyzer := market.NewAnalyzer(client, market.NewCandleCache())
	det := cfg.DetectionConfig
	deps := engine.Deps{
		Analyzer:  analyzer,
		Prices:    prices,
		Trend:     trend.NewFilter(det.ADXPeriod, det.MinADX),
		Structure: structure.NewAnalyzer(det.SwingLookback, det.SweepLookback, det.StructureLookback),
		Zones:     zones.NewDetector(det.ZoneLookback),
		Momentum:  momentum.NewDetector(det.MinMomentumStrength),
		Composer: sig.NewComposer(cfg.EngineConfig.MinConfidence,
			det.MinStructureStrength, det.MinMomentumStrength),
		Risk: risk.NewEngine(risk.Config{
			MinRiskPercent:      cfg.RiskConfig.MinRiskPercent,
			MaxRiskPercent:      cfg.RiskConfig.MaxRiskPercent,
			FallbackRiskPercent: cfg.RiskConfig.FallbackRiskPercent,
			MinRiskReward:       cfg.RiskConfig.MinRiskReward,
			TrendRiskReward:     cfg.RiskConfig.TrendRiskReward,
			CounterRiskReward:   cfg.RiskConfig.CounterRiskReward,
		}),
		Tracker: trk,
		Notify:  notifyManager,
	}
	if cfg.ConfirmationConfig.Enabled {
		deps.Gate = confirmation.NewGate(cfg.ConfirmationConfig.PassThreshold,
			cfg.ConfirmationConfig.ConfidenceBonus)
	}
	if cfg.ScreenerConfig.Enabled {
		deps.Symbols = screener.NewScreener(client, cfg.ScreenerConfig)
	}

	eng := engine.New(cfg.EngineConfig, deps, zlog)
	eng.Start()

	// Optional status API
	var server *api.Server
	if cfg.ServerConfig.Enabled {
		server = api.NewServer(cfg.ServerConfig, trk, eng, archive)
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start status API")
		}
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutdown signal received")

	eng.Stop()
	trk.Stop()
	if stream != nil {
		stream.Stop()
	}
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Stop(ctx); err != nil {
			logger.WithError(err).Warn("Status API shutdown failed")
		}
		cancel()
	}
	logger.Info("Shutdown complete")
}
