package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	KucoinConfig       KucoinConfig       `json:"kucoin"`
	EngineConfig       EngineConfig       `json:"engine"`
	DetectionConfig    DetectionConfig    `json:"detection"`
	RiskConfig         RiskConfig         `json:"risk"`
	ConfirmationConfig ConfirmationConfig `json:"confirmation"`
	TrackerConfig      TrackerConfig      `json:"tracker"`
	ScreenerConfig     ScreenerConfig     `json:"screener"`
	NotificationConfig NotificationConfig `json:"notification"`
	ServerConfig       ServerConfig       `json:"server"`
	RedisConfig        RedisConfig        `json:"redis"`
	PostgresConfig     PostgresConfig     `json:"postgres"`
	VaultConfig        VaultConfig        `json:"vault"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

type KucoinConfig struct {
	BaseURL      string `json:"base_url"`
	StreamPrices bool   `json:"stream_prices"` // Keep a websocket ticker stream alongside REST polling
}

// EngineConfig drives the periodic analysis loop.
type EngineConfig struct {
	Symbols           []string `json:"symbols"`           // Fixed watchlist; empty = use screener
	AnalysisInterval  int      `json:"analysis_interval"` // Seconds between full analysis passes
	WorkerCount       int      `json:"worker_count"`      // Concurrent symbol evaluations
	MaxSignalsPerHour int      `json:"max_signals_per_hour"`
	MinConfidence     float64  `json:"min_confidence"` // Minimum composed confidence to accept (0-100)
}

// DetectionConfig holds detector windows and thresholds.
type DetectionConfig struct {
	ADXPeriod            int     `json:"adx_period"`
	MinADX               float64 `json:"min_adx"`
	SwingLookback        int     `json:"swing_lookback"`     // Symmetric window for swing points
	SweepLookback        int     `json:"sweep_lookback"`     // Recent candles scanned for sweeps
	StructureLookback    int     `json:"structure_lookback"` // Recent candles scanned for CHoCH/BOS
	ZoneLookback         int     `json:"zone_lookback"`      // Candles scanned for OB/FVG detection
	MinStructureStrength float64 `json:"min_structure_strength"`
	MinMomentumStrength  float64 `json:"min_momentum_strength"`
}

type RiskConfig struct {
	MinRiskPercent      float64 `json:"min_risk_percent"`      // Stop candidates below this distance are rejected
	MaxRiskPercent      float64 `json:"max_risk_percent"`      // Stop candidates beyond this distance are rejected
	FallbackRiskPercent float64 `json:"fallback_risk_percent"` // Used when no candidate qualifies
	MinRiskReward       float64 `json:"min_risk_reward"`
	TrendRiskReward     float64 `json:"trend_risk_reward"`   // Base R multiple when aligned with HTF bias
	CounterRiskReward   float64 `json:"counter_risk_reward"` // Base R multiple against HTF bias
}

type ConfirmationConfig struct {
	Enabled         bool    `json:"enabled"`
	PassThreshold   float64 `json:"pass_threshold"` // Percentage of rubric points required
	ConfidenceBonus float64 `json:"confidence_bonus"`
}

type TrackerConfig struct {
	PollInterval      int    `json:"poll_interval"` // Seconds between price polls
	MaxSignalAgeHours int    `json:"max_signal_age_hours"`
	BreakevenAfterTP1 bool   `json:"breakeven_after_tp1"` // Move stop to entry once TP1 hits instead of dropping the stop check
	ActiveFile        string `json:"active_file"`
	HistoryFile       string `json:"history_file"`
	Store             string `json:"store"` // "file" or "redis"
}

type ScreenerConfig struct {
	Enabled        bool     `json:"enabled"`
	QuoteCurrency  string   `json:"quote_currency"`
	MinQuoteVolume float64  `json:"min_quote_volume"` // Minimum 24h quote volume
	MaxSymbols     int      `json:"max_symbols"`
	ExcludeSymbols []string `json:"exclude_symbols"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

// ServerConfig holds the optional status API configuration.
type ServerConfig struct {
	Enabled           bool          `json:"enabled"`
	Port              int           `json:"port"`
	Host              string        `json:"host"`
	AllowedOrigins    string        `json:"allowed_origins"`
	AuthEnabled       bool          `json:"auth_enabled"`
	JWTSecret         string        `json:"jwt_secret"`
	AdminPasswordHash string        `json:"admin_password_hash"` // bcrypt hash for the login endpoint
	TokenDuration     time.Duration `json:"token_duration"`
	ShutdownTimeout   int           `json:"shutdown_timeout"` // Seconds
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// PostgresConfig holds the optional completed-signal archive database.
type PostgresConfig struct {
	Enabled bool   `json:"enabled"`
	DSN     string `json:"dsn"`
}

// VaultConfig holds the optional HashiCorp Vault secret source.
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
}

type LoggingConfig struct {
	Level      string `json:"level"`
	Output     string `json:"output"`
	JSONFormat bool   `json:"json_format"`
}

func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Validate reports configuration errors that must stop the process at
// startup. Detection thresholds always have working defaults; only missing
// external credentials are fatal.
func (c *Config) Validate() error {
	if c.NotificationConfig.Enabled && c.NotificationConfig.Telegram.Enabled {
		if c.NotificationConfig.Telegram.BotToken == "" {
			return fmt.Errorf("telegram notifications enabled but TELEGRAM_BOT_TOKEN is not set")
		}
		if c.NotificationConfig.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notifications enabled but TELEGRAM_CHAT_ID is not set")
		}
	}
	if c.ServerConfig.Enabled && c.ServerConfig.AuthEnabled {
		if c.ServerConfig.JWTSecret == "" {
			return fmt.Errorf("API auth enabled but API_JWT_SECRET is not set")
		}
		if c.ServerConfig.AdminPasswordHash == "" {
			return fmt.Errorf("API auth enabled but API_ADMIN_PASSWORD_HASH is not set")
		}
	}
	if c.TrackerConfig.Store == "redis" && !c.RedisConfig.Enabled {
		return fmt.Errorf("tracker store is redis but redis is not enabled")
	}
	if c.PostgresConfig.Enabled && c.PostgresConfig.DSN == "" {
		return fmt.Errorf("postgres archive enabled but POSTGRES_DSN is not set")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.KucoinConfig.BaseURL = getEnvOrDefault("KUCOIN_BASE_URL", cfg.KucoinConfig.BaseURL)
	cfg.KucoinConfig.StreamPrices = getEnvOrDefault("KUCOIN_STREAM_PRICES", boolString(cfg.KucoinConfig.StreamPrices)) == "true"

	cfg.EngineConfig.AnalysisInterval = getEnvIntOrDefault("ENGINE_ANALYSIS_INTERVAL", cfg.EngineConfig.AnalysisInterval)
	cfg.EngineConfig.WorkerCount = getEnvIntOrDefault("ENGINE_WORKER_COUNT", cfg.EngineConfig.WorkerCount)
	cfg.EngineConfig.MaxSignalsPerHour = getEnvIntOrDefault("ENGINE_MAX_SIGNALS_PER_HOUR", cfg.EngineConfig.MaxSignalsPerHour)
	cfg.EngineConfig.MinConfidence = getEnvFloatOrDefault("ENGINE_MIN_CONFIDENCE", cfg.EngineConfig.MinConfidence)

	cfg.DetectionConfig.ADXPeriod = getEnvIntOrDefault("DETECTION_ADX_PERIOD", cfg.DetectionConfig.ADXPeriod)
	cfg.DetectionConfig.MinADX = getEnvFloatOrDefault("DETECTION_MIN_ADX", cfg.DetectionConfig.MinADX)
	cfg.DetectionConfig.SwingLookback = getEnvIntOrDefault("DETECTION_SWING_LOOKBACK", cfg.DetectionConfig.SwingLookback)

	cfg.TrackerConfig.PollInterval = getEnvIntOrDefault("TRACKER_POLL_INTERVAL", cfg.TrackerConfig.PollInterval)
	cfg.TrackerConfig.MaxSignalAgeHours = getEnvIntOrDefault("TRACKER_MAX_SIGNAL_AGE_HOURS", cfg.TrackerConfig.MaxSignalAgeHours)
	cfg.TrackerConfig.BreakevenAfterTP1 = getEnvOrDefault("TRACKER_BREAKEVEN_AFTER_TP1", boolString(cfg.TrackerConfig.BreakevenAfterTP1)) == "true"
	cfg.TrackerConfig.Store = getEnvOrDefault("TRACKER_STORE", cfg.TrackerConfig.Store)

	cfg.ScreenerConfig.Enabled = getEnvOrDefault("SCREENER_ENABLED", boolString(cfg.ScreenerConfig.Enabled)) == "true"
	cfg.ScreenerConfig.MinQuoteVolume = getEnvFloatOrDefault("SCREENER_MIN_QUOTE_VOLUME", cfg.ScreenerConfig.MinQuoteVolume)
	cfg.ScreenerConfig.MaxSymbols = getEnvIntOrDefault("SCREENER_MAX_SYMBOLS", cfg.ScreenerConfig.MaxSymbols)

	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", boolString(cfg.NotificationConfig.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", boolString(cfg.NotificationConfig.Telegram.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", boolString(cfg.NotificationConfig.Discord.Enabled)) == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	cfg.ServerConfig.Enabled = getEnvOrDefault("API_ENABLED", boolString(cfg.ServerConfig.Enabled)) == "true"
	cfg.ServerConfig.Port = getEnvIntOrDefault("API_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("API_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("API_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)
	cfg.ServerConfig.AuthEnabled = getEnvOrDefault("API_AUTH_ENABLED", boolString(cfg.ServerConfig.AuthEnabled)) == "true"
	cfg.ServerConfig.JWTSecret = getEnvOrDefault("API_JWT_SECRET", cfg.ServerConfig.JWTSecret)
	cfg.ServerConfig.AdminPasswordHash = getEnvOrDefault("API_ADMIN_PASSWORD_HASH", cfg.ServerConfig.AdminPasswordHash)
	cfg.ServerConfig.TokenDuration = getEnvDurationOrDefault("API_TOKEN_DURATION", cfg.ServerConfig.TokenDuration)

	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	cfg.PostgresConfig.Enabled = getEnvOrDefault("POSTGRES_ENABLED", boolString(cfg.PostgresConfig.Enabled)) == "true"
	cfg.PostgresConfig.DSN = getEnvOrDefault("POSTGRES_DSN", cfg.PostgresConfig.DSN)

	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", boolString(cfg.VaultConfig.Enabled)) == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", boolString(cfg.LoggingConfig.JSONFormat)) == "true"
}

func applyDefaults(cfg *Config) {
	if cfg.KucoinConfig.BaseURL == "" {
		cfg.KucoinConfig.BaseURL = "https://api.kucoin.com"
	}
	if len(cfg.EngineConfig.Symbols) == 0 && !cfg.ScreenerConfig.Enabled {
		cfg.EngineConfig.Symbols = []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"}
	}
	if cfg.EngineConfig.AnalysisInterval <= 0 {
		cfg.EngineConfig.AnalysisInterval = 300
	}
	if cfg.EngineConfig.WorkerCount <= 0 {
		cfg.EngineConfig.WorkerCount = 4
	}
	if cfg.EngineConfig.MaxSignalsPerHour <= 0 {
		cfg.EngineConfig.MaxSignalsPerHour = 5
	}
	if cfg.EngineConfig.MinConfidence <= 0 {
		cfg.EngineConfig.MinConfidence = 70
	}

	if cfg.DetectionConfig.ADXPeriod <= 0 {
		cfg.DetectionConfig.ADXPeriod = 14
	}
	if cfg.DetectionConfig.MinADX <= 0 {
		cfg.DetectionConfig.MinADX = 25
	}
	if cfg.DetectionConfig.SwingLookback <= 0 {
		cfg.DetectionConfig.SwingLookback = 5
	}
	if cfg.DetectionConfig.SweepLookback <= 0 {
		cfg.DetectionConfig.SweepLookback = 20
	}
	if cfg.DetectionConfig.StructureLookback <= 0 {
		cfg.DetectionConfig.StructureLookback = 10
	}
	if cfg.DetectionConfig.ZoneLookback <= 0 {
		cfg.DetectionConfig.ZoneLookback = 50
	}
	if cfg.DetectionConfig.MinStructureStrength <= 0 {
		cfg.DetectionConfig.MinStructureStrength = 50
	}
	if cfg.DetectionConfig.MinMomentumStrength <= 0 {
		cfg.DetectionConfig.MinMomentumStrength = 60
	}

	if cfg.RiskConfig.MinRiskPercent <= 0 {
		cfg.RiskConfig.MinRiskPercent = 0.5
	}
	if cfg.RiskConfig.MaxRiskPercent <= 0 {
		cfg.RiskConfig.MaxRiskPercent = 5.0
	}
	if cfg.RiskConfig.FallbackRiskPercent <= 0 {
		cfg.RiskConfig.FallbackRiskPercent = 2.0
	}
	if cfg.RiskConfig.MinRiskReward <= 0 {
		cfg.RiskConfig.MinRiskReward = 0.8
	}
	if cfg.RiskConfig.TrendRiskReward <= 0 {
		cfg.RiskConfig.TrendRiskReward = 1.0
	}
	if cfg.RiskConfig.CounterRiskReward <= 0 {
		cfg.RiskConfig.CounterRiskReward = 0.5
	}

	if cfg.ConfirmationConfig.PassThreshold <= 0 {
		cfg.ConfirmationConfig.PassThreshold = 60
	}
	if cfg.ConfirmationConfig.ConfidenceBonus <= 0 {
		cfg.ConfirmationConfig.ConfidenceBonus = 5
	}

	if cfg.TrackerConfig.PollInterval <= 0 {
		cfg.TrackerConfig.PollInterval = 30
	}
	if cfg.TrackerConfig.MaxSignalAgeHours <= 0 {
		cfg.TrackerConfig.MaxSignalAgeHours = 24
	}
	if cfg.TrackerConfig.ActiveFile == "" {
		cfg.TrackerConfig.ActiveFile = "active_signals.json"
	}
	if cfg.TrackerConfig.HistoryFile == "" {
		cfg.TrackerConfig.HistoryFile = "signal_history.json"
	}
	if cfg.TrackerConfig.Store == "" {
		cfg.TrackerConfig.Store = "file"
	}

	if cfg.ScreenerConfig.QuoteCurrency == "" {
		cfg.ScreenerConfig.QuoteCurrency = "USDT"
	}
	if cfg.ScreenerConfig.MinQuoteVolume <= 0 {
		cfg.ScreenerConfig.MinQuoteVolume = 1_000_000
	}
	if cfg.ScreenerConfig.MaxSymbols <= 0 {
		cfg.ScreenerConfig.MaxSymbols = 10
	}

	if cfg.ServerConfig.Port <= 0 {
		cfg.ServerConfig.Port = 8080
	}
	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.ServerConfig.AllowedOrigins == "" {
		cfg.ServerConfig.AllowedOrigins = "*"
	}
	if cfg.ServerConfig.TokenDuration <= 0 {
		cfg.ServerConfig.TokenDuration = 12 * time.Hour
	}
	if cfg.ServerConfig.ShutdownTimeout <= 0 {
		cfg.ServerConfig.ShutdownTimeout = 10
	}

	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.PoolSize <= 0 {
		cfg.RedisConfig.PoolSize = 10
	}

	if cfg.VaultConfig.Address == "" {
		cfg.VaultConfig.Address = "http://localhost:8200"
	}
	if cfg.VaultConfig.MountPath == "" {
		cfg.VaultConfig.MountPath = "secret"
	}
	if cfg.VaultConfig.SecretPath == "" {
		cfg.VaultConfig.SecretPath = "signal-bot/credentials"
	}

	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "INFO"
	}
	if cfg.LoggingConfig.Output == "" {
		cfg.LoggingConfig.Output = "stdout"
	}
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		KucoinConfig: KucoinConfig{
			BaseURL:      "https://api.kucoin.com",
			StreamPrices: true,
		},
		EngineConfig: EngineConfig{
			Symbols:           []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"},
			AnalysisInterval:  300,
			WorkerCount:       4,
			MaxSignalsPerHour: 5,
			MinConfidence:     70,
		},
		DetectionConfig: DetectionConfig{
			ADXPeriod:            14,
			MinADX:               25,
			SwingLookback:        5,
			SweepLookback:        20,
			StructureLookback:    10,
			ZoneLookback:         50,
			MinStructureStrength: 50,
			MinMomentumStrength:  60,
		},
		RiskConfig: RiskConfig{
			MinRiskPercent:      0.5,
			MaxRiskPercent:      5.0,
			FallbackRiskPercent: 2.0,
			MinRiskReward:       0.8,
			TrendRiskReward:     1.0,
			CounterRiskReward:   0.5,
		},
		ConfirmationConfig: ConfirmationConfig{
			Enabled:         true,
			PassThreshold:   60,
			ConfidenceBonus: 5,
		},
		TrackerConfig: TrackerConfig{
			PollInterval:      30,
			MaxSignalAgeHours: 24,
			BreakevenAfterTP1: false,
			ActiveFile:        "active_signals.json",
			HistoryFile:       "signal_history.json",
			Store:             "file",
		},
		ScreenerConfig: ScreenerConfig{
			Enabled:        false,
			QuoteCurrency:  "USDT",
			MinQuoteVolume: 1_000_000,
			MaxSymbols:     10,
			ExcludeSymbols: []string{"USDC-USDT", "DAI-USDT"},
		},
		NotificationConfig: NotificationConfig{
			Enabled: false,
			Telegram: TelegramConfig{
				Enabled:  false,
				BotToken: "",
				ChatID:   "",
			},
			Discord: DiscordConfig{
				Enabled:    false,
				WebhookURL: "",
			},
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
