package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/liamashdown/whalewatch/internal/alerts"
	"github.com/liamashdown/whalewatch/internal/secrets"
	"github.com/liamashdown/whalewatch/internal/trade"
)

// Backend names
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Detection
	ThresholdUSD     float64
	PollInterval     time.Duration
	FetchTimeout     time.Duration
	DeliveryTimeout  time.Duration
	MaxTrackedActors int
	WalletSweepEvery time.Duration

	// Sources
	Sources               []trade.Source
	SourceRPS             float64
	PolymarketAPIBaseURL  string
	PolymarketTradesLimit int
	KalshiAPIBaseURL      string
	KalshiAPIKeyID        string
	KalshiTradesLimit     int

	// Alerts
	AlertMode    string // comma list of log, webhook, smtp
	WebhookURLs  []string
	Targets      []alerts.Target
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPTo       []string

	// State
	StateDir       string
	HistoryBackend string
	CursorBackend  string

	// Database
	DatabaseDSN         string
	DatabaseMaxConns    int
	DatabaseMaxIdleTime time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Ops HTTP server; 0 disables it
	HTTPPort int
}

// Load reads configuration from an optional .env file and environment variables
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("WHALEWATCH_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:           getEnv("ENVIRONMENT", "production"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		ThresholdUSD:          getEnvFloat("THRESHOLD_USD", 25000.0),
		PollInterval:          time.Duration(getEnvInt("POLL_INTERVAL_SEC", 5)) * time.Second,
		FetchTimeout:          time.Duration(getEnvInt("FETCH_TIMEOUT_SEC", 10)) * time.Second,
		DeliveryTimeout:       time.Duration(getEnvInt("DELIVERY_TIMEOUT_SEC", 5)) * time.Second,
		MaxTrackedActors:      getEnvInt("MAX_TRACKED_ACTORS", 0),
		WalletSweepEvery:      time.Duration(getEnvInt("WALLET_SWEEP_INTERVAL_MIN", 10)) * time.Minute,
		SourceRPS:             getEnvFloat("SOURCE_RPS", 2.0),
		PolymarketAPIBaseURL:  getEnv("POLYMARKET_API_BASE_URL", "https://data-api.polymarket.com"),
		PolymarketTradesLimit: getEnvInt("POLYMARKET_TRADES_LIMIT", 100),
		KalshiAPIBaseURL:      getEnv("KALSHI_API_BASE_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		KalshiAPIKeyID:        secrets.GetOptionalSecret("KALSHI_API_KEY_ID", ""),
		KalshiTradesLimit:     getEnvInt("KALSHI_TRADES_LIMIT", 100),
		AlertMode:             getEnv("ALERT_MODE", "log"),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPUser:              getEnv("SMTP_USER", ""),
		SMTPPassword:          secrets.GetOptionalSecret("SMTP_PASSWORD", ""),
		SMTPFrom:              getEnv("SMTP_FROM", "whalewatch@example.com"),
		StateDir:              getEnv("STATE_DIR", defaultStateDir()),
		HistoryBackend:        getEnv("HISTORY_BACKEND", BackendFile),
		CursorBackend:         getEnv("CURSOR_BACKEND", BackendMemory),
		DatabaseDSN:           secrets.GetOptionalSecret("DATABASE_DSN", ""),
		DatabaseMaxConns:      getEnvInt("DATABASE_MAX_CONNS", 10),
		DatabaseMaxIdleTime:   time.Duration(getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", 5)) * time.Minute,
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         secrets.GetOptionalSecret("REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		HTTPPort:              getEnvInt("HTTP_PORT", 8080),
		SMTPTo:                parseCSV(getEnv("SMTP_TO", "")),
	}

	// WEBHOOK_URL may come from a secret file; WEBHOOK_URLS is a plain list
	cfg.WebhookURLs = parseCSV(getEnv("WEBHOOK_URLS", ""))
	if single := secrets.GetOptionalSecret("WEBHOOK_URL", ""); single != "" {
		cfg.WebhookURLs = append(cfg.WebhookURLs, single)
	}

	sources, err := parseSources(getEnv("SOURCES", "polymarket,kalshi"))
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors and parses notification targets
func (c *Config) Validate() error {
	if c.ThresholdUSD <= 0 {
		return fmt.Errorf("THRESHOLD_USD must be positive, got %.2f", c.ThresholdUSD)
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL_SEC must be at least 1")
	}
	if c.FetchTimeout <= 0 || c.DeliveryTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SEC and DELIVERY_TIMEOUT_SEC must be positive")
	}
	if c.MaxTrackedActors < 0 {
		return fmt.Errorf("MAX_TRACKED_ACTORS must not be negative")
	}
	if c.WalletSweepEvery <= 0 {
		return fmt.Errorf("WALLET_SWEEP_INTERVAL_MIN must be positive")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("SOURCES must name at least one of polymarket, kalshi")
	}
	if c.PolymarketTradesLimit < 1 || c.PolymarketTradesLimit > 1000 {
		return fmt.Errorf("POLYMARKET_TRADES_LIMIT must be between 1 and 1000")
	}
	if c.KalshiTradesLimit < 1 || c.KalshiTradesLimit > 1000 {
		return fmt.Errorf("KALSHI_TRADES_LIMIT must be between 1 and 1000")
	}

	// Validate alert mode (comma-separated list)
	hasWebhook := false
	hasSMTP := false
	for _, mode := range c.AlertModes() {
		switch mode {
		case "log":
		case "webhook":
			hasWebhook = true
		case "smtp":
			hasSMTP = true
		default:
			return fmt.Errorf("invalid ALERT_MODE value: %s (valid values: log, webhook, smtp)", mode)
		}
	}

	if hasWebhook && len(c.WebhookURLs) == 0 {
		return fmt.Errorf("WEBHOOK_URLS is required when webhook is in ALERT_MODE")
	}
	if hasSMTP && (c.SMTPHost == "" || len(c.SMTPTo) == 0) {
		return fmt.Errorf("SMTP_HOST and SMTP_TO are required when smtp is in ALERT_MODE")
	}

	c.Targets = c.Targets[:0]
	for _, raw := range c.WebhookURLs {
		t, err := alerts.ParseTarget(raw)
		if err != nil {
			return fmt.Errorf("invalid webhook url: %w", err)
		}
		c.Targets = append(c.Targets, t)
	}

	switch c.HistoryBackend {
	case BackendFile:
		if c.StateDir == "" {
			return fmt.Errorf("STATE_DIR could not be determined; set it explicitly")
		}
	case BackendMySQL:
	default:
		return fmt.Errorf("invalid HISTORY_BACKEND: %s (must be file or mysql)", c.HistoryBackend)
	}

	switch c.CursorBackend {
	case BackendMemory, BackendMySQL, BackendRedis:
	default:
		return fmt.Errorf("invalid CURSOR_BACKEND: %s (must be memory, mysql or redis)", c.CursorBackend)
	}

	if c.NeedsDatabase() && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required when a mysql backend is selected")
	}
	if c.CursorBackend == BackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when CURSOR_BACKEND is redis")
	}

	return nil
}

// AlertModes returns the normalized ALERT_MODE entries
func (c *Config) AlertModes() []string {
	var modes []string
	for _, m := range parseCSV(c.AlertMode) {
		modes = append(modes, strings.ToLower(m))
	}
	return modes
}

// HasAlertMode reports whether mode is enabled
func (c *Config) HasAlertMode(mode string) bool {
	for _, m := range c.AlertModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// NeedsDatabase reports whether any backend is stored in MySQL
func (c *Config) NeedsDatabase() bool {
	return c.HistoryBackend == BackendMySQL || c.CursorBackend == BackendMySQL
}

// HasSource reports whether source is polled
func (c *Config) HasSource(source trade.Source) bool {
	for _, s := range c.Sources {
		if s == source {
			return true
		}
	}
	return false
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	// Existing environment variables win over the file
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "whalewatch")
}

func parseSources(s string) ([]trade.Source, error) {
	var out []trade.Source
	seen := make(map[trade.Source]bool)
	for _, item := range parseCSV(s) {
		src, err := trade.ParseSource(item)
		if err != nil {
			return nil, fmt.Errorf("invalid SOURCES: %w", err)
		}
		if !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}
	return out, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func parseCSV(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
