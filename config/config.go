package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"paperQuantBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Trading
	Symbol         string
	InitialBalance float64

	// Quote Source
	QuoteSource string // "yahoo" or "binance"

	// Binance (only used when QuoteSource is "binance")
	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceTestnet   bool

	// Gemini Advisory
	GeminiAPIKeys []string // Ordered credential pool
	GeminiModels  []string // Ordered model pool

	// Service Intervals
	FeederInterval   time.Duration
	QuantInterval    time.Duration
	ExecutorInterval time.Duration
	AdvisorInterval  time.Duration

	// Model Parameters
	RSIWindow        int
	SMAWindow        int
	PriceHistoryRows int // Max live samples loaded per quant cycle
	MinTrainingRows  int // Warm-up threshold before historical backfill kicks in
	BoostRounds      int
	TreeMaxDepth     int
	LearningRate     float64
	WarmupPeriod     time.Duration // Horizon of the historical backfill

	// Risk Management (communicated to the advisory capability, not enforced locally)
	MaxCapitalLossPercent float64
	MaxTradesPer10Min     int
	AdvisorTradeWindow    int // How many recent trades the advisor reviews

	// Storage
	DBPath     string
	SignalPath string

	// Logging
	LogLevel logger.LogLevel

	// External call budget
	RequestTimeout time.Duration
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Trading
	cfg.Symbol = getEnv("TRADING_SYMBOL", "TATASTEEL.NS")
	if cfg.Symbol == "" {
		errs = append(errs, "TRADING_SYMBOL must be set")
	}

	cfg.InitialBalance, err = getEnvAsFloatRequired("INITIAL_BALANCE", 100000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_BALANCE: %v", err))
	} else if cfg.InitialBalance <= 0 {
		errs = append(errs, "INITIAL_BALANCE must be positive")
	}

	// Quote Source
	cfg.QuoteSource = strings.ToLower(getEnv("QUOTE_SOURCE", "yahoo"))
	if cfg.QuoteSource != "yahoo" && cfg.QuoteSource != "binance" {
		errs = append(errs, fmt.Sprintf("QUOTE_SOURCE must be 'yahoo' or 'binance', got %q", cfg.QuoteSource))
	}

	// Binance credentials are optional; public market data endpoints work without them.
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.BinanceTestnet = getEnvAsBool("BINANCE_TESTNET", false)

	// Gemini Advisory
	cfg.GeminiAPIKeys = getEnvAsList("GEMINI_API_KEYS", nil)
	if len(cfg.GeminiAPIKeys) == 0 {
		// Backward-compatible single-key variables
		for _, key := range []string{"GEMINI_API_KEY_1", "GEMINI_API_KEY_2"} {
			if v := os.Getenv(key); v != "" {
				cfg.GeminiAPIKeys = append(cfg.GeminiAPIKeys, v)
			}
		}
	}
	if len(cfg.GeminiAPIKeys) == 0 {
		errs = append(errs, "at least one Gemini API key must be set (GEMINI_API_KEYS or GEMINI_API_KEY_1)")
	}

	cfg.GeminiModels = getEnvAsList("GEMINI_MODELS", []string{
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
		"gemini-2.0-flash",
	})

	// Service Intervals
	cfg.FeederInterval = getEnvAsDuration("MARKET_FEEDER_INTERVAL_SECONDS", 60, &errs)
	cfg.QuantInterval = getEnvAsDuration("QUANT_ENGINE_INTERVAL_SECONDS", 60, &errs)
	cfg.ExecutorInterval = getEnvAsDuration("EXECUTION_ENGINE_INTERVAL_SECONDS", 10, &errs)
	cfg.AdvisorInterval = getEnvAsDuration("RISK_ADVISOR_INTERVAL_SECONDS", 300, &errs)

	// Model Parameters
	cfg.RSIWindow = getEnvAsInt("RSI_WINDOW", 14)
	cfg.SMAWindow = getEnvAsInt("SMA_WINDOW", 20)
	cfg.PriceHistoryRows = getEnvAsInt("PRICE_HISTORY_ROWS", 500)
	cfg.MinTrainingRows = getEnvAsInt("MIN_TRAINING_ROWS", 200)
	cfg.BoostRounds = getEnvAsInt("BOOST_ROUNDS", 100)
	cfg.TreeMaxDepth = getEnvAsInt("TREE_MAX_DEPTH", 3)
	cfg.LearningRate = getEnvAsFloat("LEARNING_RATE", 0.1)
	warmupDays := getEnvAsInt("WARMUP_DAYS", 7)
	cfg.WarmupPeriod = time.Duration(warmupDays) * 24 * time.Hour

	if cfg.RSIWindow <= 0 || cfg.SMAWindow <= 0 {
		errs = append(errs, "RSI_WINDOW and SMA_WINDOW must be positive")
	}
	if cfg.BoostRounds <= 0 || cfg.TreeMaxDepth <= 0 {
		errs = append(errs, "BOOST_ROUNDS and TREE_MAX_DEPTH must be positive")
	}
	if cfg.LearningRate <= 0 || cfg.LearningRate > 1 {
		errs = append(errs, "LEARNING_RATE must be in (0, 1]")
	}
	if cfg.MinTrainingRows <= cfg.RSIWindow || cfg.MinTrainingRows <= cfg.SMAWindow {
		errs = append(errs, "MIN_TRAINING_ROWS must exceed the indicator windows")
	}

	// Risk Management
	cfg.MaxCapitalLossPercent = getEnvAsFloat("MAX_CAPITAL_LOSS_PERCENT", 2.0)
	cfg.MaxTradesPer10Min = getEnvAsInt("MAX_TRADES_PER_10_MIN", 5)
	cfg.AdvisorTradeWindow = getEnvAsInt("ADVISOR_TRADE_WINDOW", 10)
	if cfg.MaxCapitalLossPercent <= 0 || cfg.MaxCapitalLossPercent >= 100 {
		errs = append(errs, "MAX_CAPITAL_LOSS_PERCENT must be between 0 and 100 (exclusive)")
	}
	if cfg.MaxTradesPer10Min <= 0 {
		errs = append(errs, "MAX_TRADES_PER_10_MIN must be positive")
	}
	if cfg.AdvisorTradeWindow <= 0 {
		errs = append(errs, "ADVISOR_TRADE_WINDOW must be positive")
	}

	// Storage
	cfg.DBPath = getEnv("DB_PATH", "./data/paper_trading.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	cfg.SignalPath = getEnv("SIGNAL_PATH", "./data/trade_signal.json")
	if cfg.SignalPath == "" {
		errs = append(errs, "SIGNAL_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// External call budget
	requestTimeoutSeconds := getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 30)
	if requestTimeoutSeconds <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	cfg.RequestTimeout = time.Duration(requestTimeoutSeconds) * time.Second

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// Summary returns a redacted one-line description suitable for startup logs.
func (c *Config) Summary() map[string]interface{} {
	return map[string]interface{}{
		"symbol":           c.Symbol,
		"initialBalance":   c.InitialBalance,
		"quoteSource":      c.QuoteSource,
		"geminiKeys":       len(c.GeminiAPIKeys),
		"geminiModels":     len(c.GeminiModels),
		"feederInterval":   c.FeederInterval.String(),
		"quantInterval":    c.QuantInterval.String(),
		"executorInterval": c.ExecutorInterval.String(),
		"advisorInterval":  c.AdvisorInterval.String(),
		"rsiWindow":        c.RSIWindow,
		"smaWindow":        c.SMAWindow,
		"boostRounds":      c.BoostRounds,
	}
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// For non-required fields, default is acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList parses a comma-separated env var, dropping empty elements.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

// getEnvAsDuration reads a seconds-valued env var, recording a validation
// error when the value is not positive.
func getEnvAsDuration(key string, defaultSeconds int, errs *[]string) time.Duration {
	seconds := getEnvAsInt(key, defaultSeconds)
	if seconds <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be positive", key))
		return time.Duration(defaultSeconds) * time.Second
	}
	return time.Duration(seconds) * time.Second
}
