package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Account storage
	DataBackend      string
	SQLiteDBPath     string
	TOMLAccountsPath string

	// AMQP transaction events. Empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Shown-suggestion cache. Empty URL selects the in-process LRU.
	RedisURL         string
	SuggestCacheTTL  time.Duration
	SuggestCacheSize int

	// Suggestion provider
	SuggestProvider     string
	SuggestModel        string
	SuggestTimeout      time.Duration
	GeminiAPIKey        string
	GoogleCloudProject  string
	GoogleCloudLocation string
	OpenAIAPIKey        string
	OpenAIBaseURL       string

	// Idle sessions
	IdleTimeout time.Duration
	IdleWarning time.Duration
	IdleTick    time.Duration

	// Rate limiting, requests per minute per client
	RateLimitRPM     int
	AuthRateLimitRPM int

	// Ledger mirror (worker)
	GoogleSpreadsheetID  string
	LedgerSheetName      string
	LedgerReconcile      bool
	LedgerReconcileDepth int
}

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8081"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:      getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/zenbank.db"),
		TOMLAccountsPath: getEnv("TOML_ACCOUNTS_PATH", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "zenbank"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_sync"),

		RedisURL:         getEnv("REDIS_URL", ""),
		SuggestCacheTTL:  getEnvDuration("SUGGEST_CACHE_TTL", 24*time.Hour),
		SuggestCacheSize: getEnvInt("SUGGEST_CACHE_SIZE", 10000),

		SuggestProvider:     strings.ToLower(getEnv("SUGGEST_PROVIDER", ProviderNone)),
		SuggestModel:        getEnv("SUGGEST_MODEL", ""),
		SuggestTimeout:      getEnvDuration("SUGGEST_TIMEOUT", 8*time.Second),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GoogleCloudProject:  getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation: getEnv("GOOGLE_CLOUD_LOCATION", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		IdleTimeout: getEnvDuration("IDLE_TIMEOUT", 5*time.Minute),
		IdleWarning: getEnvDuration("IDLE_WARNING", 60*time.Second),
		IdleTick:    getEnvDuration("IDLE_TICK", time.Second),

		RateLimitRPM:     getEnvInt("RATE_LIMIT_RPM", 120),
		AuthRateLimitRPM: getEnvInt("AUTH_RATE_LIMIT_RPM", 10),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		LedgerSheetName:     getEnv("LEDGER_SHEET_NAME", "Ledger"),

		LedgerReconcile:      getEnvBool("LEDGER_RECONCILE", true),
		LedgerReconcileDepth: getEnvInt("LEDGER_RECONCILE_DEPTH", 20),
	}
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite", "toml"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "toml":
		// An empty path falls back to ./data/accounts.toml or a zenbank.toml config.
		if strings.TrimSpace(c.TOMLAccountsPath) != c.TOMLAccountsPath {
			errors = append(errors, "TOML accounts path must not have surrounding whitespace")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RedisURL != "" {
		if parsedURL, err := url.Parse(c.RedisURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': %v", c.RedisURL, err))
		} else if parsedURL.Scheme != "redis" && parsedURL.Scheme != "rediss" {
			errors = append(errors, fmt.Sprintf("invalid Redis URL scheme '%s': must be 'redis' or 'rediss'", parsedURL.Scheme))
		}
	}
	if c.SuggestCacheTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid suggestion cache TTL %v: must be at least 1 minute", c.SuggestCacheTTL))
	}
	if c.SuggestCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid suggestion cache size %d: must be at least 1", c.SuggestCacheSize))
	}

	switch c.SuggestProvider {
	case ProviderNone:
	case ProviderGemini:
		if c.GeminiAPIKey == "" && (c.GoogleCloudProject == "" || c.GoogleCloudLocation == "") {
			errors = append(errors, "gemini provider needs GEMINI_API_KEY or both GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errors = append(errors, "openai provider needs OPENAI_API_KEY")
		}
		if u, err := url.Parse(c.OpenAIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid OpenAI base URL '%s'", c.OpenAIBaseURL))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid suggestion provider '%s': must be one of [none gemini openai]", c.SuggestProvider))
	}
	if c.SuggestTimeout <= 0 || c.SuggestTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid suggestion timeout %v: must be between 0 and 1 minute", c.SuggestTimeout))
	}

	if c.IdleTimeout < 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid idle timeout %v: must be at least 10 seconds", c.IdleTimeout))
	}
	if c.IdleWarning <= 0 || c.IdleWarning >= c.IdleTimeout {
		errors = append(errors, fmt.Sprintf("invalid idle warning %v: must be positive and shorter than the idle timeout", c.IdleWarning))
	}
	if c.IdleTick <= 0 || c.IdleTick > c.IdleWarning {
		errors = append(errors, fmt.Sprintf("invalid idle tick %v: must be positive and not longer than the idle warning", c.IdleTick))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitRPM))
	}
	if c.AuthRateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid auth rate limit %d: must be at least 1", c.AuthRateLimitRPM))
	}

	if c.LedgerReconcileDepth < 1 {
		errors = append(errors, fmt.Sprintf("invalid ledger reconcile depth %d: must be at least 1", c.LedgerReconcileDepth))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// LedgerEnabled reports whether the worker should mirror to Google Sheets.
func (c *Config) LedgerEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
