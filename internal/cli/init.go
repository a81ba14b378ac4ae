// Package cli provides common initialization shared by cmd/zenbank,
// cmd/zenbank-worker and cmd/zenbankctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"zenbank/internal/cache"
	"zenbank/internal/config"
	"zenbank/internal/log"
	"zenbank/internal/suggest"
	"zenbank/internal/suggest/gemini"
	"zenbank/internal/suggest/openai"
)

// SetupLogger builds the process logger from configuration and installs it
// as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration validation failed: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// BuildRecommender returns the model client for the configured provider,
// or nil when suggestions should use the fallback only.
func BuildRecommender(ctx context.Context, cfg *config.Config, logger *log.Logger) (suggest.Recommender, error) {
	switch cfg.SuggestProvider {
	case config.ProviderGemini:
		client, err := gemini.New(ctx, gemini.Config{
			APIKey:   cfg.GeminiAPIKey,
			Project:  cfg.GoogleCloudProject,
			Location: cfg.GoogleCloudLocation,
			Model:    cfg.SuggestModel,
		})
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "Suggestion provider configured", log.FieldProvider, client.Name())
		return client, nil
	case config.ProviderOpenAI:
		client := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.SuggestModel)
		logger.InfoContext(ctx, "Suggestion provider configured", log.FieldProvider, client.Name())
		return client, nil
	default:
		logger.InfoContext(ctx, "No suggestion provider configured, using fallback amounts")
		return nil, nil
	}
}

// BuildShownStore picks Redis when REDIS_URL is set and the in-process LRU
// otherwise. An unreachable Redis degrades to the LRU, which is registered
// with sweeper when one is given. The returned cleanup is never nil.
func BuildShownStore(ctx context.Context, cfg *config.Config, sweeper *cache.Manager, logger *log.Logger) (*suggest.ShownStore, func() error) {
	noop := func() error { return nil }
	if cfg.RedisURL != "" {
		store, err := cache.NewRedisStore(ctx, cfg.RedisURL, "zenbank:")
		if err == nil {
			logger.InfoContext(ctx, "Shown-suggestion cache backed by Redis")
			return suggest.NewShownStore(store, cfg.SuggestCacheTTL), store.Close
		}
		logger.WarnContext(ctx, "Redis unavailable, falling back to in-process cache",
			log.FieldError, err)
	}
	store := cache.NewLRUStore(cfg.SuggestCacheSize, cfg.SuggestCacheTTL)
	if sweeper != nil {
		sweeper.Register(store)
	}
	return suggest.NewShownStore(store, cfg.SuggestCacheTTL), noop
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
// The stop function restores default signal handling.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}

// ShutdownContext bounds the cleanup that follows a shutdown signal.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
