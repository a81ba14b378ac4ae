package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"zenbank/internal/backend"
	"zenbank/internal/cache"
	"zenbank/internal/cli"
	apphttp "zenbank/internal/http"
	"zenbank/internal/idle"
	"zenbank/internal/log"
	"zenbank/internal/services"
	"zenbank/internal/session"
	"zenbank/internal/suggest"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		return err
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	sweeper := cache.NewManager(logger)
	shown, closeShown := cli.BuildShownStore(ctx, cfg, sweeper, logger)
	defer func() { _ = closeShown() }()

	model, err := cli.BuildRecommender(ctx, cfg, logger)
	if err != nil {
		logger.Warn("Suggestion provider unavailable, using fallback amounts",
			log.FieldError, err,
			log.FieldProvider, cfg.SuggestProvider)
		model = nil
	}
	engine := suggest.NewEngine(model,
		suggest.WithTimeout(cfg.SuggestTimeout),
		suggest.WithLogger(logger))

	sessions := session.NewManager(idle.Config{
		IdleTime:    cfg.IdleTimeout,
		WarningTime: cfg.IdleWarning,
		Tick:        cfg.IdleTick,
	}, logger)
	sweeper.Register(sessions.Tombstones())

	accountSvc := services.NewAccountService(result.Backend.Repository, result.Backend.Publisher, shown, logger)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:        services.NewAuthService(result.Backend.Repository, sessions, logger),
		Accounts:    accountSvc,
		Suggestions: services.NewSuggestionService(accountSvc, engine, shown, logger),
		Sessions:    sessions,
		Ready:       result.Backend.Ready,
		Logger:      logger,
	}, apphttp.Options{
		RateLimitRPM:     cfg.RateLimitRPM,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.SuggestTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting zenbank server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx, sweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		sweeper.Stop()
		sessions.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
	return nil
}
