package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/localserve/marketplace-backend/internal/app"
	"github.com/localserve/marketplace-backend/internal/config"
	"github.com/localserve/marketplace-backend/internal/db"
	"github.com/localserve/marketplace-backend/internal/pkg/storage"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if !cfg.IsProduction {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer pool.Close()

	store, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init upload storage")
	}

	container := app.NewContainer(app.Config{
		IsProduction: cfg.IsProduction,
		ProdOrigins:  cfg.ProdOrigins,
		DBPool:       pool,
		JWTSecret:    cfg.JWTSecret,
		JWTTTL:       cfg.JWTAccessTokenTTL,
		BcryptCost:   cfg.BcryptCost,
		Storage:      store,
		Logger:       logger,
	})

	// The change-feed broker must run for availability streams to receive
	// booking events. It exits when ctx is cancelled.
	go container.Broker.Run(ctx)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: container.Router,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("server running")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited gracefully")
}
