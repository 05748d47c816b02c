// Command quotestore serves the quote and listener store over HTTP.
//
//	quotestore [--seed quotes.csv]
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/tbourn/quote-broadcaster/internal/config"
	httpapi "github.com/tbourn/quote-broadcaster/internal/http"
	"github.com/tbourn/quote-broadcaster/internal/observability"
	"github.com/tbourn/quote-broadcaster/internal/repo"
	"github.com/tbourn/quote-broadcaster/internal/seed"
	"github.com/tbourn/quote-broadcaster/internal/services"
	"github.com/tbourn/quote-broadcaster/internal/sysutil"
)

var version = "dev"

func main() {
	seedPath := flag.String("seed", "", "CSV dataset of quotes (text,reference[,author]) to import at startup")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.MustLoad()

	logger, closer := sysutil.SetupLogger(sysutil.LogOptions{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	}, nil)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	if *seedPath != "" {
		rows, err := seed.ReadFile(*seedPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *seedPath).Msg("read seed dataset")
		}
		res, err := seed.Import(ctx, services.NewQuoteService(db), rows)
		if err != nil {
			logger.Fatal().Err(err).Msg("seed import failed")
		}
		logger.Info().
			Int("created", res.Created).
			Int("duplicates", res.Duplicates).
			Int("invalid", res.Invalid).
			Msg("seed dataset imported")
	}
	if cfg.Store.APIKey == "" {
		logger.Warn().Msg("API_KEY is empty; api-key authentication is disabled")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("driver", cfg.Store.Driver).
			Str("base_path", cfg.APIBasePath).
			Msg("starting quote store")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info().Msg("server stopped")
}
