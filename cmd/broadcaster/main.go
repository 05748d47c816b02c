// Command broadcaster periodically sends one stored quote to every registered
// listener by SMS.
//
//	broadcaster [--interval 10] [--server-address http://localhost:8080]
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
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tbourn/quote-broadcaster/internal/broadcast"
	"github.com/tbourn/quote-broadcaster/internal/client"
	"github.com/tbourn/quote-broadcaster/internal/config"
	"github.com/tbourn/quote-broadcaster/internal/delivery"
	httpapi "github.com/tbourn/quote-broadcaster/internal/http"
	"github.com/tbourn/quote-broadcaster/internal/observability"
	"github.com/tbourn/quote-broadcaster/internal/sysutil"
)

var version = "dev"

func main() {
	interval := flag.Int("interval", 0, "seconds between broadcast cycles (overrides BROADCAST_INTERVAL)")
	serverAddr := flag.String("server-address", "", "quote store base URL (overrides STORE_ADDRESS)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.MustLoad()
	if *interval > 0 {
		cfg.Broadcast.Interval = time.Duration(*interval) * time.Second
	}
	cfg.Broadcast.StoreAddress = sysutil.FirstNonEmpty(*serverAddr, cfg.Broadcast.StoreAddress)

	logger, closer := sysutil.SetupLogger(sysutil.LogOptions{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	}, nil)
	defer closer.Close()

	if err := cfg.ValidateBroadcast(); err != nil {
		logger.Fatal().Err(err).Msg("invalid broadcaster configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}

	queue, closeQueue, err := newQueue(ctx, cfg.Broadcast.Queue, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Broadcast.Queue.Backend).Msg("queue setup failed")
	}
	defer closeQueue()

	b := cfg.Broadcast
	loop := &broadcast.Loop{
		Source: client.New(b.StoreAddress, b.StoreAPIKey,
			client.WithPageSize(b.PageSize),
			client.WithTimeout(b.StoreTimeout),
			client.WithLogger(logger),
		),
		Queue: queue,
		Drainer: delivery.NewDispatcher(queue, delivery.NewTwilioSender(b.Provider, nil),
			delivery.WithSendTimeout(b.Provider.Timeout),
			delivery.WithRatePerSec(b.Provider.RatePerSec),
			delivery.WithLogger(logger),
		),
		From:     b.Provider.FromNumber,
		Interval: b.Interval,
		Logger:   logger,
	}

	var ops *http.Server
	if b.MetricsAddr != "" {
		gin.SetMode(cfg.GinMode)
		r := gin.New()
		httpapi.RegisterOpsRoutes(r)
		ops = &http.Server{Addr: b.MetricsAddr, Handler: r, ReadHeaderTimeout: cfg.ReadHeaderTimeout}
		go func() {
			logger.Info().Str("addr", b.MetricsAddr).Msg("starting ops listener")
			if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("ops listener failed")
			}
		}()
	}

	logger.Info().
		Str("store", b.StoreAddress).
		Int("page_size", b.PageSize).
		Str("queue", b.Queue.Backend).
		Msg("starting broadcaster")
	_ = loop.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ops != nil {
		_ = ops.Shutdown(shutdownCtx)
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("otel shutdown")
	}
	logger.Info().Msg("broadcaster stopped")
}

// newQueue builds the delivery queue. Redis lists are keyed per process so
// two broadcasters never share a queue.
func newQueue(ctx context.Context, cfg config.QueueConfig, logger zerolog.Logger) (delivery.Queue, func(), error) {
	if cfg.Backend != "redis" {
		return delivery.NewMemoryQueue(), func() {}, nil
	}
	q, err := delivery.NewRedisQueue(ctx, cfg.RedisURL, cfg.Key+":"+uuid.NewString())
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("key", q.Key()).Msg("connected to Redis")
	return q, func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := q.Close(cctx); err != nil {
			logger.Warn().Err(err).Msg("redis queue close")
		}
	}, nil
}
