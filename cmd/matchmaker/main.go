package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/Matchmaker/internal/api"
	"github.com/MikeSquared-Agency/Matchmaker/internal/broker"
	"github.com/MikeSquared-Agency/Matchmaker/internal/cache"
	"github.com/MikeSquared-Agency/Matchmaker/internal/config"
	"github.com/MikeSquared-Agency/Matchmaker/internal/hermes"
	"github.com/MikeSquared-Agency/Matchmaker/internal/logging"
	"github.com/MikeSquared-Agency/Matchmaker/internal/matching"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store/memstore"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	weights, err := cfg.Matching.WeightSet()
	if err != nil {
		logger.Fatal("invalid scoring weights", zap.Error(err))
	}
	engine, err := matching.NewEngine(weights, cfg.Matching.ScoringConfig(), cfg.Matching.EngineConfig(), logger.Named("matching"))
	if err != nil {
		logger.Fatal("failed to build matching engine", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Manufacturer store
	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open manufacturer store", zap.Error(err))
	}
	defer db.Close()

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger.Named("hermes"))
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", zap.Error(err))
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	// Result cache (optional)
	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled && cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, cache.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			logger.Warn("failed to connect to redis, running without cache", zap.Error(err))
		} else {
			defer rdb.Close()
			resultCache = cache.New(rdb, true, cfg.Cache.TTL(), logger.Named("cache"))
			logger.Info("result cache enabled", zap.Duration("ttl", cfg.Cache.TTL()))
		}
	}

	// Broker
	b := broker.New(engine, db, hermesClient, resultCache, cfg.RequestTimeout(), logger.Named("broker"))
	if err := b.SetupSubscriptions(); err != nil {
		logger.Warn("failed to subscribe to match requests", zap.Error(err))
	}

	// API server
	router := api.NewRouter(b, api.RouterConfig{
		AdminToken:         cfg.Server.AdminToken,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout(),
	}, logger.Named("api"))
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", zap.Int("port", cfg.Server.Port))
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("metrics server starting", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

// openStore prefers Postgres. Without a database URL it serves the seed
// file from memory, or an empty store.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Database.URL != "" {
		db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to database")
		return db, nil
	}
	if cfg.SeedFile != "" {
		ms, err := memstore.LoadFile(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		logger.Info("serving manufacturers from seed file",
			zap.String("path", cfg.SeedFile),
			zap.Int("manufacturers", ms.Len()),
		)
		return ms, nil
	}
	logger.Warn("no database or seed file configured, manufacturer store is empty")
	return memstore.New(), nil
}
