package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MW-Studio-Dev/inmosite-edge/internal/cache"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/config"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/hostname"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/metrics"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/reserved"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/router"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/server"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/verify"
)

const sweepInterval = time.Minute

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	metrics.Initialize()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tenant cache: %v", err)
	}

	client := verify.NewClient(verify.Config{
		URL:         cfg.Validation.URL,
		Secret:      cfg.Validation.Secret,
		Timeout:     cfg.Validation.Timeout,
		TTL:         cfg.Cache.TTL,
		NegativeTTL: cfg.Cache.NegativeTTL,
	}, store, logger)

	edge := router.New(
		hostname.NewExtractor(cfg.Server.BaseDomain, cfg.Server.PreviewSuffix),
		reserved.Default(),
		client,
		cfg.RootURL(),
		logger,
	)

	srv, err := server.New(cfg, edge, store, logger)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Edge router stopped")
}

func buildStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (cache.Store, error) {
	if cfg.Cache.Redis.Enabled {
		return cache.NewRedisStore(cache.RedisConfig{
			Host:     cfg.Cache.Redis.Host,
			Port:     cfg.Cache.Redis.Port,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}, logger)
	}

	store := cache.NewTTLMap()
	go store.Sweep(ctx, sweepInterval)
	return store, nil
}
