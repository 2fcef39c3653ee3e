package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clearbid/auction-engine/internal/api/rest"
	"github.com/clearbid/auction-engine/internal/infrastructure/config"
	"github.com/clearbid/auction-engine/internal/infrastructure/database"
	"github.com/clearbid/auction-engine/internal/infrastructure/ledger"
	"github.com/clearbid/auction-engine/internal/infrastructure/notify"
	"github.com/clearbid/auction-engine/internal/infrastructure/profile"
	"github.com/clearbid/auction-engine/internal/infrastructure/repository"
	"github.com/clearbid/auction-engine/internal/service/bidding"
	"github.com/clearbid/auction-engine/internal/service/notification"
	"github.com/clearbid/auction-engine/internal/service/settlement"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && err != context.Canceled {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := database.NewPool(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisNotifier, err := notify.NewRedisNotifier(&cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer func() { _ = redisNotifier.Close() }()

	ledgerClient := ledger.NewClient(&cfg.Ledger, logger)
	profileClient := profile.NewClient(&cfg.Profile)

	auctions := repository.NewAuctionRepository(pool)
	bids := repository.NewBidRepository(pool)
	watches := repository.NewWatchRepository(pool)

	notifier := notification.NewNotifier(watches, redisNotifier, logger)
	metrics := promCollector{}

	biddingService := bidding.NewService(
		auctions, bids, watches,
		ledgerClient, pool, notifier, profileClient, metrics,
		&cfg.Auction, logger,
	)
	settlementService := settlement.NewService(
		auctions, bids, ledgerClient, pool, notifier, metrics,
		&cfg.Auction, logger,
	)

	go func() {
		if err := settlementService.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("settlement sweeper stopped", zap.Error(err))
		}
	}()

	server := rest.NewServer(cfg, biddingService, map[string]rest.HealthChecker{
		"database": pool,
		"redis":    redisNotifier,
	}, logger)
	return server.Start(ctx)
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Environment == "development" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
