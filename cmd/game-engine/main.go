package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/betbot-engine/internal/game-engine/cache"
	"github.com/radieske/betbot-engine/internal/game-engine/engine"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	httpapi "github.com/radieske/betbot-engine/internal/game-engine/http"
	"github.com/radieske/betbot-engine/internal/game-engine/producer"
	"github.com/radieske/betbot-engine/internal/game-engine/repo"
	"github.com/radieske/betbot-engine/internal/game-engine/scheduler"
	sharedcache "github.com/radieske/betbot-engine/internal/shared/cache"
	"github.com/radieske/betbot-engine/internal/shared/config"
	"github.com/radieske/betbot-engine/internal/shared/db"
	"github.com/radieske/betbot-engine/internal/shared/kafka"
	"github.com/radieske/betbot-engine/internal/shared/logger"
	"github.com/radieske/betbot-engine/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.LoadService("game-engine")

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// banco + migrations
	sqlDB, err := db.Connect(cfg.StoreDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("failed to connect store", zap.Error(err))
	}
	defer sqlDB.Close()
	store := repo.New(sqlDB)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}
	log.Info("store ready")

	// cache Redis
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	// writers Kafka
	roundsW := kafka.NewWriter(cfg.Brokers(), cfg.TopicRoundEvents)
	betsW := kafka.NewWriter(cfg.Brokers(), cfg.TopicBetPlaced)
	settledW := kafka.NewWriter(cfg.Brokers(), cfg.TopicRoundSettled)
	defer roundsW.Close()
	defer betsW.Close()
	defer settledW.Close()
	log.Info("kafka writers ready",
		zap.String("rounds", cfg.TopicRoundEvents),
		zap.String("bets", cfg.TopicBetPlaced),
		zap.String("settled", cfg.TopicRoundSettled),
	)

	seeds, err := game.NewSeedManager(cfg.ServerSeed)
	if err != nil {
		log.Fatal("invalid server seed", zap.Error(err))
	}
	if cfg.ServerSeed == "" {
		log.Warn("SERVER_SEED not set; using a random seed for this process")
	}
	log.Info("provably fair seed", zap.String("seed_hash", seeds.Hash))

	eng := engine.New(engine.Deps{
		Log:   log,
		Store: store,
		Games: game.Default(),
		Seeds: seeds,
		Scheduler: scheduler.Config{
			Intermission:    cfg.Intermission,
			RetryInitial:    cfg.RetryInitial,
			RetryMax:        cfg.RetryMax,
			RetryMaxElapsed: cfg.RetryMaxElapsed,
			FailurePause:    cfg.FailurePause,
		},
		Cache:       cache.NewRoundCache(redisClient, 10*time.Minute),
		Broadcaster: cache.NewBroadcaster(redisClient, cfg.RedisPubSubChannel),
		Publisher:   producer.NewKafkaPublisher(roundsW, betsW, settledW),
		Metrics:     engine.NewMetrics(prometheus.DefaultRegisterer),
	})

	// métricas e health
	msrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		eng.Ping,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)

	api := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpapi.NewServer(log, eng, cfg.AdminToken).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set; admin routes disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(gctx)
	})
	g.Go(func() error {
		log.Info("http api listening", zap.String("addr", api.Addr))
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = msrv.Shutdown(shutdownCtx)
		return api.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("game-engine stopped with error", zap.Error(err))
		return
	}
	log.Info("game-engine stopped")
}
