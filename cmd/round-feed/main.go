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

	"github.com/radieske/betbot-engine/internal/game-engine/cache"
	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/round-feed/ws"
	sharedcache "github.com/radieske/betbot-engine/internal/shared/cache"
	"github.com/radieske/betbot-engine/internal/shared/config"
	"github.com/radieske/betbot-engine/internal/shared/logger"
	"github.com/radieske/betbot-engine/internal/shared/metrics"
)

func main() {
	cfg := config.LoadService("round-feed")
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	hub := ws.NewHub(log, game.Default(), cache.NewRoundCache(redisClient, 10*time.Minute),
		ws.NewMetrics(prometheus.DefaultRegisterer),
		func(r *http.Request) bool { return true }, // PoC: libera qualquer origem
	)
	if err := ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisPubSubChannel, hub); err != nil {
		log.Fatal("redis subscribe failed", zap.Error(err))
	}
	log.Info("subscribed to round updates", zap.String("channel", cfg.RedisPubSubChannel))

	msrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = msrv.Shutdown(shutdownCtx)
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("round-feed listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("round-feed failed", zap.Error(err))
	}
	log.Info("round-feed stopped")
}
