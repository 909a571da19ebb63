package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/betbot-engine/internal/game-engine/game"
	"github.com/radieske/betbot-engine/internal/game-engine/repo"
	"github.com/radieske/betbot-engine/internal/settlement-auditor/auditor"
	"github.com/radieske/betbot-engine/internal/shared/config"
	"github.com/radieske/betbot-engine/internal/shared/db"
	"github.com/radieske/betbot-engine/internal/shared/kafka"
	"github.com/radieske/betbot-engine/internal/shared/logger"
	"github.com/radieske/betbot-engine/internal/shared/metrics"
)

func main() {
	cfg := config.LoadService("settlement-auditor")
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Conexão com o banco do motor (somente leitura)
	sqlDB, err := db.Connect(cfg.StoreDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("failed to connect store", zap.Error(err))
	}
	defer sqlDB.Close()
	store := repo.New(sqlDB)

	// Kafka consumer: consome round_settled; divergências vão para a DLQ
	reader := kafka.NewReader(cfg.Brokers(), cfg.TopicRoundSettled, "settlement-auditor")
	defer reader.Close()

	var dlq *kafka.Writer
	if cfg.TopicRoundSettledDLQ != "" {
		dlq = kafka.NewWriter(cfg.Brokers(), cfg.TopicRoundSettledDLQ)
		defer dlq.Close()
	}

	msrv := metrics.StartMetricsServer(log, cfg.MetricsPort, store.Ping)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = msrv.Shutdown(shutdownCtx)
	}()

	p := &auditor.Processor{
		Log:     log,
		Reader:  reader,
		Auditor: auditor.New(store, game.Default()),
	}
	if dlq != nil {
		p.DLQ = dlq
	}
	auditor.NewMetrics(prometheus.DefaultRegisterer).Wire(p)

	log.Info("settlement-auditor started",
		zap.String("consume", cfg.TopicRoundSettled),
		zap.String("dlq", cfg.TopicRoundSettledDLQ),
	)
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("auditor stopped with error", zap.Error(err))
		return
	}
	log.Info("settlement-auditor stopped")
}
